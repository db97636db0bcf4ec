package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"casedesk/internal/cases/models"
	"casedesk/internal/cases/service"
	"casedesk/internal/catalog"
	"casedesk/internal/files"
	"casedesk/internal/platform/middleware"
	"casedesk/internal/review"
	dErrors "casedesk/pkg/domain-errors"
	"casedesk/pkg/platform/httputil"
	"casedesk/pkg/requestcontext"
)

// Service is the case engine surface the handlers call.
type Service interface {
	Create(ctx context.Context, ownerID, typeName, description string) (*models.Case, error)
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Case, error)
	ListAll(ctx context.Context, filter models.Filter) ([]*models.Case, error)
	Stats(ctx context.Context) (models.Stats, error)
	UploadDocument(ctx context.Context, caseID string, doc models.NewDocument, actorID string) (*models.Case, error)
	ReviewDocument(ctx context.Context, caseID, documentID string, review models.Review, reviewerID string) (*models.Case, error)
	Transition(ctx context.Context, caseID string, newStatus models.Status, actorID, comment string) (*models.Case, error)
	Assign(ctx context.Context, caseID, assignee, actorID string) (*models.Case, error)
}

// Catalog resolves case types for creation and document checklists.
type Catalog interface {
	GetType(id string) (catalog.CaseTypeDefinition, error)
	MissingRequired(typeName string, uploadedTypes []string) ([]string, error)
}

// Decider applies a full reviewer decision.
type Decider interface {
	Decide(ctx context.Context, d review.Decision) (*review.Outcome, error)
}

const defaultMaxUploadBytes = 10 << 20

// Handler serves the case routes.
type Handler struct {
	cases          Service
	catalog        Catalog
	decider        Decider
	files          files.Transport
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(cases Service, cat Catalog, decider Decider, transport files.Transport, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		cases:          cases,
		catalog:        cat,
		decider:        decider,
		files:          transport,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the case routes on r. r must already carry the actor.
func (h *Handler) Register(r chi.Router) {
	staff := middleware.RequireStaff(h.logger)

	r.Post("/cases", h.handleCreate)
	r.Get("/cases", h.handleList)
	r.With(staff).Get("/cases/stats", h.handleStats)
	r.Get("/cases/{caseID}", h.handleGet)
	r.Post("/cases/{caseID}/documents", h.handleUpload)
	r.With(staff).Post("/cases/{caseID}/documents/{documentID}/review", h.handleReview)
	r.With(staff).Post("/cases/{caseID}/transition", h.handleTransition)
	r.With(staff).Post("/cases/{caseID}/assign", h.handleAssign)
	r.With(staff).Post("/cases/{caseID}/decision", h.handleDecision)
}

type caseResponse struct {
	*models.Case
	MissingDocuments []string `json:"missing_documents"`
}

func (h *Handler) respondCase(w http.ResponseWriter, status int, c *models.Case) {
	missing, err := h.catalog.MissingRequired(c.TypeName, c.DocumentTypes())
	if err != nil {
		missing = nil
	}
	if missing == nil {
		missing = []string{}
	}
	httputil.WriteJSON(w, status, caseResponse{Case: c, MissingDocuments: missing})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	def, err := h.catalog.GetType(req.TypeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.cases.Create(ctx, requestcontext.ActorID(ctx), def.Name, req.Description)
	if err != nil {
		h.logFailure(ctx, "create case failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusCreated, c)
}

// handleList returns the caller's own cases, newest activity first. Staff
// see every case and may filter with ?status=a,b&q=text&owner=id.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		list []*models.Case
		err  error
	)
	if requestcontext.ActorRole(ctx).IsStaff() {
		list, err = h.cases.ListAll(ctx, filterFromQuery(r))
	} else {
		list, err = h.cases.ListByOwner(ctx, requestcontext.ActorID(ctx))
	}
	if err != nil {
		h.logFailure(ctx, "list cases failed", err)
		httputil.WriteError(w, err)
		return
	}
	service.SortByUpdatedDesc(list)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": list})
}

func filterFromQuery(r *http.Request) models.Filter {
	q := r.URL.Query()
	f := models.Filter{
		OwnerID: strings.TrimSpace(q.Get("owner")),
		Search:  strings.TrimSpace(q.Get("q")),
	}
	if raw := q.Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				f.Statuses = append(f.Statuses, models.Status(st))
			}
		}
	}
	return f
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cases.Stats(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "case stats failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.visibleCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusOK, c)
}

// visibleCase loads a case the caller may see. Applicants asking for someone
// else's case get the same not_found as for a missing one.
func (h *Handler) visibleCase(ctx context.Context, id string) (*models.Case, error) {
	c, err := h.cases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requestcontext.ActorRole(ctx).IsStaff() && c.OwnerID != requestcontext.ActorID(ctx) {
		return nil, dErrors.Wrap(models.ErrCaseNotFound, dErrors.CodeNotFound, "case "+id)
	}
	return c, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID := chi.URLParam(r, "caseID")
	if _, err := h.visibleCase(ctx, caseID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "upload exceeds size limit"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}
	ref, err := h.files.Put(ctx, files.Object{
		CaseID:      caseID,
		Name:        name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.logFailure(ctx, "store upload failed", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document"))
		return
	}

	c, err := h.cases.UploadDocument(ctx, caseID, models.NewDocument{
		Name:         name,
		Reference:    ref,
		DocumentType: strings.TrimSpace(r.FormValue("document_type")),
	}, requestcontext.ActorID(ctx))
	if err != nil {
		h.logFailure(ctx, "upload document failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusCreated, c)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.cases.ReviewDocument(ctx, chi.URLParam(r, "caseID"), chi.URLParam(r, "documentID"),
		req.toReview(), requestcontext.ActorID(ctx))
	if err != nil {
		h.logFailure(ctx, "review document failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusOK, c)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req TransitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.cases.Transition(ctx, chi.URLParam(r, "caseID"), models.Status(req.Status),
		requestcontext.ActorID(ctx), strings.TrimSpace(req.Comment))
	if err != nil {
		h.logFailure(ctx, "transition failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusOK, c)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.cases.Assign(ctx, chi.URLParam(r, "caseID"), req.Assignee, requestcontext.ActorID(ctx))
	if err != nil {
		h.logFailure(ctx, "assign case failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.respondCase(w, http.StatusOK, c)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req DecisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.decider.Decide(ctx, req.toDecision(chi.URLParam(r, "caseID"), requestcontext.ActorID(ctx)))
	if err != nil {
		h.logFailure(ctx, "review decision failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// logFailure logs unexpected failures at ERROR and client mistakes at INFO.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelInfo
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx),
		"error", err,
	)
}
