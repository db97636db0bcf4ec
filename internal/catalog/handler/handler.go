package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"casedesk/internal/catalog"
	"casedesk/pkg/platform/httputil"
	"casedesk/pkg/requestcontext"
)

// Catalog is the read-only lookup the handler serves.
type Catalog interface {
	ListTypes() []catalog.CaseTypeDefinition
	GetType(id string) (catalog.CaseTypeDefinition, error)
}

// Handler exposes the case type catalog.
type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(c Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: c, logger: logger}
}

// Register mounts the catalog routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/catalog/types", h.handleList)
	r.Get("/catalog/types/{typeID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"types": h.catalog.ListTypes()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	def, err := h.catalog.GetType(chi.URLParam(r, "typeID"))
	if err != nil {
		h.logger.InfoContext(r.Context(), "case type lookup failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"type_id", chi.URLParam(r, "typeID"),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, def)
}
