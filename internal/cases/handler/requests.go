package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"casedesk/internal/cases/models"
	"casedesk/internal/review"
	dErrors "casedesk/pkg/domain-errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("case_status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("document_status", func(fl validator.FieldLevel) bool {
		return models.DocumentStatus(fl.Field().String()).Valid()
	})
}

// validationError turns the first validator failure into a coded error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
}

type CreateCaseRequest struct {
	TypeID      string `json:"type_id" validate:"required,max=64"`
	Description string `json:"description" validate:"max=2000"`
}

func (r *CreateCaseRequest) Normalize() {
	r.TypeID = strings.TrimSpace(r.TypeID)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateCaseRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

type TransitionRequest struct {
	Status  string `json:"status" validate:"required,case_status"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (r *TransitionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

type ReviewRequest struct {
	Status  string `json:"status" validate:"required,document_status"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (r *ReviewRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

func (r *ReviewRequest) toReview() models.Review {
	return models.Review{Status: models.DocumentStatus(r.Status), Comment: strings.TrimSpace(r.Comment)}
}

type AssignRequest struct {
	Assignee string `json:"assignee" validate:"max=128"`
}

func (r *AssignRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

type DocumentReviewRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	Status     string `json:"status" validate:"required,document_status"`
	Comment    string `json:"comment" validate:"max=2000"`
}

// DecisionRequest mirrors the reviewer screen: per-document verdicts, an
// optional new case status and a general comment.
type DecisionRequest struct {
	Reviews []DocumentReviewRequest `json:"reviews" validate:"max=100,dive"`
	Status  string                  `json:"status" validate:"omitempty,case_status"`
	Comment string                  `json:"comment" validate:"max=2000"`
}

func (r *DecisionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

func (r *DecisionRequest) toDecision(caseID, reviewerID string) review.Decision {
	d := review.Decision{
		CaseID:     caseID,
		NewStatus:  models.Status(r.Status),
		Comment:    strings.TrimSpace(r.Comment),
		ReviewerID: reviewerID,
	}
	for _, rv := range r.Reviews {
		d.Reviews = append(d.Reviews, models.DocumentReview{
			DocumentID: rv.DocumentID,
			Review:     models.Review{Status: models.DocumentStatus(rv.Status), Comment: strings.TrimSpace(rv.Comment)},
		})
	}
	return d
}
