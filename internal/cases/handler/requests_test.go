package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casedesk/internal/cases/models"
	dErrors "casedesk/pkg/domain-errors"
)

func TestCreateCaseRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateCaseRequest
		wantErr string
	}{
		{name: "valid", req: CreateCaseRequest{TypeID: " 1 ", Description: "  school  "}},
		{name: "blank type", req: CreateCaseRequest{TypeID: "   "}, wantErr: "type_id failed required"},
		{name: "long description", req: CreateCaseRequest{TypeID: "1", Description: strings.Repeat("x", 2001)}, wantErr: "description failed max"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "1", tt.req.TypeID)
				assert.Equal(t, "school", tt.req.Description)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStatusValidation(t *testing.T) {
	assert.NoError(t, (&TransitionRequest{Status: "in_review"}).Validate())
	assert.Error(t, (&TransitionRequest{Status: "archived"}).Validate())
	assert.Error(t, (&TransitionRequest{}).Validate())

	assert.NoError(t, (&ReviewRequest{Status: "rejected"}).Validate())
	assert.Error(t, (&ReviewRequest{Status: "in_review"}).Validate())
}

func TestDecisionRequest(t *testing.T) {
	t.Run("status is optional", func(t *testing.T) {
		req := DecisionRequest{Comment: "see notes"}
		require.NoError(t, req.Validate())
		d := req.toDecision("c1", "r1")
		assert.Empty(t, d.NewStatus)
		assert.Equal(t, "see notes", d.Comment)
	})

	t.Run("nested reviews are validated", func(t *testing.T) {
		req := DecisionRequest{Reviews: []DocumentReviewRequest{{DocumentID: "d1", Status: "lost"}}}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reviews[0].status")
	})

	t.Run("maps reviews in order", func(t *testing.T) {
		req := DecisionRequest{
			Reviews: []DocumentReviewRequest{
				{DocumentID: "d1", Status: "approved"},
				{DocumentID: "d2", Status: "rejected", Comment: " blurry "},
			},
			Status: "documents_required",
		}
		require.NoError(t, req.Validate())
		d := req.toDecision("c1", "r1")
		require.Len(t, d.Reviews, 2)
		assert.Equal(t, "d2", d.Reviews[1].DocumentID)
		assert.Equal(t, models.DocumentRejected, d.Reviews[1].Status)
		assert.Equal(t, "blurry", d.Reviews[1].Comment)
		assert.Equal(t, models.StatusDocumentsRequired, d.NewStatus)
		assert.Equal(t, "r1", d.ReviewerID)
	})
}
