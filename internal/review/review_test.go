package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"casedesk/internal/cases/events"
	"casedesk/internal/cases/models"
	caseservice "casedesk/internal/cases/service"
	casestore "casedesk/internal/cases/store"
	nmodels "casedesk/internal/notification/models"
	notificationservice "casedesk/internal/notification/service"
	notificationstore "casedesk/internal/notification/store"
	dErrors "casedesk/pkg/domain-errors"
)

type ReviewSuite struct {
	suite.Suite
	ctx           context.Context
	cases         *caseservice.Service
	notifications *notificationservice.Service
	orchestrator  *Orchestrator
}

func TestReviewSuite(t *testing.T) {
	suite.Run(t, new(ReviewSuite))
}

func (s *ReviewSuite) SetupTest() {
	s.ctx = context.Background()
	s.cases = caseservice.New(casestore.NewInMemory())
	s.notifications = notificationservice.New(notificationstore.NewInMemory())
	s.orchestrator = New(s.cases, s.notifications)
}

func (s *ReviewSuite) caseWithDocument() *models.Case {
	c, err := s.cases.Create(s.ctx, "u1", "Permit", "")
	s.Require().NoError(err)
	c, err = s.cases.UploadDocument(s.ctx, c.ID, models.NewDocument{Name: "form.pdf", Reference: "ref"}, "u1")
	s.Require().NoError(err)
	return c
}

func (s *ReviewSuite) ownerNotifications() []*nmodels.Notification {
	list, err := s.notifications.ListByUser(s.ctx, "u1")
	s.Require().NoError(err)
	return list
}

func (s *ReviewSuite) TestApproveNotifiesTwice() {
	c := s.caseWithDocument()

	out, err := s.orchestrator.Decide(s.ctx, Decision{
		CaseID: c.ID,
		Reviews: []models.DocumentReview{
			{DocumentID: c.Documents[0].ID, Review: models.Review{Status: models.DocumentApproved}},
		},
		NewStatus:  models.StatusApproved,
		ReviewerID: "r1",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, out.Case.Status)
	s.Len(out.Case.History, 4)
	s.Require().Len(out.Notifications, 2)
	s.Equal("Case status updated", out.Notifications[0].Title)
	s.Equal("Your case status has been updated to approved", out.Notifications[0].Message)
	s.Equal("Case approved", out.Notifications[1].Title)
	s.Equal(c.ID, out.Notifications[1].CaseID)
	s.Len(s.ownerNotifications(), 2)
}

func (s *ReviewSuite) TestCommentWithoutTransition() {
	c := s.caseWithDocument()

	out, err := s.orchestrator.Decide(s.ctx, Decision{
		CaseID:     c.ID,
		NewStatus:  c.Status,
		Comment:    "please upload a clearer scan",
		ReviewerID: "r1",
	})
	s.Require().NoError(err)
	s.Equal(c.Status, out.Case.Status)
	s.Require().Len(out.Case.History, len(c.History)+1)
	last := out.Case.History[len(out.Case.History)-1]
	s.Equal("please upload a clearer scan", last.Comment)
	s.Equal("r1", last.ActorID)
	s.Equal(string(c.Status), last.Status)
	s.Require().Len(out.Notifications, 1)
	s.Equal("please upload a clearer scan", out.Notifications[0].Message)
}

func (s *ReviewSuite) TestCommentWithEmptyStatusKeepsCurrent() {
	c := s.caseWithDocument()

	out, err := s.orchestrator.Decide(s.ctx, Decision{
		CaseID:     c.ID,
		Comment:    "looks fine so far",
		ReviewerID: "r1",
	})
	s.Require().NoError(err)
	s.Equal(models.StatusDocumentsUploaded, out.Case.Status)
	s.Require().Len(out.Case.History, len(c.History)+1)
	s.Equal("looks fine so far", out.Case.History[len(out.Case.History)-1].Comment)
	s.Require().Len(out.Notifications, 1)
}

func (s *ReviewSuite) TestNothingToSay() {
	c := s.caseWithDocument()

	out, err := s.orchestrator.Decide(s.ctx, Decision{CaseID: c.ID, NewStatus: c.Status, ReviewerID: "r1"})
	s.Require().NoError(err)
	s.Empty(out.Notifications)
	s.Empty(s.ownerNotifications())
}

func (s *ReviewSuite) TestStatusWordsAreSpaced() {
	c := s.caseWithDocument()

	out, err := s.orchestrator.Decide(s.ctx, Decision{CaseID: c.ID, NewStatus: models.StatusDocumentsRequired, ReviewerID: "r1"})
	s.Require().NoError(err)
	s.Require().Len(out.Notifications, 1)
	s.Equal("Your case status has been updated to documents required", out.Notifications[0].Message)
}

func (s *ReviewSuite) TestFailedBatchSendsNothing() {
	c := s.caseWithDocument()

	_, err := s.orchestrator.Decide(s.ctx, Decision{
		CaseID: c.ID,
		Reviews: []models.DocumentReview{
			{DocumentID: "missing", Review: models.Review{Status: models.DocumentRejected}},
		},
		NewStatus:  models.StatusRejected,
		ReviewerID: "r1",
	})
	s.Require().ErrorIs(err, models.ErrDocumentNotFound)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	stored, err := s.cases.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDocumentsUploaded, stored.Status)
	s.Empty(s.ownerNotifications())
}

func (s *ReviewSuite) TestDirectNotifyDisabled() {
	o := New(s.cases, s.notifications, WithDirectNotify(false))
	c := s.caseWithDocument()

	out, err := o.Decide(s.ctx, Decision{CaseID: c.ID, NewStatus: models.StatusInReview, ReviewerID: "r1"})
	s.Require().NoError(err)
	s.Equal(models.StatusInReview, out.Case.Status)
	s.Empty(out.Notifications)
}

func (s *ReviewSuite) TestEngineAloneNeverNotifies() {
	c := s.caseWithDocument()
	_, err := s.cases.Transition(s.ctx, c.ID, models.StatusApproved, "r1", "")
	s.Require().NoError(err)
	s.Empty(s.ownerNotifications())
}

func (s *ReviewSuite) TestListenerNotifiesOnStaffTransitions() {
	bus := events.NewBus(16)
	cases := caseservice.New(casestore.NewInMemory(), caseservice.WithPublisher(bus))
	listener := NewListener(s.notifications)

	c, err := cases.Create(s.ctx, "u1", "Permit", "")
	s.Require().NoError(err)
	_, err = cases.UploadDocument(s.ctx, c.ID, models.NewDocument{Name: "form.pdf"}, "u1")
	s.Require().NoError(err)
	_, err = cases.Transition(s.ctx, c.ID, models.StatusApproved, "r1", "")
	s.Require().NoError(err)

	for len(bus.Events()) > 0 {
		s.Require().NoError(listener.Handle(s.ctx, <-bus.Events()))
	}

	list := s.ownerNotifications()
	s.Require().Len(list, 2, "owner-initiated upload transition is not announced")
	titles := []string{list[0].Title, list[1].Title}
	s.ElementsMatch([]string{"Case status updated", "Case approved"}, titles)
}

func (s *ReviewSuite) TestListenerAndDecideSendTheSameMessage() {
	bus := events.NewBus(16)
	cases := caseservice.New(casestore.NewInMemory(), caseservice.WithPublisher(bus))
	listener := NewListener(s.notifications)
	direct := notificationservice.New(notificationstore.NewInMemory())

	c, err := cases.Create(s.ctx, "u1", "Permit", "")
	s.Require().NoError(err)
	_, err = cases.UploadDocument(s.ctx, c.ID, models.NewDocument{Name: "form.pdf"}, "u1")
	s.Require().NoError(err)
	for len(bus.Events()) > 0 {
		<-bus.Events()
	}

	out, err := New(cases, direct).Decide(s.ctx, Decision{
		CaseID:     c.ID,
		NewStatus:  models.StatusDocumentsRequired,
		Comment:    "the scan is unreadable",
		ReviewerID: "r1",
	})
	s.Require().NoError(err)
	s.Require().Len(out.Notifications, 1)

	for len(bus.Events()) > 0 {
		s.Require().NoError(listener.Handle(s.ctx, <-bus.Events()))
	}
	list := s.ownerNotifications()
	s.Require().Len(list, 1)
	s.Equal(out.Notifications[0].Message, list[0].Message)
	s.Equal("the scan is unreadable", list[0].Message)
}

func (s *ReviewSuite) TestListenerSkipsApprovalExtraOnSameStatus() {
	listener := NewListener(s.notifications)

	err := listener.Handle(s.ctx, models.LifecycleEvent{
		Kind:    models.EventStatusChanged,
		CaseID:  "c1",
		OwnerID: "u1",
		ActorID: "admin",
		From:    models.StatusApproved,
		To:      models.StatusApproved,
		Comment: "license reissued",
	})
	s.Require().NoError(err)

	list := s.ownerNotifications()
	s.Require().Len(list, 1)
	s.Equal("Case status updated", list[0].Title)
	s.Equal("license reissued", list[0].Message)
}
