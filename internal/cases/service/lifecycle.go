package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"casedesk/internal/cases/models"
)

// TerminalPolicy decides whether a case may leave approved or rejected.
type TerminalPolicy string

const (
	// PolicyEnforce refuses any transition out of a terminal status.
	PolicyEnforce TerminalPolicy = "enforce"
	// PolicyAllow applies the transition and logs it at WARN with reopened_from.
	PolicyAllow TerminalPolicy = "allow"
)

// ParseTerminalPolicy accepts "enforce" or "allow"; empty means enforce.
func ParseTerminalPolicy(raw string) (TerminalPolicy, error) {
	switch TerminalPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyEnforce:
		return PolicyEnforce, nil
	case PolicyAllow:
		return PolicyAllow, nil
	}
	return "", fmt.Errorf("unknown terminal policy %q", raw)
}

// Transition moves the case to newStatus. Any source status may reach any
// target; only terminal statuses are guarded, per the configured policy.
// Every call appends a history entry, including one to the current status.
func (s *Service) Transition(ctx context.Context, caseID string, newStatus models.Status, actorID, comment string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "Transition", caseID)
	defer finish(&err)

	if !newStatus.Valid() {
		return nil, invalidStatus(newStatus)
	}
	c, err = s.mutate(ctx, caseID, func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error) {
		if c.IsFinalized() && s.policy != PolicyAllow {
			return nil, caseFinalized(c)
		}
		return s.applyPatch(ctx, c, models.Patch{Status: &newStatus}, actorID, comment, now)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "case_transitioned",
		"case_id", caseID,
		"status", string(newStatus),
		"actor_id", actorID,
	)
	return c, nil
}
