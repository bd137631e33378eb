package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"couplecoach/backend/go/internal/memory/store"
	"couplecoach/backend/go/internal/models"
	"couplecoach/backend/go/pkg/logger"
)

const publishTimeout = 3 * time.Second

// EventPublisher publishes memory change events.
type EventPublisher interface {
	PublishMemoryEvent(ctx context.Context, event *models.MemoryEvent) error
}

// EraseResult describes what an erase request reset.
type EraseResult struct {
	Scope          Scope
	CoupleID       string // "" when the user has no couple or the lookup failed
	ConsentRevoked bool
}

// EraseService resets memory structures by scope.
type EraseService struct {
	store     store.Store
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewEraseService creates a new EraseService. publisher may be nil.
func NewEraseService(s store.Store, publisher EventPublisher, appLogger *logger.Logger) *EraseService {
	if appLogger == nil {
		appLogger = logger.Nop()
	}
	return &EraseService{
		store:     s,
		publisher: publisher,
		logger:    appLogger,
		now:       time.Now,
	}
}

type eraseStep struct {
	op  string
	run func() error
}

// EraseMemory resets the memory selected by scope for userID.
//
// personal resets the user's PersonalContext. shared resets the couple's
// SharedContext, which the partner sees as well; without a couple it is a
// successful no-op. all does both and revokes the user's memory consent.
// Every write is attempted even if an earlier one failed, and nothing is
// rolled back; any failure is returned as *UpstreamFailure.
func (s *EraseService) EraseMemory(ctx context.Context, userID string, scope Scope) (*EraseResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	log := logger.FromContext(ctx, s.logger).WithUser(userID)

	result := &EraseResult{Scope: scope}
	if scope.includesShared() {
		coupleID, err := s.store.GetCoupleID(ctx, userID)
		if err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_degraded", Op: "couple_lookup"}).
				Warn("couple lookup failed, erasing as if the user had no couple")
		} else {
			result.CoupleID = coupleID
		}
	}

	var steps []eraseStep
	if scope.includesPersonal() {
		steps = append(steps, eraseStep{"reset_personal_context", func() error {
			return s.store.ResetPersonalContext(ctx, userID)
		}})
	}
	if scope.includesShared() && result.CoupleID != "" {
		steps = append(steps, eraseStep{"reset_shared_context", func() error {
			return s.store.ResetSharedContext(ctx, result.CoupleID)
		}})
	}
	if scope == ScopeAll {
		steps = append(steps, eraseStep{"revoke_consent", func() error {
			return s.store.RevokeConsent(ctx, userID)
		}})
	}

	var failedOps []string
	var errs []error
	for _, step := range steps {
		if err := step.run(); err != nil {
			failedOps = append(failedOps, step.op)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		failure := &UpstreamFailure{Op: strings.Join(failedOps, ","), Err: errors.Join(errs...)}
		log.WithError(models.ErrorInfo{Message: failure.Error(), Type: "upstream_failure", Op: failure.Op}).
			Error("memory erase failed")
		return nil, failure
	}

	result.ConsentRevoked = scope == ScopeAll
	log.WithPayload(map[string]interface{}{
		"scope":           string(scope),
		"couple_id":       result.CoupleID,
		"consent_revoked": result.ConsentRevoked,
	}).Info("memory erased")

	s.publish(ctx, log, userID, result)
	return result, nil
}

// publish is best effort; the erase has already been applied.
func (s *EraseService) publish(ctx context.Context, log *logger.Logger, userID string, result *EraseResult) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	event := &models.MemoryEvent{
		Type:           models.MemoryEventErased,
		UserID:         userID,
		CoupleID:       result.CoupleID,
		Scope:          string(result.Scope),
		ConsentRevoked: result.ConsentRevoked,
		OccurredAt:     s.now().UTC(),
	}
	if err := s.publisher.PublishMemoryEvent(ctx, event); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Op: "publish_memory_event"}).
			Warn("failed to publish memory event")
	}
}
