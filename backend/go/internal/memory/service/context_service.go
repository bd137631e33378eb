package service

import (
	"context"
	"strings"
	"time"

	"couplecoach/backend/go/internal/memory/store"
	"couplecoach/backend/go/internal/models"
	"couplecoach/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ContextResult is the aggregated memory context for one user.
type ContextResult struct {
	Context      string
	SessionCount int // eligible sessions found, before truncation
	LoadedCount  int // sessions rendered into Context
}

// ContextService builds the cross-session context fed into the model prompt.
type ContextService struct {
	store  store.Store
	logger *logger.Logger
	loc    *time.Location
}

// NewContextService creates a new ContextService. loc is the time zone used for
// session dates; nil means UTC.
func NewContextService(s store.Store, appLogger *logger.Logger, loc *time.Location) *ContextService {
	if loc == nil {
		loc = time.UTC
	}
	if appLogger == nil {
		appLogger = logger.Nop()
	}
	return &ContextService{store: s, logger: appLogger, loc: loc}
}

// BuildContext aggregates the user's sessions and, when coupleID is set, the
// couple's sessions into one bounded context. Read failures are logged and
// treated as empty results; the only error is ErrMissingUserID.
func (s *ContextService) BuildContext(ctx context.Context, userID, coupleID string) (*ContextResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	log := logger.FromContext(ctx, s.logger)

	// The two reads are independent; MergeSessions makes the result order-free.
	var userSessions, coupleSessions []models.SessionRecord
	var g errgroup.Group
	g.Go(func() error {
		records, err := s.store.ListUserSessions(ctx, userID)
		if err != nil {
			s.logDegraded(log, "user_sessions", err)
			return nil
		}
		userSessions = records
		return nil
	})
	if coupleID != "" {
		g.Go(func() error {
			records, err := s.store.ListCoupleSessions(ctx, coupleID)
			if err != nil {
				s.logDegraded(log, "couple_sessions", err)
				return nil
			}
			coupleSessions = records
			return nil
		})
	}
	_ = g.Wait()

	sessions := MergeSessions(userSessions, coupleSessions)
	if len(sessions) == 0 {
		return &ContextResult{}, nil
	}

	loaded := sessions
	if len(loaded) > MaxContextSessions {
		loaded = loaded[:MaxContextSessions]
	}
	blocks := make([]string, 0, len(loaded))
	for _, r := range loaded {
		blocks = append(blocks, RenderBlock(r, s.loc))
	}

	log.WithPayload(map[string]interface{}{
		"session_count": len(sessions),
		"loaded_count":  len(loaded),
	}).Debug("memory context built")

	return &ContextResult{
		Context:      WrapContext(blocks),
		SessionCount: len(sessions),
		LoadedCount:  len(loaded),
	}, nil
}

func (s *ContextService) logDegraded(log *logger.Logger, query string, err error) {
	log.WithError(models.ErrorInfo{Message: err.Error(), Type: "upstream_degraded", Op: query}).
		Warn("session fetch failed, continuing without it")
}
