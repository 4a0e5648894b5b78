package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/event"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

type Store interface {
	store.Catalog
	store.Sessions
}

type Config struct {
	Store    Store
	EventBus *event.Bus
	// LateGrace is added to the test duration before a submission is flagged late.
	LateGrace time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store     Store
	eb        *event.Bus
	lateGrace time.Duration
	now       func() time.Time
	locks     *keyedMutex
}

func NewService(c Config) *Service {
	s := &Service{
		store:     c.Store,
		eb:        c.EventBus,
		lateGrace: c.LateGrace,
		now:       c.Now,
		locks:     newKeyedMutex(),
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// StartRequest represents a candidate starting a test.
type StartRequest struct {
	TestID string
	// Username identifies the candidate. It is not authenticated.
	Username string
}

// Start creates an active session for an existing test.
func (s *Service) Start(ctx context.Context, req StartRequest) (*domain.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.TestID == "" || req.Username == "" {
		return nil, errors.Validation("test_id and username are required")
	}

	if _, err := s.store.GetTest(ctx, req.TestID); err != nil {
		return nil, err
	}

	// Version 4 UUIDs carry 122 random bits from crypto/rand, so ids can't be guessed.
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	ss := &domain.Session{
		SessionID: id.String(),
		TestID:    req.TestID,
		Username:  req.Username,
		Started:   s.now().UTC(),
	}

	if err := s.store.CreateSession(ctx, ss); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "session: started", "session", ss.SessionID, "test", ss.TestID, "username", ss.Username)

	s.eb.Publish(ctx, domain.EventSessionStarted{Session: *ss})

	return ss, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// EndRequest finalizes a session with the scores computed for it.
type EndRequest struct {
	Session domain.Session
	Test    domain.Test
	Result  domain.ScoreResult
}

// End moves the session from active to finalized, exactly once. It is meant to be called by the
// scoring service only. A session already finalized, by an earlier or a concurrent call, yields a
// conflict and keeps its first scores.
func (s *Service) End(ctx context.Context, req EndRequest) (*domain.Session, error) {
	id := req.Session.SessionID

	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now().UTC()
	req.Result.Late = now.After(req.Test.Deadline(req.Session.Started, s.lateGrace))

	ss, err := s.store.FinalizeSession(ctx, id, now, req.Result)
	if err != nil {
		return nil, err
	}

	if ss.Late {
		slog.WarnContext(ctx, "session: submitted after the deadline",
			"session", id,
			"test", ss.TestID,
			"started", ss.Started,
			"ended", now,
		)
	}

	return ss, nil
}
