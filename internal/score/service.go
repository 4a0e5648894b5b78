package score

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/event"
	"github.com/Maahivarma/Exam-portal/internal/session"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

type Config struct {
	EventBus *event.Bus
	Catalog  store.Catalog
	Session  *session.Service
	Engine   *Engine
}

type Service struct {
	eb      *event.Bus
	catalog store.Catalog
	session *session.Service
	engine  *Engine
}

func NewService(c Config) *Service {
	s := &Service{
		eb:      c.EventBus,
		catalog: c.Catalog,
		session: c.Session,
		engine:  c.Engine,
	}
	if s.engine == nil {
		s.engine = NewEngine(nil)
	}

	return s
}

type SubmitRequest struct {
	SessionID string
	// Answers maps question ids to the chosen option id (mcq) or the answer text (subjective).
	Answers map[string]string
}

type SubmitResponse struct {
	SessionID  string
	MCQ        decimal.Decimal
	Subjective map[string]decimal.Decimal
	Late       bool
}

// Submit scores the answers and finalizes the session. It succeeds once per session;
// later or concurrent submissions fail with a conflict and leave the stored scores untouched.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.SessionID == "" {
		return nil, errors.Validation("session_id is required")
	}

	ss, err := s.session.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if ss.State() == domain.SessionFinalized {
		return nil, errors.Conflict("session already submitted: session=%s", req.SessionID)
	}

	t, err := s.catalog.GetTest(ctx, ss.TestID)
	if err != nil {
		return nil, err
	}

	result := s.engine.Score(ctx, *t, req.Answers)

	final, err := s.session.End(ctx, session.EndRequest{
		Session: *ss,
		Test:    *t,
		Result:  result,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "score: session finalized",
		"session", final.SessionID,
		"test", final.TestID,
		"mcq", final.ScoreMCQ,
		"late", final.Late,
	)

	s.eb.Publish(ctx, domain.EventSessionFinalized{
		Session: *final,
		Test:    *t,
	})

	return &SubmitResponse{
		SessionID:  final.SessionID,
		MCQ:        result.MCQ,
		Subjective: result.Subjective,
		Late:       final.Late,
	}, nil
}
