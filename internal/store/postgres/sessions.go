package postgres

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
)

const sessionColumns = `session_id::text, test_id, username, started, ended, score_mcq, score_subjective, late`

func (s *Store) CreateSession(ctx context.Context, ss *domain.Session) error {
	const stmt = `INSERT INTO sessions (session_id, test_id, username, started) VALUES ($1, $2, $3, $4);`

	if _, err := s.db.Exec(ctx, stmt, ss.SessionID, ss.TestID, ss.Username, ss.Started); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	// Anything that isn't a UUID can't name a session, and postgres would reject it as a syntax error.
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, errors.NotFound("session not found: session=%s", sessionID)
	}

	rows, err := s.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1;`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	ss, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("session not found: session=%s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &ss, nil
}

func (s *Store) FinalizeSession(ctx context.Context, sessionID string, ended time.Time, r domain.ScoreResult) (*domain.Session, error) {
	const stmt = `
UPDATE sessions
SET ended = $2, score_mcq = $3, score_subjective = $4, late = $5
WHERE session_id = $1 AND ended IS NULL
RETURNING ` + sessionColumns + `;`

	// Check existence first so a malformed or unknown id is reported as not found rather than a conflict.
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	subjective := r.Subjective
	if subjective == nil {
		subjective = map[string]decimal.Decimal{}
	}

	rows, err := s.db.Query(ctx, stmt, sessionID, ended, r.MCQ, subjective, r.Late)
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	ss, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Conflict("session already submitted: session=%s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	return &ss, nil
}

func (s *Store) ListSessions(ctx context.Context, testID string) ([]domain.Session, error) {
	rows, err := s.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE test_id = $1 ORDER BY started DESC;`, testID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return pgx.CollectRows(rows, scanSession)
}

func scanSession(r pgx.CollectableRow) (domain.Session, error) {
	var (
		ss  domain.Session
		mcq decimal.NullDecimal
	)

	if err := r.Scan(&ss.SessionID, &ss.TestID, &ss.Username, &ss.Started, &ss.Ended, &mcq, &ss.ScoreSubjective, &ss.Late); err != nil {
		return domain.Session{}, err
	}

	if mcq.Valid {
		ss.ScoreMCQ = &mcq.Decimal
	}

	return ss, nil
}

func (s *Store) AppendProctorEvent(ctx context.Context, e *domain.ProctorEvent) error {
	const stmt = `INSERT INTO proctor_events (session_id, event_type, create_time) VALUES ($1, $2, $3) RETURNING id;`

	if err := s.db.QueryRow(ctx, stmt, e.SessionID, e.Type, e.At).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert proctor event: %w", err)
	}

	return nil
}

func (s *Store) ListProctorEvents(ctx context.Context, sessionID string) ([]domain.ProctorEvent, error) {
	const stmt = `
SELECT id, session_id::text, event_type, create_time
FROM proctor_events
WHERE session_id = $1
ORDER BY id;`

	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, stmt, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list proctor events: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ProctorEvent, error) {
		var e domain.ProctorEvent
		err := r.Scan(&e.ID, &e.SessionID, &e.Type, &e.At)
		return e, err
	})
}

func (s *Store) AppendSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	const stmt = `
INSERT INTO snapshots (session_id, object_key, content_type, size, create_time)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`

	if err := s.db.QueryRow(ctx, stmt, snap.SessionID, snap.Key, snap.ContentType, snap.Size, snap.At).Scan(&snap.ID); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	return nil
}
