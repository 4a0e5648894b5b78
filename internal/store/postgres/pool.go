package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

// draftOption is the JSONB shape of MCQ options in generated_questions.
type draftOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

const entryColumns = `id, topic, question_text, question_type, options, correct_answer, difficulty, generated_by, generated_at, is_selected, selected_for_test`

func (s *Store) InsertDrafts(ctx context.Context, entries []domain.PoolEntry) (err error) {
	const stmt = `
INSERT INTO generated_questions (topic, question_text, question_type, options, correct_answer, difficulty, generated_by, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id;`

	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	now := time.Now()
	for i := range entries {
		e := &entries[i]
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}

		kind, options, expected, err := encodeDraft(e.Draft)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, stmt, e.Topic, e.Draft.Text, kind, options, expected, e.Draft.Difficulty, e.CreatedBy, e.CreatedAt).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("insert generated question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ListUnselected(ctx context.Context, f store.PoolFilter) ([]domain.PoolEntry, error) {
	var (
		where = []string{"NOT is_selected"}
		args  []any
	)

	if f.Topic != "" {
		args = append(args, f.Topic)
		where = append(where, fmt.Sprintf("topic ILIKE $%d", len(args)))
	}
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		where = append(where, fmt.Sprintf("generated_by = $%d", len(args)))
	}

	stmt := `SELECT ` + entryColumns + ` FROM generated_questions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY generated_at DESC, id DESC;`

	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list generated questions: %w", err)
	}

	return pgx.CollectRows(rows, scanEntry)
}

func (s *Store) GetEntries(ctx context.Context, ids []int64) ([]domain.PoolEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+` FROM generated_questions WHERE id = ANY($1) ORDER BY id;`, ids)
	if err != nil {
		return nil, fmt.Errorf("get generated questions: %w", err)
	}

	return pgx.CollectRows(rows, scanEntry)
}

func (s *Store) DeleteUnselected(ctx context.Context, ids []int64) (int, error) {
	const stmt = `DELETE FROM generated_questions WHERE id = ANY($1) AND NOT is_selected;`

	tag, err := s.db.Exec(ctx, stmt, ids)
	if err != nil {
		return 0, fmt.Errorf("delete generated questions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (s *Store) PromoteDrafts(ctx context.Context, p domain.Promotion) (_ *domain.PromotionResult, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	// Row locks serialize concurrent promotions of the same entries: the loser waits,
	// then reads is_selected = true and fails with a conflict.
	rows, err := tx.Query(ctx, `SELECT `+entryColumns+` FROM generated_questions WHERE id = ANY($1) ORDER BY id FOR UPDATE;`, p.EntryIDs)
	if err != nil {
		return nil, fmt.Errorf("lock generated questions: %w", err)
	}

	locked, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("lock generated questions: %w", err)
	}

	byID := make(map[int64]domain.PoolEntry, len(locked))
	for _, e := range locked {
		byID[e.ID] = e
	}

	entries := make([]domain.PoolEntry, 0, len(p.EntryIDs))
	for _, id := range p.EntryIDs {
		e, ok := byID[id]
		if !ok {
			return nil, errors.NotFound("generated question not found: id=%d", id)
		}
		if e.Selected {
			return nil, errors.Conflict("generated question already selected: id=%d", id)
		}
		entries = append(entries, e)
	}

	t, err := s.promotionTarget(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	var existing int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE test_id = $1;`, t.ID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	questions, err := insertQuestions(ctx, tx, t.ID, existing, entries)
	if err != nil {
		return nil, err
	}

	const markStmt = `UPDATE generated_questions SET is_selected = TRUE, selected_for_test = $2 WHERE id = ANY($1);`
	if _, err := tx.Exec(ctx, markStmt, p.EntryIDs, t.ID); err != nil {
		return nil, fmt.Errorf("mark generated questions selected: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.PromotionResult{Test: *t, Questions: questions}, nil
}

// promotionTarget locks the existing destination test or creates the new one.
func (s *Store) promotionTarget(ctx context.Context, tx pgx.Tx, p domain.Promotion) (*domain.Test, error) {
	if p.NewTest == nil {
		return getTest(ctx, tx, p.TestID, true)
	}

	c, err := getCompany(ctx, tx, p.NewTest.CompanyID)
	if err != nil {
		return nil, err
	}

	t := &domain.Test{
		ID:          domain.NewTestID(c.ID),
		CompanyID:   c.ID,
		CompanyName: c.Name,
		Title:       p.NewTest.Title,
		Duration:    p.NewTest.Duration,
	}

	const stmt = `INSERT INTO tests (test_id, company_id, title, duration) VALUES ($1, $2, $3, $4);`
	if _, err := tx.Exec(ctx, stmt, t.ID, t.CompanyID, t.Title, t.Duration); err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}

	return t, nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, testID string, existing int, entries []domain.PoolEntry) ([]domain.Question, error) {
	const (
		questionStmt = `
INSERT INTO questions (test_id, qid, text, type, expected_answer, position)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id;`

		optionStmt = `INSERT INTO options (question_id, option_id, text, is_correct, position) VALUES ($1, $2, $3, $4, $5);`
	)

	var (
		batch     pgx.Batch
		questions = make([]domain.Question, 0, len(entries))
	)

	for i, e := range entries {
		q := domain.PromoteDraft(e.Draft, existing+i+1)

		var expected string
		if sub, ok := q.Body.(domain.Subjective); ok {
			expected = sub.ExpectedAnswer
		}

		var id int64
		if err := tx.QueryRow(ctx, questionStmt, testID, q.QuestionID, q.Text, string(q.Kind()), expected, q.Position).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}

		if mcq, ok := q.Body.(domain.MCQ); ok {
			for j, o := range mcq.Options {
				batch.Queue(optionStmt, id, o.OptionID, o.Text, o.Correct, j+1)
			}
		}

		questions = append(questions, q)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
			return nil, fmt.Errorf("insert options: %w", err)
		}
	}

	return questions, nil
}

func encodeDraft(d domain.Draft) (kind string, options []byte, expected string, err error) {
	opts := []draftOption{}

	switch b := d.Body.(type) {
	case domain.MCQ:
		for _, o := range b.Options {
			opts = append(opts, draftOption{Text: o.Text, IsCorrect: o.Correct})
		}
	case domain.Subjective:
		expected = b.ExpectedAnswer
	default:
		return "", nil, "", fmt.Errorf("encode draft: unknown body %T", d.Body)
	}

	options, err = json.Marshal(opts)
	if err != nil {
		return "", nil, "", fmt.Errorf("encode draft options: %w", err)
	}

	return string(d.Body.Kind()), options, expected, nil
}

func scanEntry(r pgx.CollectableRow) (domain.PoolEntry, error) {
	var (
		e        domain.PoolEntry
		kind     string
		options  []byte
		expected string
	)

	if err := r.Scan(&e.ID, &e.Topic, &e.Draft.Text, &kind, &options, &expected, &e.Draft.Difficulty,
		&e.CreatedBy, &e.CreatedAt, &e.Selected, &e.SelectedForTest); err != nil {
		return domain.PoolEntry{}, err
	}

	k, err := domain.ParseKind(kind)
	if err != nil {
		return domain.PoolEntry{}, err
	}

	switch k {
	case domain.KindMCQ:
		var opts []draftOption
		if err := json.Unmarshal(options, &opts); err != nil {
			return domain.PoolEntry{}, fmt.Errorf("decode draft options: id=%d: %w", e.ID, err)
		}

		mcq := domain.MCQ{Options: make([]domain.Option, 0, len(opts))}
		for _, o := range opts {
			mcq.Options = append(mcq.Options, domain.Option{Text: o.Text, Correct: o.IsCorrect})
		}
		e.Draft.Body = mcq
	case domain.KindSubjective:
		e.Draft.Body = domain.Subjective{ExpectedAnswer: expected}
	}

	return e, nil
}
