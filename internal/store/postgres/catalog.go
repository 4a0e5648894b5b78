package postgres

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
)

func (s *Store) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	const stmt = `SELECT company_id, name FROM companies ORDER BY name;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Company, error) {
		var c domain.Company
		err := r.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (s *Store) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	return getCompany(ctx, s.db, companyID)
}

func getCompany(ctx context.Context, q querier, companyID string) (*domain.Company, error) {
	const stmt = `SELECT company_id, name FROM companies WHERE company_id = $1;`

	var c domain.Company
	err := q.QueryRow(ctx, stmt, companyID).Scan(&c.ID, &c.Name)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("company not found: company=%s", companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}

	return &c, nil
}

func (s *Store) ListTests(ctx context.Context) ([]domain.Test, error) {
	const stmt = `
SELECT t.test_id, t.company_id, c.name, t.title, t.duration, t.description
FROM tests t
JOIN companies c ON c.company_id = t.company_id
ORDER BY t.test_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}

	return pgx.CollectRows(rows, scanTest)
}

func (s *Store) GetTest(ctx context.Context, testID string) (*domain.Test, error) {
	t, err := getTest(ctx, s.db, testID, false)
	if err != nil {
		return nil, err
	}

	t.Questions, err = s.listQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func getTest(ctx context.Context, q querier, testID string, lock bool) (*domain.Test, error) {
	stmt := `
SELECT t.test_id, t.company_id, c.name, t.title, t.duration, t.description
FROM tests t
JOIN companies c ON c.company_id = t.company_id
WHERE t.test_id = $1`
	if lock {
		stmt += ` FOR UPDATE OF t`
	}

	rows, err := q.Query(ctx, stmt, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, scanTest)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("test not found: test=%s", testID)
	}
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	return &t, nil
}

func scanTest(r pgx.CollectableRow) (domain.Test, error) {
	var t domain.Test
	err := r.Scan(&t.ID, &t.CompanyID, &t.CompanyName, &t.Title, &t.Duration, &t.Description)
	return t, err
}

func (s *Store) listQuestions(ctx context.Context, testID string) ([]domain.Question, error) {
	const (
		questionsStmt = `
SELECT id, qid, text, type, expected_answer, position
FROM questions
WHERE test_id = $1
ORDER BY position, id;`

		optionsStmt = `
SELECT o.question_id, o.option_id, o.text, o.is_correct
FROM options o
JOIN questions q ON q.id = o.question_id
WHERE q.test_id = $1
ORDER BY o.question_id, o.position, o.id;`
	)

	type row struct {
		id       int64
		question domain.Question
		expected string
	}

	rows, err := s.db.Query(ctx, questionsStmt, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	qs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (row, error) {
		var (
			qr   row
			kind string
		)
		if err := r.Scan(&qr.id, &qr.question.QuestionID, &qr.question.Text, &kind, &qr.expected, &qr.question.Position); err != nil {
			return row{}, err
		}

		k, err := domain.ParseKind(kind)
		if err != nil {
			return row{}, err
		}

		switch k {
		case domain.KindMCQ:
			qr.question.Body = domain.MCQ{}
		case domain.KindSubjective:
			qr.question.Body = domain.Subjective{ExpectedAnswer: qr.expected}
		}
		return qr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	rows, err = s.db.Query(ctx, optionsStmt, testID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	options := make(map[int64][]domain.Option)
	var (
		questionID int64
		o          domain.Option
	)
	_, err = pgx.ForEachRow(rows, []any{&questionID, &o.OptionID, &o.Text, &o.Correct}, func() error {
		options[questionID] = append(options[questionID], o)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	out := make([]domain.Question, 0, len(qs))
	for _, qr := range qs {
		if _, ok := qr.question.Body.(domain.MCQ); ok {
			qr.question.Body = domain.MCQ{Options: options[qr.id]}
		}
		out = append(out, qr.question)
	}

	return out, nil
}

func (s *Store) CountQuestions(ctx context.Context) (map[string]int, error) {
	const stmt = `SELECT test_id, COUNT(*) FROM questions GROUP BY test_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	counts := make(map[string]int)
	var (
		testID string
		n      int
	)
	if _, err := pgx.ForEachRow(rows, []any{&testID, &n}, func() error {
		counts[testID] = n
		return nil
	}); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	return counts, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
