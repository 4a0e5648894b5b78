package score

import (
	"context"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Grader scores one subjective answer on a 0-100 scale.
type Grader interface {
	Grade(ctx context.Context, q domain.Question, answer string) decimal.Decimal
}

// BaselineGrader gives a fixed score to any answer of at least MinLength characters and 0 otherwise.
// It is a placeholder for content aware grading.
type BaselineGrader struct {
	MinLength int
	Score     decimal.Decimal
}

func NewBaselineGrader() BaselineGrader {
	return BaselineGrader{MinLength: 3, Score: decimal.NewFromInt(70)}
}

func (g BaselineGrader) Grade(_ context.Context, _ domain.Question, answer string) decimal.Decimal {
	if utf8.RuneCountInString(answer) < g.MinLength {
		return decimal.Zero
	}
	return g.Score
}

// Engine computes the scores of a submission. It has no side effects.
type Engine struct {
	grader Grader
}

func NewEngine(g Grader) *Engine {
	if g == nil {
		g = NewBaselineGrader()
	}
	return &Engine{grader: g}
}

// Score grades answers, keyed by question id, against the test.
//
// The mcq score is the percentage of mcq questions answered with the id of their correct option,
// rounded to 2 decimals, and 0 when the test has no mcq question. A question without a correct
// option still counts in the total. Every subjective question gets a score, unanswered ones 0.
func (e *Engine) Score(ctx context.Context, t domain.Test, answers map[string]string) domain.ScoreResult {
	var (
		total, correct int64
		subjective     = make(map[string]decimal.Decimal)
	)

	for _, q := range t.Questions {
		switch b := q.Body.(type) {
		case domain.MCQ:
			total++
			o, ok := b.CorrectOption()
			if !ok {
				continue
			}
			if a, answered := answers[q.QuestionID]; answered && a == o.OptionID {
				correct++
			}
		case domain.Subjective:
			subjective[q.QuestionID] = e.grader.Grade(ctx, q, answers[q.QuestionID])
		}
	}

	mcq := decimal.Zero
	if total > 0 {
		mcq = decimal.NewFromInt(correct).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2)
	}

	return domain.ScoreResult{MCQ: mcq, Subjective: subjective}
}
