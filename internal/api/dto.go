package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

type (
	Company struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Tests []Test `json:"tests"`
	}

	Test struct {
		TestID      string     `json:"test_id"`
		Title       string     `json:"title"`
		Company     string     `json:"company,omitempty"`
		Duration    int        `json:"duration"`
		Description string     `json:"description"`
		Questions   []Question `json:"questions,omitempty"`
	}

	Question struct {
		QID     string   `json:"qid"`
		Text    string   `json:"text"`
		Type    string   `json:"type"`
		Options []Option `json:"options"`
	}

	// Option never carries correctness: tests are served to candidates.
	Option struct {
		OptionID string `json:"option_id"`
		Text     string `json:"text"`
	}

	DraftOption struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	}

	GeneratedQuestion struct {
		ID            int64         `json:"id"`
		Topic         string        `json:"topic"`
		QuestionText  string        `json:"question_text"`
		Type          string        `json:"type"`
		Options       []DraftOption `json:"options"`
		CorrectAnswer string        `json:"correct_answer"`
		Difficulty    string        `json:"difficulty"`
		GeneratedBy   string        `json:"generated_by,omitempty"`
		GeneratedAt   time.Time     `json:"generated_at"`
	}

	PromotedQuestion struct {
		QID  string `json:"qid"`
		Text string `json:"text"`
		Type string `json:"type"`
	}
)

func toTest(t domain.Test) Test {
	out := Test{
		TestID:      t.ID,
		Title:       t.Title,
		Company:     t.CompanyName,
		Duration:    t.Duration,
		Description: t.Description,
	}

	for _, q := range t.Questions {
		dq := Question{
			QID:     q.QuestionID,
			Text:    q.Text,
			Type:    string(q.Kind()),
			Options: []Option{},
		}
		if m, ok := q.Body.(domain.MCQ); ok {
			for _, o := range m.Options {
				dq.Options = append(dq.Options, Option{OptionID: o.OptionID, Text: o.Text})
			}
		}
		out.Questions = append(out.Questions, dq)
	}

	return out
}

func toGeneratedQuestion(e domain.PoolEntry) GeneratedQuestion {
	out := GeneratedQuestion{
		ID:           e.ID,
		Topic:        e.Topic,
		QuestionText: e.Draft.Text,
		Type:         string(e.Draft.Body.Kind()),
		Options:      []DraftOption{},
		Difficulty:   e.Draft.Difficulty,
		GeneratedBy:  e.CreatedBy,
		GeneratedAt:  e.CreatedAt,
	}

	switch b := e.Draft.Body.(type) {
	case domain.MCQ:
		for _, o := range b.Options {
			out.Options = append(out.Options, DraftOption{Text: o.Text, IsCorrect: o.Correct})
			if o.Correct && out.CorrectAnswer == "" {
				out.CorrectAnswer = o.Text
			}
		}
	case domain.Subjective:
		out.CorrectAnswer = b.ExpectedAnswer
	}

	return out
}

func toGeneratedQuestions(entries []domain.PoolEntry) []GeneratedQuestion {
	out := make([]GeneratedQuestion, 0, len(entries))
	for _, e := range entries {
		out = append(out, toGeneratedQuestion(e))
	}
	return out
}

// number renders a score as a JSON number.
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func numbers(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = number(v)
	}
	return out
}
