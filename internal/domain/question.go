package domain

import "fmt"

// Kind is the wire name of a question body variant.
type Kind string

const (
	KindMCQ        Kind = "mcq"
	KindSubjective Kind = "subjective"
)

// ParseKind validates a kind coming from outside the process.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindMCQ, KindSubjective:
		return k, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// Body is the closed set of question variants: MCQ or Subjective.
type Body interface {
	Kind() Kind
	sealed()
}

// MCQ is a multiple choice body. At most one option should be correct;
// when several are flagged the first one wins, when none is the question can't be answered correctly.
type MCQ struct {
	Options []Option
}

func (MCQ) Kind() Kind { return KindMCQ }
func (MCQ) sealed()    {}

// CorrectOption returns the first option flagged correct.
func (m MCQ) CorrectOption() (Option, bool) {
	for _, o := range m.Options {
		if o.Correct {
			return o, true
		}
	}
	return Option{}, false
}

// Subjective is a free text body. ExpectedAnswer may be empty.
type Subjective struct {
	ExpectedAnswer string
}

func (Subjective) Kind() Kind { return KindSubjective }
func (Subjective) sealed()    {}

type Option struct {
	// OptionID is unique within its question.
	OptionID string
	Text     string
	Correct  bool
}

// Question belongs to exactly one test. QuestionID is the test-local id candidates answer against.
type Question struct {
	QuestionID string
	Text       string
	Position   int
	Body       Body
}

func (q Question) Kind() Kind {
	if q.Body == nil {
		return ""
	}
	return q.Body.Kind()
}

// Draft is a generated question that is not part of any test yet.
type Draft struct {
	Text       string
	Difficulty string
	Body       Body
}

// DraftOption is the option shape of MCQ drafts: correctness without an id.
// Ids are assigned when a draft is promoted into a test.
type DraftOption struct {
	Text    string
	Correct bool
}

// NewMCQDraft builds an MCQ draft, options keep their order.
func NewMCQDraft(text, difficulty string, opts ...DraftOption) Draft {
	options := make([]Option, 0, len(opts))
	for _, o := range opts {
		options = append(options, Option{Text: o.Text, Correct: o.Correct})
	}
	return Draft{Text: text, Difficulty: difficulty, Body: MCQ{Options: options}}
}

func NewSubjectiveDraft(text, difficulty, expected string) Draft {
	return Draft{Text: text, Difficulty: difficulty, Body: Subjective{ExpectedAnswer: expected}}
}

// PromoteDraft copies a draft into a new question at the given 1-based position.
// The question id is q<position> and MCQ options get ids opt1, opt2, ... in draft order.
func PromoteDraft(d Draft, position int) Question {
	q := Question{
		QuestionID: fmt.Sprintf("q%d", position),
		Text:       d.Text,
		Position:   position,
	}

	switch b := d.Body.(type) {
	case MCQ:
		opts := make([]Option, 0, len(b.Options))
		for i, o := range b.Options {
			opts = append(opts, Option{
				OptionID: fmt.Sprintf("opt%d", i+1),
				Text:     o.Text,
				Correct:  o.Correct,
			})
		}
		q.Body = MCQ{Options: opts}
	case Subjective:
		q.Body = b
	}

	return q
}
