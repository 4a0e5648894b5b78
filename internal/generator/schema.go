package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

const draftSchemaURL = "https://exam-portal.local/schemas/question-draft.json"

// draftSchema is the contract each generated item must satisfy. It is also shown to the model.
const draftSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["question_text", "type"],
  "properties": {
    "question_text": {"type": "string", "minLength": 1},
    "type": {"enum": ["mcq", "subjective"]},
    "difficulty": {"type": "string"},
    "options": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "is_correct"],
        "properties": {
          "text": {"type": "string"},
          "is_correct": {"type": "boolean"}
        }
      }
    },
    "correct_answer": {"type": "string"}
  },
  "if": {"properties": {"type": {"const": "mcq"}}},
  "then": {"required": ["options"], "properties": {"options": {"minItems": 2}}}
}`

var compiledDraftSchema = mustCompile(draftSchemaURL, draftSchema)

func mustCompile(url, schema string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schema))
	if err != nil {
		panic(fmt.Sprintf("generator: parse schema: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("generator: add schema: %v", err))
	}

	return c.MustCompile(url)
}

// draftJSON is the wire shape of one generated item.
type draftJSON struct {
	QuestionText string `json:"question_text"`
	Type         string `json:"type"`
	Difficulty   string `json:"difficulty"`
	Options      []struct {
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"options"`
	CorrectAnswer string `json:"correct_answer"`
}

// parseDrafts turns a model reply into drafts. The reply may be wrapped in a markdown
// code fence and may be a bare array, a {"questions": [...]} object or a single item.
// Any item failing the schema fails the whole reply.
func parseDrafts(text, difficulty string) ([]domain.Draft, error) {
	text = stripFence(text)

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		if qs, ok := v["questions"].([]any); ok {
			items = qs
		} else {
			items = []any{v}
		}
	default:
		return nil, fmt.Errorf("%w: unexpected top level %T", errMalformed, doc)
	}

	drafts := make([]domain.Draft, 0, len(items))
	for i, item := range items {
		if err := compiledDraftSchema.Validate(item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", errSchema, i, err)
		}

		// The item passed the schema, so re-encoding and decoding it can't fail in practice.
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", errMalformed, i, err)
		}
		var d draftJSON
		if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", errMalformed, i, err)
		}

		drafts = append(drafts, d.toDraft(difficulty))
	}

	return drafts, nil
}

func (d draftJSON) toDraft(difficulty string) domain.Draft {
	if ValidDifficulty(d.Difficulty) {
		difficulty = d.Difficulty
	}

	if d.Type == string(domain.KindMCQ) {
		opts := make([]domain.DraftOption, 0, len(d.Options))
		for _, o := range d.Options {
			opts = append(opts, domain.DraftOption{Text: o.Text, Correct: o.IsCorrect})
		}
		return domain.NewMCQDraft(d.QuestionText, difficulty, opts...)
	}

	return domain.NewSubjectiveDraft(d.QuestionText, difficulty, d.CorrectAnswer)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	// Drop the opening fence line, e.g. ```json.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}

	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
