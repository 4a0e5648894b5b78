package generator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

//go:embed templates.yaml
var defaultTemplates []byte

// 60% of a fallback batch is mcq, truncated; the rest is subjective.
const mcqPercent = 60

type (
	library struct {
		Default string           `yaml:"default"`
		Topics  map[string]topic `yaml:"topics"`
	}

	topic struct {
		MCQ        []mcqTemplate        `yaml:"mcq"`
		Subjective []subjectiveTemplate `yaml:"subjective"`
	}

	mcqTemplate struct {
		Text    string `yaml:"text"`
		Options []struct {
			Text    string `yaml:"text"`
			Correct bool   `yaml:"correct"`
		} `yaml:"options"`
	}

	subjectiveTemplate struct {
		Text   string `yaml:"text"`
		Answer string `yaml:"answer"`
	}
)

// Fallback composes drafts from a per-topic template library and fills the rest with generic items.
type Fallback struct {
	lib library
}

// NewFallback loads the embedded template library.
func NewFallback() (*Fallback, error) {
	return LoadFallback(bytes.NewReader(defaultTemplates))
}

func mustDefaultFallback() *Fallback {
	f, err := NewFallback()
	if err != nil {
		panic(fmt.Sprintf("generator: embedded templates: %v", err))
	}
	return f
}

// LoadFallback loads a template library in the templates.yaml format.
func LoadFallback(r io.Reader) (*Fallback, error) {
	var lib library
	if err := yaml.NewDecoder(r).Decode(&lib); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	topics := make(map[string]topic, len(lib.Topics))
	for name, t := range lib.Topics {
		topics[strings.ToLower(name)] = t
	}
	lib.Topics = topics
	lib.Default = strings.ToLower(lib.Default)

	if _, ok := lib.Topics[lib.Default]; lib.Default != "" && !ok {
		return nil, fmt.Errorf("default topic %q has no templates", lib.Default)
	}

	return &Fallback{lib: lib}, nil
}

func (f *Fallback) Generate(_ context.Context, req Request) []domain.Draft {
	if req.Count <= 0 {
		return nil
	}

	t, ok := f.lib.Topics[strings.ToLower(req.Topic)]
	if !ok {
		t = f.lib.Topics[f.lib.Default]
	}

	var (
		mcqCount = req.Count * mcqPercent / 100
		subCount = req.Count - mcqCount
		drafts   = make([]domain.Draft, 0, req.Count)
	)

	for i := range mcqCount {
		if i < len(t.MCQ) {
			tpl := t.MCQ[i]
			opts := make([]domain.DraftOption, 0, len(tpl.Options))
			for _, o := range tpl.Options {
				opts = append(opts, domain.DraftOption{Text: o.Text, Correct: o.Correct})
			}
			drafts = append(drafts, domain.NewMCQDraft(tpl.Text, req.Difficulty, opts...))
			continue
		}

		drafts = append(drafts, domain.NewMCQDraft(
			fmt.Sprintf("%s Question %d: Explain a key concept in %s.", req.Topic, i+1, req.Topic),
			req.Difficulty,
			domain.DraftOption{Text: "Option A", Correct: true},
			domain.DraftOption{Text: "Option B"},
			domain.DraftOption{Text: "Option C"},
			domain.DraftOption{Text: "Option D"},
		))
	}

	for i := range subCount {
		if i < len(t.Subjective) {
			tpl := t.Subjective[i]
			drafts = append(drafts, domain.NewSubjectiveDraft(tpl.Text, req.Difficulty, tpl.Answer))
			continue
		}

		drafts = append(drafts, domain.NewSubjectiveDraft(
			fmt.Sprintf("%s Question %d: Describe a best practice in %s development.", req.Topic, i+1, req.Topic),
			req.Difficulty,
			fmt.Sprintf("This is a sample answer for %s best practices.", req.Topic),
		))
	}

	return drafts
}
