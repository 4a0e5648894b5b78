// Package generator produces draft questions for a topic, either through an LLM
// or from a fixed template library. Generation never fails: every problem on the
// AI path ends in the template fallback.
package generator

import (
	"context"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is one of easy, medium or hard.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

type Request struct {
	Topic      string
	Count      int
	Difficulty string
}

// Generator returns exactly req.Count drafts, or none when req.Count <= 0.
type Generator interface {
	Generate(ctx context.Context, req Request) []domain.Draft
}
