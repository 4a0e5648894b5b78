package score

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

// SimilarityGrader scores an answer by the TF-IDF cosine similarity between it and the question's
// expected answer, scaled to 0-100. Questions without an expected answer use Fallback.
type SimilarityGrader struct {
	MinLength int
	Fallback  Grader
}

func NewSimilarityGrader() SimilarityGrader {
	return SimilarityGrader{MinLength: 3, Fallback: NewBaselineGrader()}
}

func (g SimilarityGrader) Grade(ctx context.Context, q domain.Question, answer string) decimal.Decimal {
	if len([]rune(strings.TrimSpace(answer))) < g.MinLength {
		return decimal.Zero
	}

	sub, _ := q.Body.(domain.Subjective)
	if strings.TrimSpace(sub.ExpectedAnswer) == "" {
		return g.Fallback.Grade(ctx, q, answer)
	}

	sim := cosine(tokenize(sub.ExpectedAnswer), tokenize(answer))
	return decimal.NewFromFloat(math.Min(100, sim*100)).Round(2)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || unicode.IsDigit(r))
	})
}

// cosine compares two documents weighted by smoothed IDF over the pair: ln((N+1)/(df+1)) + 1.
func cosine(ref, answer []string) float64 {
	docs := [][]string{ref, answer}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, t := range doc {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	n := float64(len(docs))
	vector := func(tokens []string) map[string]float64 {
		v := make(map[string]float64)
		if len(tokens) == 0 {
			return v
		}
		for _, t := range tokens {
			v[t]++
		}
		for t := range v {
			v[t] = v[t] / float64(len(tokens)) * (math.Log((n+1)/float64(df[t]+1)) + 1)
		}
		return v
	}

	a, b := vector(ref), vector(answer)

	var dot, na, nb float64
	for t, x := range a {
		dot += x * b[t]
		na += x * x
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
