// Package analytics computes read-only reports over tests and their sessions for HR.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

const (
	recentAttempts    = 10
	maxQuestionText   = 100
	subjectiveDefault = 70
)

type Store interface {
	store.Catalog
	store.Sessions
}

type Config struct {
	Store Store
}

type Service struct {
	store Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store}
}

// Bucket counts mcq scores in [Min, Max), or [Min, Max] for the last bucket.
type Bucket struct {
	Label string
	Min   int
	Max   int
	Count int
}

var buckets = []Bucket{
	{Label: "0-59", Min: 0, Max: 60},
	{Label: "60-69", Min: 60, Max: 70},
	{Label: "70-79", Min: 70, Max: 80},
	{Label: "80-89", Min: 80, Max: 90},
	{Label: "90-100", Min: 90, Max: 100},
}

type TestStats struct {
	TestID        string
	TestTitle     string
	Company       string
	TotalAttempts int
	Completed     int
	InProgress    int
	AverageScore  decimal.Decimal
	// Distribution holds the five score buckets, lowest first.
	Distribution   []Bucket
	RecentAttempts []domain.Session
}

// TestStats reports attempts, the mcq average and distribution, and the latest attempts of a test.
func (s *Service) TestStats(ctx context.Context, testID string) (*TestStats, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, testID)
	if err != nil {
		return nil, err
	}

	st := &TestStats{
		TestID:        t.ID,
		TestTitle:     t.Title,
		Company:       t.CompanyName,
		TotalAttempts: len(sessions),
		Completed:     completed(sessions),
		AverageScore:  averageMCQ(sessions),
		Distribution:  distribution(sessions),
	}
	st.InProgress = st.TotalAttempts - st.Completed

	// ListSessions is newest first.
	st.RecentAttempts = sessions[:min(len(sessions), recentAttempts)]

	return st, nil
}

type TestSummary struct {
	TestID        string
	TestTitle     string
	Company       string
	TotalAttempts int
	Completed     int
	AverageScore  decimal.Decimal
	QuestionCount int
}

// Overview summarizes every test.
func (s *Service) Overview(ctx context.Context) ([]TestSummary, error) {
	tests, err := s.store.ListTests(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountQuestions(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]TestSummary, 0, len(tests))
	for _, t := range tests {
		sessions, err := s.store.ListSessions(ctx, t.ID)
		if err != nil {
			return nil, err
		}

		out = append(out, TestSummary{
			TestID:        t.ID,
			TestTitle:     t.Title,
			Company:       t.CompanyName,
			TotalAttempts: len(sessions),
			Completed:     completed(sessions),
			AverageScore:  averageMCQ(sessions),
			QuestionCount: counts[t.ID],
		})
	}

	return out, nil
}

type Candidate struct {
	Username      string
	SessionID     string
	Started       time.Time
	Ended         time.Time
	MCQScore      decimal.Decimal
	SubjectiveAvg decimal.Decimal
	OverallScore  decimal.Decimal
	TimeTaken     time.Duration
	Late          bool
}

type Candidates struct {
	TestID     string
	TestTitle  string
	Candidates []Candidate
}

// Candidates ranks the finalized sessions of a test by mcq score, then overall score, then start time.
func (s *Service) Candidates(ctx context.Context, testID string) (*Candidates, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, testID)
	if err != nil {
		return nil, err
	}

	out := &Candidates{TestID: t.ID, TestTitle: t.Title, Candidates: []Candidate{}}
	for _, ss := range sessions {
		if ss.State() != domain.SessionFinalized {
			continue
		}

		c := Candidate{
			Username:      ss.Username,
			SessionID:     ss.SessionID,
			Started:       ss.Started,
			Ended:         *ss.Ended,
			MCQScore:      decimal.Zero,
			SubjectiveAvg: ss.SubjectiveAverage().Round(2),
			OverallScore:  ss.Overall(),
			TimeTaken:     ss.Ended.Sub(ss.Started),
			Late:          ss.Late,
		}
		if ss.ScoreMCQ != nil {
			c.MCQScore = *ss.ScoreMCQ
		}

		out.Candidates = append(out.Candidates, c)
	}

	sort.SliceStable(out.Candidates, func(i, j int) bool {
		a, b := out.Candidates[i], out.Candidates[j]
		if !a.MCQScore.Equal(b.MCQScore) {
			return a.MCQScore.GreaterThan(b.MCQScore)
		}
		if !a.OverallScore.Equal(b.OverallScore) {
			return a.OverallScore.GreaterThan(b.OverallScore)
		}
		return a.Started.Before(b.Started)
	})

	return out, nil
}

// QuestionStat is an approximation: answers are not stored per question, so mcq correctness is
// estimated from the average session score and subjective questions report the baseline score.
type QuestionStat struct {
	QuestionID    string
	Text          string
	Kind          domain.Kind
	TotalAttempts int
	// EstimatedCorrect is set for mcq questions only.
	EstimatedCorrect int
	// Answerable is false for an mcq question without a correct option.
	Answerable   bool
	AverageScore *decimal.Decimal
	Difficulty   string
}

// QuestionPerformance reports per question stats over the finalized sessions of a test.
func (s *Service) QuestionPerformance(ctx context.Context, testID string) ([]QuestionStat, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessions(ctx, testID)
	if err != nil {
		return nil, err
	}

	var (
		attempts int
		sum      = decimal.Zero
	)
	for _, ss := range sessions {
		if ss.State() != domain.SessionFinalized {
			continue
		}
		attempts++
		if ss.ScoreMCQ != nil {
			sum = sum.Add(*ss.ScoreMCQ)
		}
	}

	// avg/100 * attempts, with avg = sum/attempts, is sum/100.
	estimated := int(sum.Div(decimal.NewFromInt(100)).IntPart())

	out := make([]QuestionStat, 0, len(t.Questions))
	for _, q := range t.Questions {
		st := QuestionStat{
			QuestionID:    q.QuestionID,
			Text:          truncate(q.Text, maxQuestionText),
			Kind:          q.Kind(),
			TotalAttempts: attempts,
			Answerable:    true,
		}

		switch b := q.Body.(type) {
		case domain.MCQ:
			st.Difficulty = "medium"
			if _, ok := b.CorrectOption(); ok {
				st.EstimatedCorrect = estimated
			} else {
				st.Answerable = false
			}
		case domain.Subjective:
			avg := decimal.NewFromInt(subjectiveDefault)
			st.AverageScore = &avg
		}

		out = append(out, st)
	}

	return out, nil
}

func completed(sessions []domain.Session) int {
	n := 0
	for _, ss := range sessions {
		if ss.State() == domain.SessionFinalized {
			n++
		}
	}
	return n
}

func averageMCQ(sessions []domain.Session) decimal.Decimal {
	var (
		n   int64
		sum = decimal.Zero
	)
	for _, ss := range sessions {
		if ss.ScoreMCQ != nil {
			sum = sum.Add(*ss.ScoreMCQ)
			n++
		}
	}
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n)).Round(2)
}

func distribution(sessions []domain.Session) []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)

	for _, ss := range sessions {
		if ss.ScoreMCQ == nil {
			continue
		}
		v := *ss.ScoreMCQ
		for i := range out {
			b := &out[i]
			last := i == len(out)-1
			if v.GreaterThanOrEqual(decimal.NewFromInt(int64(b.Min))) &&
				(v.LessThan(decimal.NewFromInt(int64(b.Max))) || last && v.Equal(decimal.NewFromInt(int64(b.Max)))) {
				b.Count++
				break
			}
		}
	}

	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
