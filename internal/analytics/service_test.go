package analytics_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maahivarma/Exam-portal/internal/analytics"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/store/memory"
)

var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type attempt struct {
	user       string
	startedMin int
	tookMin    int
	mcq        string
	subjective map[string]int64
	active     bool
}

func seedAttempts(t *testing.T, st *memory.Store, testID string, attempts ...attempt) {
	t.Helper()
	ctx := context.Background()

	for i, a := range attempts {
		id := fmt.Sprintf("%s-%02d", testID, i)
		require.NoError(t, st.CreateSession(ctx, &domain.Session{
			SessionID: id,
			TestID:    testID,
			Username:  a.user,
			Started:   base.Add(time.Duration(a.startedMin) * time.Minute),
		}))
		if a.active {
			continue
		}

		subjective := make(map[string]decimal.Decimal, len(a.subjective))
		for k, v := range a.subjective {
			subjective[k] = decimal.NewFromInt(v)
		}

		ended := base.Add(time.Duration(a.startedMin+a.tookMin) * time.Minute)
		_, err := st.FinalizeSession(ctx, id, ended, domain.ScoreResult{
			MCQ:        decimal.RequireFromString(a.mcq),
			Subjective: subjective,
		})
		require.NoError(t, err)
	}
}

func makeService(t *testing.T) (*analytics.Service, *memory.Store) {
	t.Helper()

	st := memory.New()
	st.Seed()
	return analytics.NewService(analytics.Config{Store: st}), st
}

func TestService_TestStats(t *testing.T) {
	s, st := makeService(t)
	seedAttempts(t, st, "tcs-backend-1",
		attempt{user: "a", startedMin: 0, tookMin: 10, mcq: "100"},
		attempt{user: "b", startedMin: 1, tookMin: 10, mcq: "90"},
		attempt{user: "c", startedMin: 2, tookMin: 10, mcq: "89.99"},
		attempt{user: "d", startedMin: 3, tookMin: 10, mcq: "60"},
		attempt{user: "e", startedMin: 4, tookMin: 10, mcq: "0"},
		attempt{user: "f", startedMin: 5, active: true},
	)

	got, err := s.TestStats(context.Background(), "tcs-backend-1")
	require.NoError(t, err)

	assert.Equal(t, "TCS Backend Mock", got.TestTitle)
	assert.Equal(t, "TCS", got.Company)
	assert.Equal(t, 6, got.TotalAttempts)
	assert.Equal(t, 5, got.Completed)
	assert.Equal(t, 1, got.InProgress)
	assert.Equal(t, "68", got.AverageScore.String())

	labels := make([]string, 0, len(got.Distribution))
	counts := make([]int, 0, len(got.Distribution))
	for _, b := range got.Distribution {
		labels = append(labels, b.Label)
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []string{"0-59", "60-69", "70-79", "80-89", "90-100"}, labels)
	assert.Equal(t, []int{1, 1, 0, 1, 2}, counts)

	require.Len(t, got.RecentAttempts, 6)
	assert.Equal(t, "f", got.RecentAttempts[0].Username)
}

func TestService_TestStats_RecentIsCapped(t *testing.T) {
	s, st := makeService(t)

	var attempts []attempt
	for i := range 12 {
		attempts = append(attempts, attempt{user: fmt.Sprintf("u%d", i), startedMin: i, tookMin: 1, mcq: "50"})
	}
	seedAttempts(t, st, "g-ml-1", attempts...)

	got, err := s.TestStats(context.Background(), "g-ml-1")
	require.NoError(t, err)
	require.Len(t, got.RecentAttempts, 10)
	assert.Equal(t, "u11", got.RecentAttempts[0].Username)
	assert.Equal(t, "u2", got.RecentAttempts[9].Username)
}

func TestService_TestStats_NoSessions(t *testing.T) {
	s, _ := makeService(t)

	got, err := s.TestStats(context.Background(), "g-ml-1")
	require.NoError(t, err)
	assert.True(t, got.AverageScore.IsZero())
	assert.Empty(t, got.RecentAttempts)

	_, err = s.TestStats(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_Overview(t *testing.T) {
	s, st := makeService(t)
	seedAttempts(t, st, "g-ml-1",
		attempt{user: "a", mcq: "100", tookMin: 5},
		attempt{user: "b", mcq: "0", tookMin: 5},
		attempt{user: "c", startedMin: 1, active: true},
	)

	got, err := s.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := make(map[string]analytics.TestSummary)
	for _, ts := range got {
		byID[ts.TestID] = ts
	}

	ml := byID["g-ml-1"]
	assert.Equal(t, "Google", ml.Company)
	assert.Equal(t, 3, ml.TotalAttempts)
	assert.Equal(t, 2, ml.Completed)
	assert.Equal(t, "50", ml.AverageScore.String())
	assert.Equal(t, 1, ml.QuestionCount)

	tcs := byID["tcs-backend-1"]
	assert.Equal(t, 0, tcs.TotalAttempts)
	assert.Equal(t, 2, tcs.QuestionCount)
}

func TestService_Candidates(t *testing.T) {
	s, st := makeService(t)
	seedAttempts(t, st, "tcs-backend-1",
		attempt{user: "low", startedMin: 0, tookMin: 12, mcq: "50", subjective: map[string]int64{"q2": 70}},
		attempt{user: "tie-late-start", startedMin: 3, tookMin: 5, mcq: "100", subjective: map[string]int64{"q2": 0}},
		attempt{user: "tie-early-start", startedMin: 1, tookMin: 5, mcq: "100", subjective: map[string]int64{"q2": 0}},
		attempt{user: "tie-better-essay", startedMin: 2, tookMin: 5, mcq: "100", subjective: map[string]int64{"q2": 70}},
		attempt{user: "active", startedMin: 4, active: true},
	)

	got, err := s.Candidates(context.Background(), "tcs-backend-1")
	require.NoError(t, err)
	assert.Equal(t, "TCS Backend Mock", got.TestTitle)

	users := make([]string, 0, len(got.Candidates))
	for _, c := range got.Candidates {
		users = append(users, c.Username)
	}
	assert.Equal(t, []string{"tie-better-essay", "tie-early-start", "tie-late-start", "low"}, users)

	best := got.Candidates[0]
	assert.Equal(t, "91", best.OverallScore.String())
	assert.Equal(t, "70", best.SubjectiveAvg.String())
	assert.Equal(t, 5*time.Minute, best.TimeTaken)

	low := got.Candidates[3]
	assert.Equal(t, "56", low.OverallScore.String())
	assert.Equal(t, 12*time.Minute, low.TimeTaken)

	_, err = s.Candidates(context.Background(), "nope")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_QuestionPerformance(t *testing.T) {
	s, st := makeService(t)
	st.PutTest(domain.Test{
		ID:        "mixed",
		CompanyID: "tcs",
		Title:     "Mixed",
		Duration:  10,
		Questions: []domain.Question{
			{QuestionID: "q1", Text: string(make([]rune, 150)), Body: domain.MCQ{Options: []domain.Option{{OptionID: "a", Correct: true}, {OptionID: "b"}}}},
			{QuestionID: "q2", Text: "no key", Body: domain.MCQ{Options: []domain.Option{{OptionID: "a"}, {OptionID: "b"}}}},
			{QuestionID: "q3", Text: "essay", Body: domain.Subjective{}},
		},
	})
	seedAttempts(t, st, "mixed",
		attempt{user: "a", mcq: "50", tookMin: 1},
		attempt{user: "b", mcq: "50", tookMin: 1},
		attempt{user: "c", mcq: "100", tookMin: 1},
		attempt{user: "d", startedMin: 1, active: true},
	)

	got, err := s.QuestionPerformance(context.Background(), "mixed")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.KindMCQ, got[0].Kind)
	assert.Len(t, []rune(got[0].Text), 100)
	assert.Equal(t, 3, got[0].TotalAttempts)
	assert.Equal(t, 2, got[0].EstimatedCorrect)
	assert.True(t, got[0].Answerable)

	assert.False(t, got[1].Answerable)
	assert.Equal(t, 0, got[1].EstimatedCorrect)

	assert.Equal(t, domain.KindSubjective, got[2].Kind)
	assert.Equal(t, 3, got[2].TotalAttempts)
	require.NotNil(t, got[2].AverageScore)
	assert.Equal(t, "70", got[2].AverageScore.String())
}
