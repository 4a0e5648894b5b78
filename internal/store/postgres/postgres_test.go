//go:build integration_test

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Maahivarma/Exam-portal/internal/config"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/store/postgres"
)

// The database is configured like the server, through EXAM_POSTGRES_* variables.
func makeStore(t *testing.T) *postgres.Store {
	t.Helper()

	var c struct {
		Postgres postgres.Config
	}
	c.Postgres = postgres.Config{Addr: "localhost:5432", User: "postgres", Pass: "postgres", Name: "exam", MaxConns: 20}
	require.NoError(t, config.Load("", &c))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := postgres.Connect(ctx, c.Postgres)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Seed(ctx))
	return s
}

func insertDrafts(t *testing.T, s *postgres.Store, drafts ...domain.Draft) []int64 {
	t.Helper()

	// A fresh topic per call keeps runs against the same database apart.
	topic := "it-" + uuid.NewString()[:8]

	entries := make([]domain.PoolEntry, 0, len(drafts))
	for _, d := range drafts {
		entries = append(entries, domain.PoolEntry{Topic: topic, Draft: d, CreatedBy: "hr"})
	}
	require.NoError(t, s.InsertDrafts(context.Background(), entries))

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestStore_FinalizeSession(t *testing.T) {
	ctx := context.Background()
	s := makeStore(t)

	id := uuid.NewString()
	require.NoError(t, s.CreateSession(ctx, &domain.Session{SessionID: id, TestID: "tcs-backend-1", Username: "u1", Started: time.Now()}))

	first := domain.ScoreResult{MCQ: decimal.NewFromInt(100), Subjective: map[string]decimal.Decimal{"q2": decimal.NewFromInt(70)}, Late: true}
	ss, err := s.FinalizeSession(ctx, id, time.Now(), first)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFinalized, ss.State())

	_, err = s.FinalizeSession(ctx, id, time.Now(), domain.ScoreResult{MCQ: decimal.Zero})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	got, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "100", got.ScoreMCQ.String())
	assert.Equal(t, "70", got.ScoreSubjective["q2"].String())
	assert.True(t, got.Late)

	_, err = s.FinalizeSession(ctx, uuid.NewString(), time.Now(), first)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestStore_FinalizeSession_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := makeStore(t)

	id := uuid.NewString()
	require.NoError(t, s.CreateSession(ctx, &domain.Session{SessionID: id, TestID: "tcs-backend-1", Username: "u1", Started: time.Now()}))

	const n = 10
	errs := make([]error, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			_, errs[i] = s.FinalizeSession(ctx, id, time.Now(), domain.ScoreResult{MCQ: decimal.NewFromInt(int64(i))})
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, errors.CodeConflict), err)
	}
	assert.Equal(t, 1, won)
}

func TestStore_PromoteDrafts(t *testing.T) {
	ctx := context.Background()
	s := makeStore(t)

	ids := insertDrafts(t, s,
		domain.NewSubjectiveDraft("s", "easy", "x"),
		domain.NewMCQDraft("m", "easy", domain.DraftOption{Text: "a"}, domain.DraftOption{Text: "b", Correct: true}),
	)

	res, err := s.PromoteDrafts(ctx, domain.Promotion{EntryIDs: ids, NewTest: &domain.NewTest{CompanyID: "google", Title: "Go", Duration: 30}})
	require.NoError(t, err)
	assert.Regexp(t, `^google-[0-9a-f]{8}$`, res.Test.ID)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "q1", res.Questions[0].QuestionID)
	assert.Equal(t, "q2", res.Questions[1].QuestionID)

	opt, ok := res.Questions[1].Body.(domain.MCQ).CorrectOption()
	require.True(t, ok)
	assert.Equal(t, "opt2", opt.OptionID)

	got, err := s.GetTest(ctx, res.Test.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)

	more := insertDrafts(t, s, domain.NewSubjectiveDraft("t", "easy", "y"))
	res, err = s.PromoteDrafts(ctx, domain.Promotion{EntryIDs: more, TestID: res.Test.ID})
	require.NoError(t, err)
	assert.Equal(t, "q3", res.Questions[0].QuestionID)
}

func TestStore_PromoteDrafts_Rollback(t *testing.T) {
	ctx := context.Background()
	s := makeStore(t)

	before, err := s.GetTest(ctx, "tcs-backend-1")
	require.NoError(t, err)

	ids := insertDrafts(t, s, domain.NewSubjectiveDraft("s", "easy", "x"))
	_, err = s.PromoteDrafts(ctx, domain.Promotion{EntryIDs: append(ids, -1), TestID: "tcs-backend-1"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	entries, err := s.GetEntries(ctx, ids)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Selected)

	after, err := s.GetTest(ctx, "tcs-backend-1")
	require.NoError(t, err)
	assert.Len(t, after.Questions, len(before.Questions))

	_, err = s.PromoteDrafts(ctx, domain.Promotion{EntryIDs: ids, NewTest: &domain.NewTest{CompanyID: "nope", Title: "Go", Duration: 30}})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	entries, err = s.GetEntries(ctx, ids)
	require.NoError(t, err)
	assert.False(t, entries[0].Selected)
}

func TestStore_PromoteDrafts_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := makeStore(t)

	ids := insertDrafts(t, s,
		domain.NewSubjectiveDraft("s1", "easy", "x"),
		domain.NewSubjectiveDraft("s2", "easy", "y"),
	)

	const n = 10
	errs := make([]error, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			_, errs[i] = s.PromoteDrafts(ctx, domain.Promotion{EntryIDs: ids, NewTest: &domain.NewTest{CompanyID: "google", Title: "Race", Duration: 30}})
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, errors.CodeConflict), err)
	}
	assert.Equal(t, 1, won)

	entries, err := s.GetEntries(ctx, ids)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.Selected)
	}
}
