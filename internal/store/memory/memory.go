// Package memory implements store.Store in process memory.
// It is used by tests and by the server when storage.driver is memory.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

// Store keeps everything behind a single mutex, which makes every operation atomic.
type Store struct {
	mu sync.Mutex

	companies map[string]domain.Company
	tests     map[string]*domain.Test
	sessions  map[string]*domain.Session
	events    map[string][]domain.ProctorEvent
	snapshots map[string][]domain.Snapshot
	pool      map[int64]*domain.PoolEntry

	nextID int64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		companies: make(map[string]domain.Company),
		tests:     make(map[string]*domain.Test),
		sessions:  make(map[string]*domain.Session),
		events:    make(map[string][]domain.ProctorEvent),
		snapshots: make(map[string][]domain.Snapshot),
		pool:      make(map[int64]*domain.PoolEntry),
	}
}

// PutCompany inserts or replaces a company.
func (s *Store) PutCompany(c domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.companies[c.ID] = c
}

// PutTest inserts or replaces a test with its questions. The company must have been put before.
func (s *Store) PutTest(t domain.Test) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.CompanyName = s.companies[t.CompanyID].Name
	t.Questions = cloneQuestions(t.Questions)
	s.tests[t.ID] = &t
}

func (s *Store) ListCompanies(_ context.Context) ([]domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Collect(maps.Values(s.companies))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetCompany(_ context.Context, companyID string) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return nil, errors.NotFound("company not found: company=%s", companyID)
	}
	return &c, nil
}

func (s *Store) ListTests(_ context.Context) ([]domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Test, 0, len(s.tests))
	for _, t := range s.tests {
		tt := *t
		tt.Questions = nil
		out = append(out, tt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTest(_ context.Context, testID string) (*domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tests[testID]
	if !ok {
		return nil, errors.NotFound("test not found: test=%s", testID)
	}

	tt := *t
	tt.Questions = cloneQuestions(t.Questions)
	return &tt, nil
}

func (s *Store) CountQuestions(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.tests))
	for id, t := range s.tests {
		if len(t.Questions) > 0 {
			out[id] = len(t.Questions)
		}
	}
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, ss *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tests[ss.TestID]; !ok {
		return errors.NotFound("test not found: test=%s", ss.TestID)
	}
	if _, ok := s.sessions[ss.SessionID]; ok {
		return errors.Conflict("session already exists: session=%s", ss.SessionID)
	}

	cp := cloneSession(*ss)
	s.sessions[ss.SessionID] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFound("session not found: session=%s", sessionID)
	}

	cp := cloneSession(*ss)
	return &cp, nil
}

func (s *Store) FinalizeSession(_ context.Context, sessionID string, ended time.Time, r domain.ScoreResult) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ss, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFound("session not found: session=%s", sessionID)
	}
	if ss.Ended != nil {
		return nil, errors.Conflict("session already submitted: session=%s", sessionID)
	}

	mcq := r.MCQ
	ss.Ended = &ended
	ss.ScoreMCQ = &mcq
	ss.ScoreSubjective = maps.Clone(r.Subjective)
	ss.Late = r.Late

	cp := cloneSession(*ss)
	return &cp, nil
}

func (s *Store) ListSessions(_ context.Context, testID string) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Session
	for _, ss := range s.sessions {
		if ss.TestID == testID {
			out = append(out, cloneSession(*ss))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out, nil
}

func (s *Store) AppendProctorEvent(_ context.Context, e *domain.ProctorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[e.SessionID]; !ok {
		return errors.NotFound("session not found: session=%s", e.SessionID)
	}

	s.nextID++
	e.ID = s.nextID
	s.events[e.SessionID] = append(s.events[e.SessionID], *e)
	return nil
}

func (s *Store) ListProctorEvents(_ context.Context, sessionID string) ([]domain.ProctorEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events[sessionID]), nil
}

func (s *Store) AppendSnapshot(_ context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[snap.SessionID]; !ok {
		return errors.NotFound("session not found: session=%s", snap.SessionID)
	}

	s.nextID++
	snap.ID = s.nextID
	s.snapshots[snap.SessionID] = append(s.snapshots[snap.SessionID], *snap)
	return nil
}

func (s *Store) InsertDrafts(_ context.Context, entries []domain.PoolEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for i := range entries {
		e := &entries[i]
		s.nextID++
		e.ID = s.nextID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}

		cp := cloneEntry(*e)
		s.pool[e.ID] = &cp
	}
	return nil
}

func (s *Store) ListUnselected(_ context.Context, f store.PoolFilter) ([]domain.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PoolEntry
	for _, e := range s.pool {
		if e.Selected {
			continue
		}
		if f.Topic != "" && !strings.EqualFold(e.Topic, f.Topic) {
			continue
		}
		if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, cloneEntry(*e))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetEntries(_ context.Context, ids []int64) ([]domain.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PoolEntry
	for _, id := range ids {
		if e, ok := s.pool[id]; ok {
			out = append(out, cloneEntry(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteUnselected(_ context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if e, ok := s.pool[id]; ok && !e.Selected {
			delete(s.pool, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) PromoteDrafts(_ context.Context, p domain.Promotion) (*domain.PromotionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*domain.PoolEntry, 0, len(p.EntryIDs))
	for _, id := range p.EntryIDs {
		e, ok := s.pool[id]
		if !ok {
			return nil, errors.NotFound("generated question not found: id=%d", id)
		}
		if e.Selected {
			return nil, errors.Conflict("generated question already selected: id=%d", id)
		}
		entries = append(entries, e)
	}

	var t *domain.Test
	if p.NewTest == nil {
		var ok bool
		if t, ok = s.tests[p.TestID]; !ok {
			return nil, errors.NotFound("test not found: test=%s", p.TestID)
		}
	} else {
		c, ok := s.companies[p.NewTest.CompanyID]
		if !ok {
			return nil, errors.NotFound("company not found: company=%s", p.NewTest.CompanyID)
		}
		t = &domain.Test{
			ID:          domain.NewTestID(c.ID),
			CompanyID:   c.ID,
			CompanyName: c.Name,
			Title:       p.NewTest.Title,
			Duration:    p.NewTest.Duration,
		}
	}

	// Nothing has been written up to here, every precondition has been checked.
	existing := len(t.Questions)
	questions := make([]domain.Question, 0, len(entries))
	for i, e := range entries {
		questions = append(questions, domain.PromoteDraft(e.Draft, existing+i+1))
	}

	t.Questions = append(t.Questions, cloneQuestions(questions)...)
	s.tests[t.ID] = t

	for _, e := range entries {
		id := t.ID
		e.Selected = true
		e.SelectedForTest = &id
	}

	res := *t
	res.Questions = nil
	return &domain.PromotionResult{Test: res, Questions: questions}, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func cloneSession(ss domain.Session) domain.Session {
	if ss.Ended != nil {
		ended := *ss.Ended
		ss.Ended = &ended
	}
	if ss.ScoreMCQ != nil {
		mcq := *ss.ScoreMCQ
		ss.ScoreMCQ = &mcq
	}
	ss.ScoreSubjective = maps.Clone(ss.ScoreSubjective)
	return ss
}

func cloneEntry(e domain.PoolEntry) domain.PoolEntry {
	e.Draft.Body = cloneBody(e.Draft.Body)
	if e.SelectedForTest != nil {
		id := *e.SelectedForTest
		e.SelectedForTest = &id
	}
	return e
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	if qs == nil {
		return nil
	}

	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.Body = cloneBody(q.Body)
		out[i] = q
	}
	return out
}

func cloneBody(b domain.Body) domain.Body {
	if m, ok := b.(domain.MCQ); ok {
		return domain.MCQ{Options: slices.Clone(m.Options)}
	}
	return b
}
