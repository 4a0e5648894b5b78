// Package store defines the persistence contracts of the assessment core.
// Implementations live in the postgres and memory subpackages and must return
// coded errors (errors.CodeNotFound, errors.CodeConflict) so services can pass them through.
package store

import (
	"context"
	"time"

	"github.com/Maahivarma/Exam-portal/internal/domain"
)

// Catalog is the read side of companies and tests.
type Catalog interface {
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	// ListTests returns tests without their questions.
	ListTests(ctx context.Context) ([]domain.Test, error)
	// GetTest returns the test with its questions and options, ordered by position.
	GetTest(ctx context.Context, testID string) (*domain.Test, error)
	// CountQuestions returns the number of questions per test id.
	CountQuestions(ctx context.Context) (map[string]int, error)
}

// Sessions persists candidate sessions and everything they own.
type Sessions interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	// FinalizeSession sets ended and the scores in a single compare-and-set on ended being unset.
	// A finalized session yields CodeConflict and is left untouched.
	FinalizeSession(ctx context.Context, sessionID string, ended time.Time, r domain.ScoreResult) (*domain.Session, error)
	// ListSessions returns every session of a test, newest first.
	ListSessions(ctx context.Context, testID string) ([]domain.Session, error)

	AppendProctorEvent(ctx context.Context, e *domain.ProctorEvent) error
	ListProctorEvents(ctx context.Context, sessionID string) ([]domain.ProctorEvent, error)
	AppendSnapshot(ctx context.Context, s *domain.Snapshot) error
}

// PoolFilter narrows pool listings. Empty fields match everything.
type PoolFilter struct {
	Topic     string
	CreatedBy string
}

// Pool holds generated drafts and promotes them into tests.
type Pool interface {
	// InsertDrafts stores new unselected entries and fills their ids and creation time.
	InsertDrafts(ctx context.Context, entries []domain.PoolEntry) error
	// ListUnselected returns unselected entries, newest first.
	ListUnselected(ctx context.Context, f PoolFilter) ([]domain.PoolEntry, error)
	GetEntries(ctx context.Context, ids []int64) ([]domain.PoolEntry, error)
	// DeleteUnselected removes the given entries that are not selected and reports how many were removed.
	DeleteUnselected(ctx context.Context, ids []int64) (int, error)
	// PromoteDrafts atomically creates the destination test if needed, copies the entries into new
	// questions and marks them selected. Missing entries, tests or companies yield CodeNotFound,
	// already selected entries CodeConflict; on any error nothing is written.
	PromoteDrafts(ctx context.Context, p domain.Promotion) (*domain.PromotionResult, error)
}

// Store is the full persistence surface used by the server.
type Store interface {
	Catalog
	Sessions
	Pool

	Ping(ctx context.Context) error
	Close()
}
