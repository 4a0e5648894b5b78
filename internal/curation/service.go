// Package curation moves generated questions through the HR review pool:
// generate drafts, review them, then promote the chosen ones into a test or discard the rest.
package curation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/event"
	"github.com/Maahivarma/Exam-portal/internal/generator"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

const (
	DefaultCount    = 10
	MaxCount        = 50
	MaxSelect       = 20
	DefaultDuration = 30
)

type Config struct {
	EventBus  *event.Bus
	Store     store.Pool
	Generator generator.Generator
}

type Service struct {
	eb    *event.Bus
	store store.Pool
	gen   generator.Generator
}

func NewService(c Config) *Service {
	return &Service{
		eb:    c.EventBus,
		store: c.Store,
		gen:   c.Generator,
	}
}

type GenerateRequest struct {
	Topic string
	// Count defaults to 10 when zero.
	Count      int
	Difficulty string
	UserID     string
}

// Generate creates drafts for a topic and puts them in the pool. The generator never fails,
// so the only errors are invalid requests and storage failures.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) ([]domain.PoolEntry, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return nil, errors.Validation("topic is required")
	}

	if req.Count == 0 {
		req.Count = DefaultCount
	}
	if req.Count < 1 || req.Count > MaxCount {
		return nil, errors.Validation("count must be between 1 and %d", MaxCount)
	}

	if req.Difficulty == "" {
		req.Difficulty = generator.DifficultyMedium
	}
	if !generator.ValidDifficulty(req.Difficulty) {
		return nil, errors.Validation("difficulty must be one of easy, medium, hard: difficulty=%s", req.Difficulty)
	}

	drafts := s.gen.Generate(ctx, generator.Request{
		Topic:      req.Topic,
		Count:      req.Count,
		Difficulty: req.Difficulty,
	})

	entries := make([]domain.PoolEntry, 0, len(drafts))
	for _, d := range drafts {
		entries = append(entries, domain.PoolEntry{
			Topic:     req.Topic,
			Draft:     d,
			CreatedBy: req.UserID,
		})
	}

	if err := s.store.InsertDrafts(ctx, entries); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "curation: drafts generated",
		"topic", req.Topic,
		"count", len(entries),
		"difficulty", req.Difficulty,
		"user", req.UserID,
	)

	return entries, nil
}

type ListRequest struct {
	Topic  string
	UserID string
}

// List returns the drafts still waiting for review, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]domain.PoolEntry, error) {
	return s.store.ListUnselected(ctx, store.PoolFilter{
		Topic:     strings.TrimSpace(req.Topic),
		CreatedBy: req.UserID,
	})
}

type SelectRequest struct {
	EntryIDs []int64
	// TestID names an existing destination test. When empty NewTest describes the test to create.
	TestID  string
	NewTest *domain.NewTest
}

// Select promotes pool entries into questions of a test, all or nothing.
// Questions keep the order of EntryIDs.
func (s *Service) Select(ctx context.Context, req SelectRequest) (*domain.PromotionResult, error) {
	p, err := validateSelect(req)
	if err != nil {
		return nil, err
	}

	res, err := s.store.PromoteDrafts(ctx, p)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "curation: questions promoted",
		"test", res.Test.ID,
		"created", p.NewTest != nil,
		"questions", len(res.Questions),
	)

	s.eb.Publish(ctx, domain.EventQuestionsPromoted{
		TestID:    res.Test.ID,
		EntryIDs:  p.EntryIDs,
		Questions: res.Questions,
	})

	return res, nil
}

func validateSelect(req SelectRequest) (domain.Promotion, error) {
	if len(req.EntryIDs) == 0 {
		return domain.Promotion{}, errors.Validation("no questions selected")
	}
	if len(req.EntryIDs) > MaxSelect {
		return domain.Promotion{}, errors.Validation("maximum %d questions allowed", MaxSelect)
	}

	seen := make(map[int64]bool, len(req.EntryIDs))
	for _, id := range req.EntryIDs {
		if seen[id] {
			return domain.Promotion{}, errors.Conflict("question selected twice: id=%d", id)
		}
		seen[id] = true
	}

	p := domain.Promotion{EntryIDs: req.EntryIDs, TestID: strings.TrimSpace(req.TestID)}
	if p.TestID != "" {
		return p, nil
	}

	if req.NewTest == nil || req.NewTest.CompanyID == "" || strings.TrimSpace(req.NewTest.Title) == "" {
		return domain.Promotion{}, errors.Validation("company_id and test_title required for new test")
	}

	nt := *req.NewTest
	nt.Title = strings.TrimSpace(nt.Title)
	if nt.Duration == 0 {
		nt.Duration = DefaultDuration
	}
	if nt.Duration < 0 {
		return domain.Promotion{}, errors.Validation("test_duration must be positive: duration=%d", nt.Duration)
	}
	p.NewTest = &nt

	return p, nil
}

// Delete discards unselected drafts and returns how many were removed.
// Selected entries and unknown ids are skipped silently.
func (s *Service) Delete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, errors.Validation("no question ids provided")
	}

	n, err := s.store.DeleteUnselected(ctx, ids)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "curation: drafts deleted", "requested", len(ids), "deleted", n)

	return n, nil
}
