package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service keeps a live ranking of finalized sessions per test in a Redis sorted set,
// scored by the overall score. It is fed by session.finalized events.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	event.On(s.eb, s.UpdateLeaderboard)

	return s
}

type GetLeaderboardRequest struct {
	TestID string
}

// GetLeaderboard returns the ranking of a test, best first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.TestID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: test=%s", req.TestID))
	}

	ids := make([]string, 0, len(res))
	for _, z := range res {
		ids = append(ids, z.Member.(string))
	}

	names, err := s.redis.HMGet(ctx, s.getNamesKey(req.TestID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard names: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for i, z := range res {
		name, _ := names[i].(string)
		entries = append(entries, domain.LeaderboardEntry{
			SessionID: ids[i],
			Username:  name,
			Score:     z.Score,
		})
	}

	return &domain.Leaderboard{
		TestID:  req.TestID,
		Entries: entries,
	}, nil
}

// UpdateLeaderboard records the overall score of a finalized session.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventSessionFinalized) error {
	ss := e.Session
	if ss.Ended == nil {
		return fmt.Errorf("update leaderboard: session %s is not finalized", ss.SessionID)
	}

	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.getLeaderboardKey(ss.TestID), redis.Z{
			Score:  ss.Overall().InexactFloat64(),
			Member: ss.SessionID,
		})
		p.HSet(ctx, s.getNamesKey(ss.TestID), ss.SessionID, ss.Username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, ss.TestID, *ss.Ended)
}

// schedulePublishLeaderboard publishes the leaderboard changes after a certain interval.
// Instead of publishing leaderboard changes immediately, publishes them after a certain interval.
// Because many sessions of a test can finish in a short time, this reduces the number of published events.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, testID string, at time.Time) error {
	// This is a simple way to prevent multiple instances of the service from publishing the leaderboard.
	// But it's not perfect and can be improved.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(testID), at.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, testID, at)
}

func (s *Service) publishLeaderboard(ctx context.Context, testID string, at time.Time) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		TestID: testID,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: test=%s: %w", testID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return s.redis.Set(ctx, s.getLeaderboardTimeKey(testID), at.UnixMilli(), publishInterval).Err()
}

func (s *Service) getLeaderboardKey(testID string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, testID)
}

func (s *Service) getNamesKey(testID string) string {
	return fmt.Sprintf("%s:%s:names", s.prefix, testID)
}

func (s *Service) getLeaderboardTimeKey(testID string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, testID)
}
