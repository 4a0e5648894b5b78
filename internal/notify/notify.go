// Package notify pushes domain events out of the process: live leaderboard updates on
// Redis pub/sub channels for browsers, and short HR messages on Telegram.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/event"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		TestID  string             `json:"test_id"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Rank      int    `json:"rank"`
		SessionID string `json:"session_id"`
		Username  string `json:"username"`
		Score     string `json:"score"`
	}
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Messenger delivers a plain text message to HR.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

type Config struct {
	EventBus *event.Bus
	Redis    Redis
	Prefix   string
	// Messenger is optional.
	Messenger Messenger
}

type Notifier struct {
	redis     Redis
	prefix    string
	messenger Messenger
}

// New subscribes the notifier to the event bus.
func New(c Config) *Notifier {
	n := &Notifier{
		redis:     c.Redis,
		prefix:    c.Prefix,
		messenger: c.Messenger,
	}

	if n.redis != nil {
		event.On(c.EventBus, n.PublishLeaderboardUpdated)
	}
	if n.messenger != nil {
		event.On(c.EventBus, n.NotifySessionFinalized)
		event.On(c.EventBus, n.NotifyQuestionsPromoted)
	}

	return n
}

// PublishLeaderboardUpdated sends the new ranking to the test channel, which HR dashboards follow,
// and to the channel of every ranked session, so each candidate sees their own position.
func (n *Notifier) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	l := e.Leaderboard

	data := Leaderboard{
		TestID:  l.TestID,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for i, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			Rank:      i + 1,
			SessionID: entry.SessionID,
			Username:  entry.Username,
			Score:     strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
	}

	if err := n.publish(ctx, n.testChannel(l.TestID), e.Name(), data); err != nil {
		return err
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return n.publish(ctx, n.sessionChannel(entry.SessionID), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (n *Notifier) publish(ctx context.Context, channel, event string, data any) error {
	msg := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return n.redis.Publish(ctx, channel, b).Err()
}

func (n *Notifier) testChannel(testID string) string {
	return fmt.Sprintf("%s:test:%s", n.prefix, testID)
}

func (n *Notifier) sessionChannel(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", n.prefix, sessionID)
}

func (n *Notifier) NotifySessionFinalized(ctx context.Context, e domain.EventSessionFinalized) error {
	ss := e.Session

	mcq := "0"
	if ss.ScoreMCQ != nil {
		mcq = ss.ScoreMCQ.String()
	}

	text := fmt.Sprintf("%s finished %q (%s)\nMCQ: %s%%, overall: %s",
		ss.Username, e.Test.Title, e.Test.ID, mcq, ss.Overall().String())
	if ss.Late {
		text += "\nSubmitted after the time limit."
	}

	return n.messenger.Send(ctx, text)
}

func (n *Notifier) NotifyQuestionsPromoted(ctx context.Context, e domain.EventQuestionsPromoted) error {
	return n.messenger.Send(ctx, fmt.Sprintf("%d generated questions added to test %s", len(e.Questions), e.TestID))
}
