//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Maahivarma/Exam-portal/internal/auth"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/notify"
)

// The server is expected to run with redis enabled under the "local" prefix and EXAM_AUTH_SECRET set.
const (
	baseURL = "http://localhost:8000"
	testID  = "tcs-backend-1"
)

func TestExam(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		wg    = new(sync.WaitGroup)
		users = []string{"u1", "u2", "u3"}
		// u1 answers right, the others pick the wrong option.
		answers = map[string]string{"u1": "o2", "u2": "o1", "u3": "o1"}
	)

	// Prepare Redis subscriber
	subscribeToTest(t, makeRedis(t), wg, testID)

	sessions := make(map[string]string, len(users))
	for _, u := range users {
		var resp struct {
			SessionID string `json:"session_id"`
		}
		call(t, ctx, "/api/start-session", "", map[string]string{"test_id": testID, "username": u}, &resp)
		sessions[u] = resp.SessionID
	}

	var eg errgroup.Group
	for _, u := range users {
		u := u
		eg.Go(func() error {
			var resp struct {
				MCQScore float64 `json:"mcq_score"`
				Late     bool    `json:"late"`
			}
			body := map[string]any{
				"session_id": sessions[u],
				"answers":    map[string]string{"q1": answers[u], "q2": "REST maps resources to HTTP verbs"},
			}
			if err := do(ctx, http.MethodPost, "/api/submit", "", body, &resp); err != nil {
				return fmt.Errorf("user %q submit: %w", u, err)
			}

			t.Logf("User %q submitted: mcq=%.2f, late=%t", u, resp.MCQScore, resp.Late)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	time.Sleep(2 * time.Second)

	var stats struct {
		Completed    int     `json:"completed"`
		AverageScore float64 `json:"average_score"`
	}
	call(t, ctx, "/api/hr/analytics?test_id="+testID, hrToken(t), nil, &stats)
	t.Logf("Analytics: completed=%d, average=%.2f", stats.Completed, stats.AverageScore)

	wg.Wait()
}

func hrToken(t *testing.T) string {
	c := auth.DefaultConfig()
	c.Secret = os.Getenv("EXAM_AUTH_SECRET")

	a, err := auth.New(c)
	require.NoError(t, err)

	tok, err := a.Mint("demo-hr", auth.RoleHR)
	require.NoError(t, err)

	return "Bearer " + tok
}

// call POSTs body as JSON, or GETs when body is nil.
func call(t *testing.T, ctx context.Context, path, token string, body, out any) {
	method := http.MethodPost
	if body == nil {
		method = http.MethodGet
	}

	require.NoError(t, do(ctx, method, path, token, body, out))
}

func do(ctx context.Context, method, path, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func subscribeToTest(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, testID string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("local:test:%s", testID))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameLeaderboardUpdated:
				var l notify.Leaderboard
				if err := json.Unmarshal(n.Data, &l); err != nil {
					t.Logf("unmarshal leaderboard: %v", err)
					continue
				}

				t.Logf("%s leaderboard:\n%s", testID, formatLeaderboard(l))
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, pattern string) <-chan *redis.Message {
	// Receiving stops at the deadline, which ends the test.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	sub := rc.PSubscribe(ctx, pattern)
	t.Cleanup(func() { sub.Close() })

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatLeaderboard(l notify.Leaderboard) string {
	var s string
	for _, e := range l.Entries {
		s += fmt.Sprintf("%d. %s: %s\n", e.Rank, e.Username, e.Score)
	}
	return s
}
