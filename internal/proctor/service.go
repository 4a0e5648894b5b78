// Package proctor records what happens during a session: client reported events and webcam snapshots.
// Records are append-only.
package proctor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Maahivarma/Exam-portal/internal/blob"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

const defaultMaxSnapshotBytes = 5 << 20

type Config struct {
	Store store.Sessions
	Blob  blob.Store
	// MaxSnapshotBytes defaults to 5 MiB.
	MaxSnapshotBytes int64
	Now              func() time.Time
}

type Service struct {
	store    store.Sessions
	blob     blob.Store
	maxBytes int64
	now      func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		store:    c.Store,
		blob:     c.Blob,
		maxBytes: c.MaxSnapshotBytes,
		now:      c.Now,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxSnapshotBytes
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Record appends an event to the session log with the server time. Events are kept as reported,
// duplicates included, and are accepted for finalized sessions too.
func (s *Service) Record(ctx context.Context, sessionID, eventType string) (*domain.ProctorEvent, error) {
	eventType = strings.TrimSpace(eventType)
	if sessionID == "" || eventType == "" {
		return nil, errors.Validation("session_id and event are required")
	}

	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	e := &domain.ProctorEvent{
		SessionID: sessionID,
		Type:      eventType,
		At:        s.now().UTC(),
	}
	if err := s.store.AppendProctorEvent(ctx, e); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "proctor: event recorded", "session", sessionID, "event", eventType)

	return e, nil
}

func (s *Service) Events(ctx context.Context, sessionID string) ([]domain.ProctorEvent, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	return s.store.ListProctorEvents(ctx, sessionID)
}

type UploadSnapshotRequest struct {
	SessionID   string
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadSnapshot stores an image in the blob store and records its metadata.
func (s *Service) UploadSnapshot(ctx context.Context, req UploadSnapshotRequest) (*domain.Snapshot, error) {
	if req.SessionID == "" || req.Body == nil {
		return nil, errors.Validation("session_id and image are required")
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, errors.Validation("snapshot must be an image: content_type=%s", req.ContentType)
	}

	if _, err := s.store.GetSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := snapshotKey(req.SessionID, req.Filename, now)

	// Read one byte past the limit to tell an exact-size image from an oversized one.
	body := &countingReader{r: io.LimitReader(req.Body, s.maxBytes+1)}
	if err := s.blob.Put(ctx, key, req.ContentType, &limitedReader{r: body, max: s.maxBytes}); err != nil {
		if body.n > s.maxBytes {
			return nil, errors.Validation("snapshot is larger than %d bytes", s.maxBytes)
		}
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	snap := &domain.Snapshot{
		SessionID:   req.SessionID,
		Key:         key,
		ContentType: req.ContentType,
		Size:        body.n,
		At:          now,
	}
	if err := s.store.AppendSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "proctor: snapshot stored", "session", req.SessionID, "key", key, "size", snap.Size)

	return snap, nil
}

func snapshotKey(sessionID, filename string, at time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("snapshots/%s/%s-%s%s", sessionID, at.Format("20060102T150405"), uuid.NewString()[:8], ext)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var errTooLarge = fmt.Errorf("snapshot too large")

// limitedReader fails once more than max bytes went through it, which aborts the blob write.
type limitedReader struct {
	r   *countingReader
	max int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if l.r.n > l.max {
		return 0, errTooLarge
	}
	return n, err
}
