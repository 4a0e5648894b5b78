package proctor_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maahivarma/Exam-portal/internal/blob"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/proctor"
	"github.com/Maahivarma/Exam-portal/internal/store/memory"
)

var now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func makeService(t *testing.T) (*proctor.Service, *blob.FS, *memory.Store) {
	t.Helper()

	st := memory.New()
	st.Seed()
	require.NoError(t, st.CreateSession(context.Background(), &domain.Session{
		SessionID: "s1",
		TestID:    "tcs-backend-1",
		Username:  "alice",
		Started:   now,
	}))

	fs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)

	return proctor.NewService(proctor.Config{
		Store:            st,
		Blob:             fs,
		MaxSnapshotBytes: 16,
		Now:              func() time.Time { return now },
	}), fs, st
}

func TestService_Record(t *testing.T) {
	tests := map[string]struct {
		sessionID string
		event     string
		assert    func(t *testing.T, e *domain.ProctorEvent, err error)
	}{
		"should append an event with the server time": {
			sessionID: "s1",
			event:     "tab_switch",
			assert: func(t *testing.T, e *domain.ProctorEvent, err error) {
				require.NoError(t, err)
				assert.Equal(t, "tab_switch", e.Type)
				assert.Equal(t, now, e.At)
				assert.NotZero(t, e.ID)
			},
		},
		"should fail for an unknown session": {
			sessionID: "nope",
			event:     "tab_switch",
			assert: func(t *testing.T, e *domain.ProctorEvent, err error) {
				assert.True(t, errors.Is(err, errors.CodeNotFound))
			},
		},
		"should fail without an event type": {
			sessionID: "s1",
			event:     " ",
			assert: func(t *testing.T, e *domain.ProctorEvent, err error) {
				assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, _, _ := makeService(t)
			e, err := s.Record(context.Background(), tt.sessionID, tt.event)
			tt.assert(t, e, err)
		})
	}
}

func TestService_Events_KeepsDuplicatesInOrder(t *testing.T) {
	s, _, _ := makeService(t)
	ctx := context.Background()

	for _, e := range []string{"blur", "blur", "focus"} {
		_, err := s.Record(ctx, "s1", e)
		require.NoError(t, err)
	}

	events, err := s.Events(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "blur", events[0].Type)
	assert.Equal(t, "blur", events[1].Type)
	assert.Equal(t, "focus", events[2].Type)

	_, err = s.Events(ctx, "nope")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_UploadSnapshot(t *testing.T) {
	tests := map[string]struct {
		req    proctor.UploadSnapshotRequest
		assert func(t *testing.T, fs *blob.FS, snap *domain.Snapshot, err error)
	}{
		"should store the image and its metadata": {
			req: proctor.UploadSnapshotRequest{SessionID: "s1", Filename: "cam.PNG", ContentType: "image/png", Body: strings.NewReader("0123456789abcdef")},
			assert: func(t *testing.T, fs *blob.FS, snap *domain.Snapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(16), snap.Size)
				assert.Regexp(t, `^snapshots/s1/20240101T100000-[0-9a-f]{8}\.png$`, snap.Key)

				f, err := fs.Open(snap.Key)
				require.NoError(t, err)
				defer f.Close()
				b, err := io.ReadAll(f)
				require.NoError(t, err)
				assert.Equal(t, "0123456789abcdef", string(b))
			},
		},
		"should reject a file that is not an image": {
			req: proctor.UploadSnapshotRequest{SessionID: "s1", Filename: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")},
			assert: func(t *testing.T, fs *blob.FS, snap *domain.Snapshot, err error) {
				assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},
		"should reject an image over the size limit": {
			req: proctor.UploadSnapshotRequest{SessionID: "s1", Filename: "a.png", ContentType: "image/png", Body: bytes.NewReader(make([]byte, 17))},
			assert: func(t *testing.T, fs *blob.FS, snap *domain.Snapshot, err error) {
				assert.True(t, errors.Is(err, errors.CodeInvalidArgument))
			},
		},
		"should fail for an unknown session": {
			req: proctor.UploadSnapshotRequest{SessionID: "nope", Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("x")},
			assert: func(t *testing.T, fs *blob.FS, snap *domain.Snapshot, err error) {
				assert.True(t, errors.Is(err, errors.CodeNotFound))
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, fs, _ := makeService(t)
			snap, err := s.UploadSnapshot(context.Background(), tt.req)
			tt.assert(t, fs, snap, err)
		})
	}
}
