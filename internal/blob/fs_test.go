package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maahivarma/Exam-portal/internal/blob"
)

func TestFS_Put(t *testing.T) {
	tests := map[string]struct {
		key     string
		wantErr bool
	}{
		"nested key":          {key: "snapshots/s1/a.png"},
		"flat key":            {key: "a.png"},
		"escaping key":        {key: "../a.png", wantErr: true},
		"deeply escaping key": {key: "snapshots/../../a.png", wantErr: true},
		"empty key":           {key: "", wantErr: true},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := blob.NewFS(t.TempDir())
			require.NoError(t, err)

			err = s.Put(context.Background(), tt.key, "image/png", strings.NewReader("png-bytes"))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			f, err := s.Open(tt.key)
			require.NoError(t, err)
			defer f.Close()

			b, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, "png-bytes", string(b))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := blob.New(blob.Config{Driver: "s3"})
	assert.Error(t, err)

	_, err = blob.New(blob.Config{Driver: blob.DriverOSS})
	assert.Error(t, err, "oss requires credentials")

	s, err := blob.New(blob.Config{Driver: blob.DriverFS, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blob.FS{}, s)
}
