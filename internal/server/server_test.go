package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maahivarma/Exam-portal/internal/config"
	"github.com/Maahivarma/Exam-portal/internal/server"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		arrange func(c *server.Config)
		wantErr string
	}{
		"defaults should be valid": {
			arrange: func(c *server.Config) {},
		},
		"should reject an unknown storage driver": {
			arrange: func(c *server.Config) { c.Storage.Driver = "sqlite" },
			wantErr: "storage.driver",
		},
		"should reject an unknown grader": {
			arrange: func(c *server.Config) { c.Scoring.Grader = "llm" },
			wantErr: "scoring.grader",
		},
		"should reject a negative grace": {
			arrange: func(c *server.Config) { c.Session.LateGrace = -time.Second },
			wantErr: "session.lategrace",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := server.DefaultConfig()
			tt.arrange(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig_LateGrace(t *testing.T) {
	c := server.DefaultConfig()
	require.NoError(t, config.Load("", &c))
	assert.Equal(t, 30*time.Second, c.Session.LateGrace)

	t.Setenv("EXAM_SESSION_LATEGRACE", "0s")

	c = server.DefaultConfig()
	require.NoError(t, config.Load("", &c))
	assert.Zero(t, c.Session.LateGrace)
}

func TestInit_Memory(t *testing.T) {
	c := server.DefaultConfig()
	c.Auth.Secret = "secret"
	c.Blob.Dir = t.TempDir()

	s, err := server.Init(context.Background(), c)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tests", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tcs-backend-1")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hr/analytics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInit_WithoutSecret(t *testing.T) {
	c := server.DefaultConfig()
	c.Blob.Dir = t.TempDir()

	_, err := server.Init(context.Background(), c)
	assert.Error(t, err)
}
