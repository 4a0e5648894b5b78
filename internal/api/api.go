// Package api exposes the assessment services over HTTP with gin.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maahivarma/Exam-portal/internal/analytics"
	"github.com/Maahivarma/Exam-portal/internal/auth"
	"github.com/Maahivarma/Exam-portal/internal/curation"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/leaderboard"
	"github.com/Maahivarma/Exam-portal/internal/proctor"
	"github.com/Maahivarma/Exam-portal/internal/score"
	"github.com/Maahivarma/Exam-portal/internal/session"
	"github.com/Maahivarma/Exam-portal/internal/store"
)

type Config struct {
	Catalog   store.Catalog
	Session   *session.Service
	Score     *score.Service
	Proctor   *proctor.Service
	Curation  *curation.Service
	Analytics *analytics.Service
	// Leaderboard is optional, its route answers 404 without it.
	Leaderboard *leaderboard.Service
	Auth        *auth.Authenticator
	// MaxUploadBytes bounds the multipart body of snapshot uploads.
	MaxUploadBytes int64
}

type API struct {
	catalog   store.Catalog
	session   *session.Service
	score     *score.Service
	proctor   *proctor.Service
	curation  *curation.Service
	analytics *analytics.Service
	lb        *leaderboard.Service
	auth      *auth.Authenticator
	maxUpload int64
}

func New(c Config) *API {
	a := &API{
		catalog:   c.Catalog,
		session:   c.Session,
		score:     c.Score,
		proctor:   c.Proctor,
		curation:  c.Curation,
		analytics: c.Analytics,
		lb:        c.Leaderboard,
		auth:      c.Auth,
		maxUpload: c.MaxUploadBytes,
	}
	if a.maxUpload <= 0 {
		a.maxUpload = 5 << 20
	}

	return a
}

// Register mounts every route under /api.
func (a *API) Register(r gin.IRouter) {
	g := r.Group("/api")

	g.GET("/companies", a.ListCompanies)
	g.GET("/tests", a.ListTests)
	g.GET("/test/:test_id", a.GetTest)
	g.POST("/start-session", a.StartSession)
	g.POST("/submit", a.Submit)
	g.POST("/log", a.LogEvent)
	g.POST("/upload-snapshot", a.UploadSnapshot)

	hr := g.Group("/hr", a.auth.RequireRole(auth.RoleHR))

	hr.POST("/generate-questions", a.GenerateQuestions)
	hr.GET("/generated-questions", a.ListGeneratedQuestions)
	hr.POST("/select-questions", a.SelectQuestions)
	hr.DELETE("/delete-questions", a.DeleteQuestions)
	hr.GET("/analytics", a.Analytics)
	hr.GET("/question-performance/:test_id", a.QuestionPerformance)
	hr.GET("/candidates/:test_id", a.Candidates)
	hr.GET("/leaderboard/:test_id", a.Leaderboard)
	hr.GET("/sessions/:session_id/events", a.SessionEvents)
}

// fail renders err as {"code", "message"} with the HTTP status of its code.
func (a *API) fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

// bind decodes a JSON body, reporting decoding problems as validation errors.
func (a *API) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid request body: %v", err)))
		return false
	}
	return true
}

func ok(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}
