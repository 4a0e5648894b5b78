package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/proctor"
	"github.com/Maahivarma/Exam-portal/internal/score"
	"github.com/Maahivarma/Exam-portal/internal/session"
)

func (a *API) ListCompanies(c *gin.Context) {
	ctx := c.Request.Context()

	companies, err := a.catalog.ListCompanies(ctx)
	if err != nil {
		a.fail(c, err)
		return
	}

	tests, err := a.catalog.ListTests(ctx)
	if err != nil {
		a.fail(c, err)
		return
	}

	byCompany := make(map[string][]Test)
	for _, t := range tests {
		byCompany[t.CompanyID] = append(byCompany[t.CompanyID], toTest(t))
	}

	out := make([]Company, 0, len(companies))
	for _, co := range companies {
		ts := byCompany[co.ID]
		if ts == nil {
			ts = []Test{}
		}
		out = append(out, Company{ID: co.ID, Name: co.Name, Tests: ts})
	}

	ok(c, out)
}

func (a *API) ListTests(c *gin.Context) {
	tests, err := a.catalog.ListTests(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]Test, 0, len(tests))
	for _, t := range tests {
		out = append(out, toTest(t))
	}

	ok(c, out)
}

func (a *API) GetTest(c *gin.Context) {
	t, err := a.catalog.GetTest(c.Request.Context(), c.Param("test_id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, toTest(*t))
}

type (
	StartSessionRequest struct {
		TestID   string `json:"test_id"`
		Username string `json:"username"`
	}

	StartSessionResponse struct {
		SessionID string `json:"session_id"`
	}
)

func (a *API) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if !a.bind(c, &req) {
		return
	}

	ss, err := a.session.Start(c.Request.Context(), session.StartRequest{
		TestID:   req.TestID,
		Username: req.Username,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, StartSessionResponse{SessionID: ss.SessionID})
}

type (
	SubmitRequest struct {
		SessionID string            `json:"session_id"`
		Answers   map[string]string `json:"answers"`
	}

	SubmitResponse struct {
		MCQScore         float64            `json:"mcq_score"`
		SubjectiveScores map[string]float64 `json:"subjective_scores"`
		Late             bool               `json:"late"`
	}
)

func (a *API) Submit(c *gin.Context) {
	var req SubmitRequest
	if !a.bind(c, &req) {
		return
	}

	res, err := a.score.Submit(c.Request.Context(), score.SubmitRequest{
		SessionID: req.SessionID,
		Answers:   req.Answers,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, SubmitResponse{
		MCQScore:         number(res.MCQ),
		SubjectiveScores: numbers(res.Subjective),
		Late:             res.Late,
	})
}

type (
	LogEventRequest struct {
		SessionID string `json:"session_id"`
		Event     string `json:"event"`
	}

	StatusResponse struct {
		Status string `json:"status"`
	}
)

func (a *API) LogEvent(c *gin.Context) {
	var req LogEventRequest
	if !a.bind(c, &req) {
		return
	}

	if _, err := a.proctor.Record(c.Request.Context(), req.SessionID, req.Event); err != nil {
		a.fail(c, err)
		return
	}

	ok(c, StatusResponse{Status: "ok"})
}

// UploadSnapshot accepts a multipart form with session_id and an image file.
func (a *API) UploadSnapshot(c *gin.Context) {
	// The multipart envelope gets some room on top of the image itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUpload+1<<20)

	fh, err := c.FormFile("image")
	if err != nil {
		a.fail(c, errors.Validation("image is required: %v", err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		a.fail(c, errors.Internal(err))
		return
	}
	defer f.Close()

	_, err = a.proctor.UploadSnapshot(c.Request.Context(), proctor.UploadSnapshotRequest{
		SessionID:   c.PostForm("session_id"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, StatusResponse{Status: "ok"})
}
