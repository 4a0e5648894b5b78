package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Maahivarma/Exam-portal/internal/analytics"
	"github.com/Maahivarma/Exam-portal/internal/auth"
	"github.com/Maahivarma/Exam-portal/internal/curation"
	"github.com/Maahivarma/Exam-portal/internal/domain"
	"github.com/Maahivarma/Exam-portal/internal/errors"
	"github.com/Maahivarma/Exam-portal/internal/leaderboard"
)

type (
	GenerateQuestionsRequest struct {
		Topic      string `json:"topic"`
		Count      int    `json:"count"`
		Difficulty string `json:"difficulty"`
		// UserID defaults to the token subject.
		UserID string `json:"user_id"`
	}

	GeneratedQuestionsResponse struct {
		Success   bool                `json:"success"`
		Count     int                 `json:"count"`
		Questions []GeneratedQuestion `json:"questions"`
	}
)

func (a *API) GenerateQuestions(c *gin.Context) {
	var req GenerateQuestionsRequest
	if !a.bind(c, &req) {
		return
	}

	if req.UserID == "" {
		if claims, ok := auth.FromContext(c); ok {
			req.UserID = claims.Subject
		}
	}

	entries, err := a.curation.Generate(c.Request.Context(), curation.GenerateRequest{
		Topic:      req.Topic,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		UserID:     req.UserID,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, GeneratedQuestionsResponse{
		Success:   true,
		Count:     len(entries),
		Questions: toGeneratedQuestions(entries),
	})
}

func (a *API) ListGeneratedQuestions(c *gin.Context) {
	entries, err := a.curation.List(c.Request.Context(), curation.ListRequest{
		Topic:  c.Query("topic"),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, gin.H{"questions": toGeneratedQuestions(entries)})
}

type (
	SelectQuestionsRequest struct {
		QuestionIDs  []int64 `json:"question_ids"`
		TestID       string  `json:"test_id"`
		CompanyID    string  `json:"company_id"`
		TestTitle    string  `json:"test_title"`
		TestDuration int     `json:"test_duration"`
	}

	SelectQuestionsResponse struct {
		Success        bool               `json:"success"`
		TestID         string             `json:"test_id"`
		TestTitle      string             `json:"test_title"`
		QuestionsAdded int                `json:"questions_added"`
		Questions      []PromotedQuestion `json:"questions"`
	}
)

func (a *API) SelectQuestions(c *gin.Context) {
	var req SelectQuestionsRequest
	if !a.bind(c, &req) {
		return
	}

	req.TestID = strings.TrimSpace(req.TestID)
	sr := curation.SelectRequest{EntryIDs: req.QuestionIDs, TestID: req.TestID}
	if req.TestID == "" {
		sr.NewTest = &domain.NewTest{
			CompanyID: req.CompanyID,
			Title:     req.TestTitle,
			Duration:  req.TestDuration,
		}
	}

	res, err := a.curation.Select(c.Request.Context(), sr)
	if err != nil {
		a.fail(c, err)
		return
	}

	out := SelectQuestionsResponse{
		Success:        true,
		TestID:         res.Test.ID,
		TestTitle:      res.Test.Title,
		QuestionsAdded: len(res.Questions),
		Questions:      make([]PromotedQuestion, 0, len(res.Questions)),
	}
	for _, q := range res.Questions {
		out.Questions = append(out.Questions, PromotedQuestion{QID: q.QuestionID, Text: q.Text, Type: string(q.Kind())})
	}

	ok(c, out)
}

type DeleteQuestionsRequest struct {
	QuestionIDs []int64 `json:"question_ids"`
}

func (a *API) DeleteQuestions(c *gin.Context) {
	var req DeleteQuestionsRequest
	if !a.bind(c, &req) {
		return
	}

	n, err := a.curation.Delete(c.Request.Context(), req.QuestionIDs)
	if err != nil {
		a.fail(c, err)
		return
	}

	ok(c, gin.H{"success": true, "deleted_count": n})
}

type (
	RecentAttempt struct {
		SessionID string     `json:"session_id"`
		Username  string     `json:"username"`
		Started   time.Time  `json:"started"`
		Ended     *time.Time `json:"ended"`
		ScoreMCQ  *float64   `json:"score_mcq"`
	}

	ScoreBucket struct {
		Range string `json:"range"`
		Count int    `json:"count"`
	}

	TestAnalytics struct {
		TestID            string          `json:"test_id"`
		TestTitle         string          `json:"test_title"`
		Company           string          `json:"company"`
		TotalAttempts     int             `json:"total_attempts"`
		Completed         int             `json:"completed"`
		InProgress        int             `json:"in_progress"`
		AverageScore      float64         `json:"average_score"`
		ScoreDistribution []ScoreBucket   `json:"score_distribution"`
		RecentAttempts    []RecentAttempt `json:"recent_attempts"`
	}

	TestSummary struct {
		TestID        string  `json:"test_id"`
		TestTitle     string  `json:"test_title"`
		Company       string  `json:"company"`
		TotalAttempts int     `json:"total_attempts"`
		Completed     int     `json:"completed"`
		AverageScore  float64 `json:"average_score"`
		QuestionCount int     `json:"question_count"`
	}
)

// Analytics reports on one test when test_id is given, on every test otherwise.
func (a *API) Analytics(c *gin.Context) {
	ctx := c.Request.Context()

	if testID := c.Query("test_id"); testID != "" {
		st, err := a.analytics.TestStats(ctx, testID)
		if err != nil {
			a.fail(c, err)
			return
		}

		ok(c, toTestAnalytics(st))
		return
	}

	summaries, err := a.analytics.Overview(ctx)
	if err != nil {
		a.fail(c, err)
		return
	}

	tests := make([]TestSummary, 0, len(summaries))
	for _, s := range summaries {
		tests = append(tests, TestSummary{
			TestID:        s.TestID,
			TestTitle:     s.TestTitle,
			Company:       s.Company,
			TotalAttempts: s.TotalAttempts,
			Completed:     s.Completed,
			AverageScore:  number(s.AverageScore),
			QuestionCount: s.QuestionCount,
		})
	}

	ok(c, gin.H{"tests": tests, "total_tests": len(tests)})
}

func toTestAnalytics(st *analytics.TestStats) TestAnalytics {
	out := TestAnalytics{
		TestID:            st.TestID,
		TestTitle:         st.TestTitle,
		Company:           st.Company,
		TotalAttempts:     st.TotalAttempts,
		Completed:         st.Completed,
		InProgress:        st.InProgress,
		AverageScore:      number(st.AverageScore),
		ScoreDistribution: make([]ScoreBucket, 0, len(st.Distribution)),
		RecentAttempts:    make([]RecentAttempt, 0, len(st.RecentAttempts)),
	}

	for _, b := range st.Distribution {
		out.ScoreDistribution = append(out.ScoreDistribution, ScoreBucket{Range: b.Label, Count: b.Count})
	}

	for _, ss := range st.RecentAttempts {
		ra := RecentAttempt{
			SessionID: ss.SessionID,
			Username:  ss.Username,
			Started:   ss.Started,
			Ended:     ss.Ended,
		}
		if ss.ScoreMCQ != nil {
			v := number(*ss.ScoreMCQ)
			ra.ScoreMCQ = &v
		}
		out.RecentAttempts = append(out.RecentAttempts, ra)
	}

	return out
}

type QuestionStat struct {
	QuestionID       string   `json:"question_id"`
	QuestionText     string   `json:"question_text"`
	Type             string   `json:"type"`
	TotalAttempts    int      `json:"total_attempts"`
	EstimatedCorrect *int     `json:"estimated_correct,omitempty"`
	Estimated        bool     `json:"estimated"`
	Answerable       bool     `json:"answerable"`
	AverageScore     *float64 `json:"average_score,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
}

func (a *API) QuestionPerformance(c *gin.Context) {
	testID := c.Param("test_id")

	stats, err := a.analytics.QuestionPerformance(c.Request.Context(), testID)
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]QuestionStat, 0, len(stats))
	for _, s := range stats {
		qs := QuestionStat{
			QuestionID:    s.QuestionID,
			QuestionText:  s.Text,
			Type:          string(s.Kind),
			TotalAttempts: s.TotalAttempts,
			Estimated:     true,
			Answerable:    s.Answerable,
			Difficulty:    s.Difficulty,
		}
		if s.Kind == domain.KindMCQ {
			n := s.EstimatedCorrect
			qs.EstimatedCorrect = &n
		}
		if s.AverageScore != nil {
			v := number(*s.AverageScore)
			qs.AverageScore = &v
		}
		out = append(out, qs)
	}

	ok(c, gin.H{"test_id": testID, "questions": out})
}

type CandidateResult struct {
	Username      string    `json:"username"`
	SessionID     string    `json:"session_id"`
	Started       time.Time `json:"started"`
	Ended         time.Time `json:"ended"`
	MCQScore      float64   `json:"mcq_score"`
	SubjectiveAvg float64   `json:"subjective_avg"`
	OverallScore  float64   `json:"overall_score"`
	TimeTaken     float64   `json:"time_taken"`
	Late          bool      `json:"late"`
	Status        string    `json:"status"`
}

func (a *API) Candidates(c *gin.Context) {
	res, err := a.analytics.Candidates(c.Request.Context(), c.Param("test_id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]CandidateResult, 0, len(res.Candidates))
	for _, cd := range res.Candidates {
		out = append(out, CandidateResult{
			Username:      cd.Username,
			SessionID:     cd.SessionID,
			Started:       cd.Started,
			Ended:         cd.Ended,
			MCQScore:      number(cd.MCQScore),
			SubjectiveAvg: number(cd.SubjectiveAvg),
			OverallScore:  number(cd.OverallScore),
			TimeTaken:     cd.TimeTaken.Seconds(),
			Late:          cd.Late,
			Status:        "completed",
		})
	}

	ok(c, gin.H{
		"test_id":          res.TestID,
		"test_title":       res.TestTitle,
		"candidates":       out,
		"total_candidates": len(out),
	})
}

func (a *API) Leaderboard(c *gin.Context) {
	if a.lb == nil {
		a.fail(c, errors.NotFound("leaderboard is not enabled"))
		return
	}

	l, err := a.lb.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{TestID: c.Param("test_id")})
	if err != nil {
		a.fail(c, err)
		return
	}

	type entry struct {
		Rank      int     `json:"rank"`
		SessionID string  `json:"session_id"`
		Username  string  `json:"username"`
		Score     float64 `json:"score"`
	}

	entries := make([]entry, 0, len(l.Entries))
	for i, e := range l.Entries {
		entries = append(entries, entry{Rank: i + 1, SessionID: e.SessionID, Username: e.Username, Score: e.Score})
	}

	ok(c, gin.H{"test_id": l.TestID, "entries": entries})
}

func (a *API) SessionEvents(c *gin.Context) {
	events, err := a.proctor.Events(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		a.fail(c, err)
		return
	}

	type event struct {
		ID    int64     `json:"id"`
		Event string    `json:"event"`
		At    time.Time `json:"at"`
	}

	out := make([]event, 0, len(events))
	for _, e := range events {
		out = append(out, event{ID: e.ID, Event: e.Type, At: e.At})
	}

	ok(c, gin.H{"session_id": c.Param("session_id"), "events": out})
}
