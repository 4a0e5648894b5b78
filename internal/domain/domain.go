package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Company owns tests. Companies are managed outside the assessment core.
type Company struct {
	ID   string
	Name string
}

// Test is a servable assessment. It owns its questions and, through them, their options.
type Test struct {
	ID          string
	CompanyID   string
	CompanyName string
	Title       string
	Description string
	// Duration is the time limit in minutes.
	Duration  int
	Questions []Question
}

// Deadline returns the moment after which a submission for a session started at `started` is late.
func (t Test) Deadline(started time.Time, grace time.Duration) time.Time {
	return started.Add(time.Duration(t.Duration)*time.Minute + grace)
}

// NewTestID derives the id of a test created by a promotion: the company id plus 8 random hex digits.
func NewTestID(companyID string) string {
	return fmt.Sprintf("%s-%s", companyID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// SessionState is derived from the session's end timestamp.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionFinalized SessionState = "finalized"
)

// Session represents one candidate's timed attempt at one test.
type Session struct {
	SessionID string
	TestID    string
	Username  string
	Started   time.Time
	Ended     *time.Time
	// ScoreMCQ is nil until the session is finalized.
	ScoreMCQ        *decimal.Decimal
	ScoreSubjective map[string]decimal.Decimal
	// Late is set when the session was submitted after the test deadline.
	Late bool
}

func (s Session) State() SessionState {
	if s.Ended != nil {
		return SessionFinalized
	}
	return SessionActive
}

// SubjectiveAverage is the mean of the subjective scores, zero when there are none.
func (s Session) SubjectiveAverage() decimal.Decimal {
	if len(s.ScoreSubjective) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, v := range s.ScoreSubjective {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(s.ScoreSubjective))))
}

var (
	mcqWeight        = decimal.NewFromFloat(0.7)
	subjectiveWeight = decimal.NewFromFloat(0.3)
)

// Overall blends the scores as 70% mcq and 30% subjective average, rounded to 2 decimals.
// A session without an mcq score counts it as 0.
func (s Session) Overall() decimal.Decimal {
	mcq := decimal.Zero
	if s.ScoreMCQ != nil {
		mcq = *s.ScoreMCQ
	}
	return mcq.Mul(mcqWeight).Add(s.SubjectiveAverage().Mul(subjectiveWeight)).Round(2)
}

// ScoreResult is what the scoring engine writes to a session at finalization.
type ScoreResult struct {
	MCQ        decimal.Decimal
	Subjective map[string]decimal.Decimal
	Late       bool
}

// ProctorEvent is an append-only record of something observed during a session.
type ProctorEvent struct {
	ID        int64
	SessionID string
	Type      string
	At        time.Time
}

// Snapshot is the metadata of an image captured during a session.
// The bytes live in the blob store under Key.
type Snapshot struct {
	ID          int64
	SessionID   string
	Key         string
	ContentType string
	Size        int64
	At          time.Time
}

// PoolEntry is a generated draft waiting for HR review.
// Once selected it is kept as an audit record and never changes again.
type PoolEntry struct {
	ID              int64
	Topic           string
	Draft           Draft
	CreatedBy       string
	CreatedAt       time.Time
	Selected        bool
	SelectedForTest *string
}

// NewTest describes a test to be created as the destination of a promotion.
type NewTest struct {
	CompanyID string
	Title     string
	Duration  int
}

// Promotion is an atomic request to move pool entries into a test.
// Exactly one of TestID and NewTest is set.
type Promotion struct {
	EntryIDs []int64
	TestID   string
	NewTest  *NewTest
}

// PromotionResult lists the questions created by a promotion, in request order.
type PromotionResult struct {
	Test      Test
	Questions []Question
}

// Leaderboard is the live ranking of finalized candidates of a test, by overall score descending.
type Leaderboard struct {
	TestID  string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	SessionID string
	Username  string
	Score     float64
}
