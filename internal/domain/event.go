package domain

const (
	EventNameSessionStarted     = "session.started"
	EventNameSessionFinalized   = "session.finalized"
	EventNameQuestionsPromoted  = "curation.promoted"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

// EventSessionFinalized is published once per session, after its scores are stored.
type EventSessionFinalized struct {
	Session Session
	Test    Test
}

func (EventSessionFinalized) Name() string { return EventNameSessionFinalized }

type EventQuestionsPromoted struct {
	TestID    string
	EntryIDs  []int64
	Questions []Question
}

func (EventQuestionsPromoted) Name() string { return EventNameQuestionsPromoted }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
