package domain

import "time"

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "SCHEDULED"
	StatusOngoing   MatchStatus = "ONGOING"
	StatusFinished  MatchStatus = "FINISHED"
	StatusCanceled  MatchStatus = "CANCELED"
)

// legalTransitions enumerates every allowed status change. FINISHED and
// CANCELED are terminal: they appear only as targets.
var legalTransitions = map[MatchStatus][]MatchStatus{
	StatusScheduled: {StatusOngoing, StatusCanceled},
	StatusOngoing:   {StatusFinished, StatusCanceled},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s MatchStatus) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// Question is a catalog entry, identified by a content hash so repeated
// imports of the same question de-duplicate. Immutable once created.
type Question struct {
	Hash          string    `json:"hash"`
	Category      string    `json:"category"`
	Difficulty    string    `json:"difficulty"`
	Text          string    `json:"text"`
	CorrectAnswer string    `json:"correctAnswer"`
	Distractors   [3]string `json:"distractors"`
}

// CategoryCount summarizes catalog availability for one category.
type CategoryCount struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
	Total  int `json:"total"`
}

// Match is one play session among a fixed roster of players.
type Match struct {
	ID         string        `json:"id"`
	HostID     string        `json:"hostId"`
	Status     MatchStatus   `json:"status"`
	Difficulty string        `json:"difficulty,omitempty"`
	StartedAt  *time.Time    `json:"startedAt,omitempty"`
	EndedAt    *time.Time    `json:"endedAt,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	Rounds     []Round       `json:"rounds,omitempty"`
	Players    []MatchPlayer `json:"players,omitempty"`
}

// QuestionCount is the number of questions frozen into the match.
func (m *Match) QuestionCount() int {
	n := 0
	for _, r := range m.Rounds {
		n += len(r.Questions)
	}
	return n
}

// Round is an ordered group of questions within a match sharing a
// category and difficulty. Sequence is 1-based and unique per match.
type Round struct {
	ID         string          `json:"id"`
	MatchID    string          `json:"matchId"`
	Sequence   int             `json:"sequence"`
	Category   string          `json:"category"`
	Difficulty string          `json:"difficulty"`
	Questions  []MatchQuestion `json:"questions,omitempty"`
}

// MatchQuestion is a frozen snapshot of a catalog question for one
// round: the four option texts in their assigned slots and which slot
// holds the correct answer. Later edits to the source question never
// reach it.
type MatchQuestion struct {
	ID           string    `json:"id"`
	MatchID      string    `json:"matchId"`
	RoundID      string    `json:"roundId"`
	Sequence     int       `json:"sequence"`
	QuestionHash string    `json:"questionHash"`
	Prompt       string    `json:"prompt"`
	Options      [4]string `json:"options"`
	CorrectSlot  int       `json:"-"`
}

// MatchPlayer is a player's participation record and running score
// within one match. Unique per (match, user).
type MatchPlayer struct {
	MatchID  string    `json:"matchId"`
	UserID   string    `json:"userId"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PlayerAnswer is one scored submission to one match question by one
// player. SelectedSlot is nil when the player timed out.
type PlayerAnswer struct {
	MatchQuestionID string    `json:"matchQuestionId"`
	MatchID         string    `json:"matchId"`
	UserID          string    `json:"userId"`
	SelectedSlot    *int      `json:"selectedSlot,omitempty"`
	Correct         bool      `json:"correct"`
	ResponseTimeMs  int64     `json:"responseTimeMs"`
	Points          int       `json:"points"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// Score is the finalized per-player result of a match. Created once at
// finalization and never updated afterwards.
type Score struct {
	MatchID           string `json:"matchId"`
	UserID            string `json:"userId"`
	TotalScore        int    `json:"totalScore"`
	CorrectAnswers    int    `json:"correctAnswers"`
	TotalQuestions    int    `json:"totalQuestions"`
	AvgResponseTimeMs int64  `json:"avgResponseTimeMs"`
}

// UserStats accumulates lifetime statistics for one user, merged at
// every match finalization.
type UserStats struct {
	UserID               string    `json:"userId"`
	GamesPlayed          int       `json:"gamesPlayed"`
	GamesWon             int       `json:"gamesWon"`
	TotalScore           int64     `json:"totalScore"`
	HighestScore         int       `json:"highestScore"`
	AverageScore         float64   `json:"averageScore"`
	CorrectAnswers       int64     `json:"correctAnswers"`
	TotalAnswers         int64     `json:"totalAnswers"`
	AvgResponseTimeMs    float64   `json:"avgResponseTimeMs"`
	BestCategory         string    `json:"bestCategory,omitempty"`
	BestCategoryAccuracy float64   `json:"bestCategoryAccuracy"`
	LastPlayedAt         time.Time `json:"lastPlayedAt"`
}
