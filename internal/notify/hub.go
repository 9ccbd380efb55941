package notify

import (
	"sync"

	"go.uber.org/zap"

	"trivia-match-service/internal/domain"
)

// Event is one frame on the real-time channel.
type Event struct {
	Type            string             `json:"type"`
	MatchID         string             `json:"matchId"`
	Status          domain.MatchStatus `json:"status,omitempty"`
	MatchQuestionID string             `json:"matchQuestionId,omitempty"`
	UserID          string             `json:"userId,omitempty"`
	Correct         *bool              `json:"correct,omitempty"`
	PointsAwarded   int                `json:"pointsAwarded,omitempty"`
	Scores          []domain.Score     `json:"scores,omitempty"`
}

const (
	EventStatus   = "status"
	EventAnswer   = "answer"
	EventFinished = "finished"
)

// Hub fans engine events out to per-match subscribers. It implements
// app.Notifier; delivery is best-effort and never blocks the engine.
type Hub struct {
	log *zap.SugaredLogger

	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		log:  log,
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe returns a channel receiving events for one match. The
// caller must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(matchID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[matchID] == nil {
		h.subs[matchID] = make(map[chan Event]struct{})
	}
	h.subs[matchID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[matchID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, matchID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) MatchStatusChanged(matchID string, status domain.MatchStatus) {
	h.publish(matchID, Event{Type: EventStatus, MatchID: matchID, Status: status})
}

func (h *Hub) AnswerScored(matchID, matchQuestionID, userID string, correct bool, points int) {
	c := correct
	h.publish(matchID, Event{
		Type:            EventAnswer,
		MatchID:         matchID,
		MatchQuestionID: matchQuestionID,
		UserID:          userID,
		Correct:         &c,
		PointsAwarded:   points,
	})
}

func (h *Hub) MatchFinished(matchID string, scores []domain.Score) {
	h.publish(matchID, Event{Type: EventFinished, MatchID: matchID, Scores: scores})
}

func (h *Hub) publish(matchID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[matchID] {
		select {
		case ch <- ev:
		default:
			// Drop the oldest frame so a slow client never blocks the engine.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
				h.log.Debugw("dropping event for slow subscriber", "matchId", matchID, "type", ev.Type)
			}
		}
	}
}
