package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trivia-match-service/internal/domain"
)

// MatchStore is an in-process implementation of app.MatchStore. A
// single mutex makes every operation atomic, which is all the engine
// requires of a store; per-question ordering is the engine's job.
type MatchStore struct {
	mu         sync.RWMutex
	matches    map[string]*matchRecord
	byQuestion map[string]string // match question ID -> match ID
	stats      map[string]domain.UserStats
}

type matchRecord struct {
	match     domain.Match
	questions map[string]domain.MatchQuestion           // match question ID -> snapshot
	players   map[string]*domain.MatchPlayer            // user ID -> player
	answers   map[string]map[string]domain.PlayerAnswer // match question ID -> user ID -> answer
	scores    []domain.Score
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches:    make(map[string]*matchRecord),
		byQuestion: make(map[string]string),
		stats:      make(map[string]domain.UserStats),
	}
}

func (s *MatchStore) CreateMatch(_ context.Context, match *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[match.ID]; exists {
		return fmt.Errorf("match %s already exists", match.ID)
	}

	rec := &matchRecord{
		match:     cloneMatch(match),
		questions: make(map[string]domain.MatchQuestion),
		players:   make(map[string]*domain.MatchPlayer),
		answers:   make(map[string]map[string]domain.PlayerAnswer),
	}
	for _, r := range match.Rounds {
		for _, q := range r.Questions {
			rec.questions[q.ID] = q
			s.byQuestion[q.ID] = match.ID
		}
	}
	for _, p := range match.Players {
		player := p
		rec.players[p.UserID] = &player
	}
	s.matches[match.ID] = rec
	return nil
}

func (s *MatchStore) GetMatch(_ context.Context, matchID string) (domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return domain.Match{}, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	out := cloneMatch(&rec.match)
	// Player rows carry the running score, which lives in rec.players.
	out.Players = out.Players[:0]
	for _, p := range rec.match.Players {
		out.Players = append(out.Players, *rec.players[p.UserID])
	}
	return out, nil
}

func (s *MatchStore) MatchStatus(_ context.Context, matchID string) (domain.MatchStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	return rec.match.Status, nil
}

func (s *MatchStore) SetMatchStatus(_ context.Context, matchID string, from, to domain.MatchStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	if rec.match.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: match %s is %s, cannot move %s -> %s",
			domain.ErrInvalidTransition, matchID, rec.match.Status, from, to)
	}
	rec.match.Status = to
	switch to {
	case domain.StatusOngoing:
		t := at
		rec.match.StartedAt = &t
	case domain.StatusFinished, domain.StatusCanceled:
		t := at
		rec.match.EndedAt = &t
	}
	return nil
}

func (s *MatchStore) GetMatchQuestion(_ context.Context, matchID, matchQuestionID string) (domain.MatchQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return domain.MatchQuestion{}, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	q, ok := rec.questions[matchQuestionID]
	if !ok {
		return domain.MatchQuestion{}, fmt.Errorf("%w: %s in match %s", domain.ErrUnknownQuestion, matchQuestionID, matchID)
	}
	return q, nil
}

func (s *MatchStore) GetMatchPlayer(_ context.Context, matchID, userID string) (domain.MatchPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return domain.MatchPlayer{}, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	p, ok := rec.players[userID]
	if !ok {
		return domain.MatchPlayer{}, fmt.Errorf("%w: user %s in match %s", domain.ErrPlayerNotInMatch, userID, matchID)
	}
	return *p, nil
}

func (s *MatchStore) FastestCorrect(_ context.Context, matchQuestionID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matchID, ok := s.byQuestion[matchQuestionID]
	if !ok {
		return 0, false, nil
	}
	var fastest int64
	found := false
	for _, a := range s.matches[matchID].answers[matchQuestionID] {
		if !a.Correct {
			continue
		}
		if !found || a.ResponseTimeMs < fastest {
			fastest = a.ResponseTimeMs
			found = true
		}
	}
	return fastest, found, nil
}

func (s *MatchStore) RecordAnswer(_ context.Context, answer domain.PlayerAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[answer.MatchID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMatchNotFound, answer.MatchID)
	}
	if _, ok := rec.questions[answer.MatchQuestionID]; !ok {
		return fmt.Errorf("%w: %s in match %s", domain.ErrUnknownQuestion, answer.MatchQuestionID, answer.MatchID)
	}
	player, ok := rec.players[answer.UserID]
	if !ok {
		return fmt.Errorf("%w: user %s in match %s", domain.ErrPlayerNotInMatch, answer.UserID, answer.MatchID)
	}

	byUser := rec.answers[answer.MatchQuestionID]
	if byUser == nil {
		byUser = make(map[string]domain.PlayerAnswer)
		rec.answers[answer.MatchQuestionID] = byUser
	}
	if _, exists := byUser[answer.UserID]; exists {
		return fmt.Errorf("%w: user %s already answered question %s",
			domain.ErrDuplicateAnswer, answer.UserID, answer.MatchQuestionID)
	}
	byUser[answer.UserID] = answer
	player.Score += answer.Points
	return nil
}

func (s *MatchStore) AnswersByMatch(_ context.Context, matchID string) ([]domain.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	var out []domain.PlayerAnswer
	for _, byUser := range rec.answers {
		for _, a := range byUser {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MatchStore) FinalizeMatch(_ context.Context, matchID string, endedAt time.Time, scores []domain.Score, stats []domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	if rec.match.Status != domain.StatusOngoing {
		return fmt.Errorf("%w: match %s is %s", domain.ErrInvalidTransition, matchID, rec.match.Status)
	}

	rec.match.Status = domain.StatusFinished
	t := endedAt
	rec.match.EndedAt = &t
	rec.scores = append([]domain.Score(nil), scores...)
	for _, st := range stats {
		s.stats[st.UserID] = st
	}
	return nil
}

func (s *MatchStore) UserStats(_ context.Context, userID string) (domain.UserStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	return st, ok, nil
}

func (s *MatchStore) ScoresByMatch(_ context.Context, matchID string) ([]domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	return append([]domain.Score(nil), rec.scores...), nil
}

// cloneMatch copies the aggregate so callers cannot mutate stored state.
func cloneMatch(m *domain.Match) domain.Match {
	out := *m
	out.Rounds = make([]domain.Round, len(m.Rounds))
	for i, r := range m.Rounds {
		round := r
		round.Questions = append([]domain.MatchQuestion(nil), r.Questions...)
		out.Rounds[i] = round
	}
	out.Players = append([]domain.MatchPlayer(nil), m.Players...)
	return out
}
