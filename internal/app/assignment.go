package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trivia-match-service/internal/domain"
)

// CreateMatchRequest describes a match to assemble.
type CreateMatchRequest struct {
	Category   string
	Difficulty string
	Amount     int
	HostID     string
	Players    []string
}

// CreateMatch selects questions from the catalog, partitions them into
// rounds, freezes each question with a shuffled option order and
// persists the whole aggregate atomically. Nothing is written when the
// catalog cannot satisfy the request.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (domain.Match, error) {
	players, err := normalizeRoster(req.HostID, req.Players)
	if err != nil {
		return domain.Match{}, err
	}
	if req.Category == "" {
		return domain.Match{}, fmt.Errorf("%w: category is required", domain.ErrInvalidRequest)
	}
	if req.Amount <= 0 {
		return domain.Match{}, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidRequest, req.Amount)
	}

	questions, err := s.catalog.SelectQuestions(ctx, req.Category, req.Difficulty, req.Amount, nil)
	if err != nil {
		return domain.Match{}, fmt.Errorf("select questions: %w", err)
	}
	if len(questions) < req.Amount {
		return domain.Match{}, fmt.Errorf("%w: category %q difficulty %q has %d of %d requested",
			domain.ErrInsufficientQuestions, req.Category, req.Difficulty, len(questions), req.Amount)
	}

	now := time.Now()
	match := domain.Match{
		ID:         uuid.NewString(),
		HostID:     req.HostID,
		Status:     domain.StatusScheduled,
		Difficulty: req.Difficulty,
		CreatedAt:  now,
	}

	for start := 0; start < len(questions); start += s.cfg.RoundSize {
		end := start + s.cfg.RoundSize
		if end > len(questions) {
			end = len(questions)
		}
		round := domain.Round{
			ID:         uuid.NewString(),
			MatchID:    match.ID,
			Sequence:   len(match.Rounds) + 1,
			Category:   req.Category,
			Difficulty: req.Difficulty,
		}
		for i, q := range questions[start:end] {
			round.Questions = append(round.Questions, s.freezeQuestion(match.ID, round.ID, i+1, q))
		}
		match.Rounds = append(match.Rounds, round)
	}

	for _, userID := range players {
		match.Players = append(match.Players, domain.MatchPlayer{
			MatchID:  match.ID,
			UserID:   userID,
			JoinedAt: now,
		})
	}

	if err := s.store.CreateMatch(ctx, &match); err != nil {
		return domain.Match{}, fmt.Errorf("create match: %w", err)
	}

	s.notifier.MatchStatusChanged(match.ID, domain.StatusScheduled)
	s.log.Infow("match created",
		"matchId", match.ID,
		"category", req.Category,
		"questions", match.QuestionCount(),
		"rounds", len(match.Rounds),
		"players", len(match.Players))
	return match, nil
}

// freezeQuestion snapshots a catalog question into a match question.
// The four option texts land in slots chosen by a uniform-random
// permutation, so the correct position differs per match and reveals
// nothing about the source question.
func (s *MatchService) freezeQuestion(matchID, roundID string, sequence int, q domain.Question) domain.MatchQuestion {
	texts := [4]string{q.CorrectAnswer, q.Distractors[0], q.Distractors[1], q.Distractors[2]}

	s.mu.Lock()
	order := s.rnd.Perm(4)
	s.mu.Unlock()

	var options [4]string
	for i, slot := range order {
		options[slot] = texts[i]
	}
	return domain.MatchQuestion{
		ID:           uuid.NewString(),
		MatchID:      matchID,
		RoundID:      roundID,
		Sequence:     sequence,
		QuestionHash: q.Hash,
		Prompt:       q.Text,
		Options:      options,
		CorrectSlot:  order[0],
	}
}

// normalizeRoster validates the participant list: the host must be set,
// every entry non-empty, no duplicates. The host is added to the roster
// when not already listed.
func normalizeRoster(hostID string, players []string) ([]string, error) {
	if hostID == "" {
		return nil, fmt.Errorf("%w: host is required", domain.ErrInvalidParticipants)
	}
	seen := map[string]bool{}
	roster := make([]string, 0, len(players)+1)
	for _, p := range players {
		if p == "" {
			return nil, fmt.Errorf("%w: empty user id in roster", domain.ErrInvalidParticipants)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate user %q", domain.ErrInvalidParticipants, p)
		}
		seen[p] = true
		roster = append(roster, p)
	}
	if !seen[hostID] {
		roster = append(roster, hostID)
	}
	return roster, nil
}
