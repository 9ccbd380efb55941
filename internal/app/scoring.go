package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trivia-match-service/internal/domain"
)

// Scoring constants. A correct answer earns MaxPoints minus one point
// per PenaltyDivisor milliseconds behind the fastest correct answer
// already on record, never less than MinPoints.
const (
	MaxPoints      = 100
	MinPoints      = 10
	PenaltyDivisor = 100
)

// AnswerSubmission is one player's answer to one match question.
// SelectedSlot nil means the player timed out without choosing.
type AnswerSubmission struct {
	MatchQuestionID string
	UserID          string
	SelectedSlot    *int
	ResponseTimeMs  int64
}

// AnswerResult reports the scoring outcome of a submission.
type AnswerResult struct {
	Points     int
	Correct    bool
	TotalScore int
}

// SubmitAnswer scores one submission. The per-question lock serializes
// the fastest-correct read against the answer write, so two concurrent
// submissions for the same question can never both score themselves as
// the first correct answer. Submissions to different questions proceed
// in parallel; the shared match lock only keeps finalization out.
//
// The first submission against a SCHEDULED match starts it. Question
// and player are validated before any write, so a rejected submission
// never changes match state. When two first submissions race on the
// start transition, the loser re-reads the status and carries on: a
// lost auto-start race is not an error.
func (s *MatchService) SubmitAnswer(ctx context.Context, matchID string, sub AnswerSubmission) (AnswerResult, error) {
	unlockMatch := s.locks.lockShared(matchKey(matchID))
	defer unlockMatch()
	unlockQuestion := s.locks.lock(questionKey(sub.MatchQuestionID))
	defer unlockQuestion()

	status, err := s.store.MatchStatus(ctx, matchID)
	if err != nil {
		return AnswerResult{}, err
	}
	question, err := s.store.GetMatchQuestion(ctx, matchID, sub.MatchQuestionID)
	if err != nil {
		return AnswerResult{}, err
	}
	player, err := s.store.GetMatchPlayer(ctx, matchID, sub.UserID)
	if err != nil {
		return AnswerResult{}, err
	}

	if status == domain.StatusScheduled {
		err := s.store.SetMatchStatus(ctx, matchID, domain.StatusScheduled, domain.StatusOngoing, time.Now())
		switch {
		case err == nil:
			s.notifier.MatchStatusChanged(matchID, domain.StatusOngoing)
			status = domain.StatusOngoing
		case errors.Is(err, domain.ErrInvalidTransition):
			// Another submission started the match first.
			if status, err = s.store.MatchStatus(ctx, matchID); err != nil {
				return AnswerResult{}, err
			}
		default:
			return AnswerResult{}, err
		}
	}
	if status != domain.StatusOngoing {
		return AnswerResult{}, fmt.Errorf("%w: match %s is %s", domain.ErrMatchNotOngoing, matchID, status)
	}

	responseTime := sub.ResponseTimeMs
	if responseTime < 0 {
		responseTime = 0
	}

	correct := sub.SelectedSlot != nil && *sub.SelectedSlot == question.CorrectSlot
	points := 0
	if correct {
		fastest, ok, err := s.store.FastestCorrect(ctx, sub.MatchQuestionID)
		if err != nil {
			return AnswerResult{}, err
		}
		if !ok {
			// No correct answer yet: this submission is the reference.
			fastest = responseTime
		}
		points = scorePoints(responseTime, fastest)
	}

	answer := domain.PlayerAnswer{
		MatchQuestionID: sub.MatchQuestionID,
		MatchID:         matchID,
		UserID:          sub.UserID,
		SelectedSlot:    sub.SelectedSlot,
		Correct:         correct,
		ResponseTimeMs:  responseTime,
		Points:          points,
		SubmittedAt:     time.Now(),
	}
	if err := s.store.RecordAnswer(ctx, answer); err != nil {
		return AnswerResult{}, err
	}

	s.notifier.AnswerScored(matchID, sub.MatchQuestionID, sub.UserID, correct, points)
	s.log.Debugw("answer scored",
		"matchId", matchID,
		"matchQuestionId", sub.MatchQuestionID,
		"userId", sub.UserID,
		"correct", correct,
		"points", points)
	return AnswerResult{Points: points, Correct: correct, TotalScore: player.Score + points}, nil
}

// scorePoints applies the speed penalty against the fastest correct
// answer on record. Clamped to [MinPoints, MaxPoints]: a slow answer
// never drops below the floor, and a later answer reporting a time
// below the recorded fastest cannot exceed the ceiling (already scored
// answers are never recomputed).
func scorePoints(responseTimeMs, fastestMs int64) int {
	points := MaxPoints - int((responseTimeMs-fastestMs)/PenaltyDivisor)
	if points < MinPoints {
		return MinPoints
	}
	if points > MaxPoints {
		return MaxPoints
	}
	return points
}
