package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"trivia-match-service/internal/domain"
)

// FinishMatch aggregates every player's answers into a Score row, rolls
// the results into lifetime user stats and moves the match to FINISHED,
// all as one atomic store operation. The exclusive match lock keeps
// in-flight submissions out for the duration. Unanswered questions
// count as zero-point incorrect answers.
func (s *MatchService) FinishMatch(ctx context.Context, matchID string) ([]domain.Score, error) {
	unlock := s.locks.lock(matchKey(matchID))
	defer unlock()

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != domain.StatusOngoing {
		return nil, fmt.Errorf("%w: match %s is %s", domain.ErrMatchNotOngoing, matchID, match.Status)
	}

	answers, err := s.store.AnswersByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	// Two matches sharing a participant must not interleave their stats
	// read-merge-commit. Per-user locks, taken in sorted order so
	// overlapping rosters cannot deadlock, are held through the store
	// commit below.
	userIDs := make([]string, 0, len(match.Players))
	for _, p := range match.Players {
		userIDs = append(userIDs, p.UserID)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		release := s.locks.lock(userKey(userID))
		defer release()
	}

	now := time.Now()
	scores := buildScores(&match, answers)
	stats, err := s.mergeStats(ctx, &match, answers, scores, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.FinalizeMatch(ctx, matchID, now, scores, stats); err != nil {
		return nil, fmt.Errorf("finalize match %s: %w", matchID, err)
	}

	s.notifier.MatchStatusChanged(matchID, domain.StatusFinished)
	s.notifier.MatchFinished(matchID, scores)
	s.log.Infow("match finished", "matchId", matchID, "players", len(scores))
	return scores, nil
}

// buildScores folds the committed answers into one Score per match
// player, ordered by total score descending. Players without a single
// answer still get a row with zeroes.
func buildScores(match *domain.Match, answers []domain.PlayerAnswer) []domain.Score {
	totalQuestions := match.QuestionCount()

	type tally struct {
		score    int
		correct  int
		answered int
		timeMs   int64
	}
	byUser := make(map[string]*tally, len(match.Players))
	for _, p := range match.Players {
		byUser[p.UserID] = &tally{}
	}
	for _, a := range answers {
		t, ok := byUser[a.UserID]
		if !ok {
			continue
		}
		t.score += a.Points
		t.answered++
		t.timeMs += a.ResponseTimeMs
		if a.Correct {
			t.correct++
		}
	}

	scores := make([]domain.Score, 0, len(match.Players))
	for _, p := range match.Players {
		t := byUser[p.UserID]
		var avg int64
		if t.answered > 0 {
			avg = t.timeMs / int64(t.answered)
		}
		scores = append(scores, domain.Score{
			MatchID:           match.ID,
			UserID:            p.UserID,
			TotalScore:        t.score,
			CorrectAnswers:    t.correct,
			TotalQuestions:    totalQuestions,
			AvgResponseTimeMs: avg,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].UserID < scores[j].UserID
	})
	return scores
}

// strictWinner returns the user holding the single highest total score,
// or "" when the top score is shared. Ties credit nobody.
func strictWinner(scores []domain.Score) string {
	if len(scores) == 0 {
		return ""
	}
	top := scores[0].TotalScore
	winner := scores[0].UserID
	for _, sc := range scores[1:] {
		if sc.TotalScore == top {
			return ""
		}
	}
	return winner
}

// mergeStats produces the updated lifetime stats row for every
// participant. Averages are recomputed as running means over the new
// totals; the best category is replaced only when this match's accuracy
// in some category strictly beats the stored one.
func (s *MatchService) mergeStats(ctx context.Context, match *domain.Match, answers []domain.PlayerAnswer, scores []domain.Score, now time.Time) ([]domain.UserStats, error) {
	categoryOf := make(map[string]string, match.QuestionCount())
	for _, r := range match.Rounds {
		for _, q := range r.Questions {
			categoryOf[q.ID] = r.Category
		}
	}

	byUser := make(map[string][]domain.PlayerAnswer)
	for _, a := range answers {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}
	winner := strictWinner(scores)

	stats := make([]domain.UserStats, 0, len(scores))
	for _, sc := range scores {
		st, found, err := s.store.UserStats(ctx, sc.UserID)
		if err != nil {
			return nil, err
		}
		if !found {
			st = domain.UserStats{UserID: sc.UserID}
		}

		userAnswers := byUser[sc.UserID]

		st.GamesPlayed++
		if sc.UserID == winner {
			st.GamesWon++
		}
		st.TotalScore += int64(sc.TotalScore)
		if sc.TotalScore > st.HighestScore {
			st.HighestScore = sc.TotalScore
		}
		st.AverageScore = float64(st.TotalScore) / float64(st.GamesPlayed)

		var answeredMs int64
		correct := int64(0)
		for _, a := range userAnswers {
			answeredMs += a.ResponseTimeMs
			if a.Correct {
				correct++
			}
		}
		prevAnswers := st.TotalAnswers
		st.CorrectAnswers += correct
		st.TotalAnswers += int64(len(userAnswers))
		if st.TotalAnswers > 0 {
			st.AvgResponseTimeMs = (st.AvgResponseTimeMs*float64(prevAnswers) + float64(answeredMs)) / float64(st.TotalAnswers)
		}

		if category, accuracy, ok := bestCategory(userAnswers, categoryOf); ok {
			if st.BestCategory == "" || accuracy > st.BestCategoryAccuracy {
				st.BestCategory = category
				st.BestCategoryAccuracy = accuracy
			}
		}
		st.LastPlayedAt = now
		stats = append(stats, st)
	}
	return stats, nil
}

// bestCategory finds the category this player answered most accurately
// in during the match. ok is false when the player answered nothing.
func bestCategory(answers []domain.PlayerAnswer, categoryOf map[string]string) (string, float64, bool) {
	type perf struct{ correct, total int }
	byCategory := map[string]*perf{}
	for _, a := range answers {
		category, ok := categoryOf[a.MatchQuestionID]
		if !ok {
			continue
		}
		p := byCategory[category]
		if p == nil {
			p = &perf{}
			byCategory[category] = p
		}
		p.total++
		if a.Correct {
			p.correct++
		}
	}

	best := ""
	bestAccuracy := -1.0
	for category, p := range byCategory {
		accuracy := float64(p.correct) / float64(p.total)
		if accuracy > bestAccuracy || (accuracy == bestAccuracy && category < best) {
			best = category
			bestAccuracy = accuracy
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestAccuracy, true
}
