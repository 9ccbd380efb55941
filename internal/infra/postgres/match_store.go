package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"trivia-match-service/internal/domain"
)

// MatchStore persists engine state in Postgres through bun. Each
// interface method runs in at most one transaction, so the engine's
// atomicity contract holds without cross-request coordination here.
type MatchStore struct {
	db *bun.DB
}

func NewMatchStore(db *bun.DB) *MatchStore {
	return &MatchStore{db: db}
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID         string     `bun:"id,pk"`
	HostID     string     `bun:"host_id,notnull"`
	Status     string     `bun:"status,notnull"`
	Difficulty string     `bun:"difficulty,notnull"`
	StartedAt  *time.Time `bun:"started_at"`
	EndedAt    *time.Time `bun:"ended_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
}

type roundRow struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID         string `bun:"id,pk"`
	MatchID    string `bun:"match_id,notnull"`
	Sequence   int    `bun:"sequence,notnull"`
	Category   string `bun:"category,notnull"`
	Difficulty string `bun:"difficulty,notnull"`
}

type matchQuestionRow struct {
	bun.BaseModel `bun:"table:match_questions,alias:mq"`

	ID           string   `bun:"id,pk"`
	MatchID      string   `bun:"match_id,notnull"`
	RoundID      string   `bun:"round_id,notnull"`
	Sequence     int      `bun:"sequence,notnull"`
	QuestionHash string   `bun:"question_hash,notnull"`
	Prompt       string   `bun:"prompt,notnull"`
	Options      []string `bun:"options,array"`
	CorrectSlot  int      `bun:"correct_slot,notnull"`
}

type matchPlayerRow struct {
	bun.BaseModel `bun:"table:match_players,alias:mp"`

	MatchID  string    `bun:"match_id,pk"`
	UserID   string    `bun:"user_id,pk"`
	Score    int       `bun:"score,notnull"`
	JoinedAt time.Time `bun:"joined_at,notnull"`
}

type playerAnswerRow struct {
	bun.BaseModel `bun:"table:player_answers,alias:pa"`

	MatchQuestionID string    `bun:"match_question_id,pk"`
	MatchID         string    `bun:"match_id,notnull"`
	UserID          string    `bun:"user_id,pk"`
	SelectedSlot    *int      `bun:"selected_slot"`
	IsCorrect       bool      `bun:"is_correct,notnull"`
	ResponseTimeMs  int64     `bun:"response_time_ms,notnull"`
	Points          int       `bun:"points,notnull"`
	SubmittedAt     time.Time `bun:"submitted_at,notnull"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	MatchID           string `bun:"match_id,pk"`
	UserID            string `bun:"user_id,pk"`
	TotalScore        int    `bun:"total_score,notnull"`
	CorrectAnswers    int    `bun:"correct_answers,notnull"`
	TotalQuestions    int    `bun:"total_questions,notnull"`
	AvgResponseTimeMs int64  `bun:"avg_response_time_ms,notnull"`
}

type userStatsRow struct {
	bun.BaseModel `bun:"table:user_stats,alias:us"`

	UserID               string     `bun:"user_id,pk"`
	GamesPlayed          int        `bun:"games_played,notnull"`
	GamesWon             int        `bun:"games_won,notnull"`
	TotalScore           int64      `bun:"total_score,notnull"`
	HighestScore         int        `bun:"highest_score,notnull"`
	AverageScore         float64    `bun:"average_score,notnull"`
	CorrectAnswers       int64      `bun:"correct_answers,notnull"`
	TotalAnswers         int64      `bun:"total_answers,notnull"`
	AvgResponseTimeMs    float64    `bun:"avg_response_time_ms,notnull"`
	BestCategory         string     `bun:"best_category,notnull"`
	BestCategoryAccuracy float64    `bun:"best_category_accuracy,notnull"`
	LastPlayedAt         *time.Time `bun:"last_played_at"`
}

func (s *MatchStore) CreateMatch(ctx context.Context, match *domain.Match) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		mr := matchRow{
			ID:         match.ID,
			HostID:     match.HostID,
			Status:     string(match.Status),
			Difficulty: match.Difficulty,
			StartedAt:  match.StartedAt,
			EndedAt:    match.EndedAt,
			CreatedAt:  match.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(&mr).Exec(ctx); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}

		var rounds []roundRow
		var questions []matchQuestionRow
		for _, r := range match.Rounds {
			rounds = append(rounds, roundRow{
				ID:         r.ID,
				MatchID:    r.MatchID,
				Sequence:   r.Sequence,
				Category:   r.Category,
				Difficulty: r.Difficulty,
			})
			for _, q := range r.Questions {
				questions = append(questions, matchQuestionRow{
					ID:           q.ID,
					MatchID:      q.MatchID,
					RoundID:      q.RoundID,
					Sequence:     q.Sequence,
					QuestionHash: q.QuestionHash,
					Prompt:       q.Prompt,
					Options:      q.Options[:],
					CorrectSlot:  q.CorrectSlot,
				})
			}
		}
		if len(rounds) > 0 {
			if _, err := tx.NewInsert().Model(&rounds).Exec(ctx); err != nil {
				return fmt.Errorf("insert rounds: %w", err)
			}
		}
		if len(questions) > 0 {
			if _, err := tx.NewInsert().Model(&questions).Exec(ctx); err != nil {
				return fmt.Errorf("insert match questions: %w", err)
			}
		}

		var players []matchPlayerRow
		for _, p := range match.Players {
			players = append(players, matchPlayerRow{
				MatchID:  p.MatchID,
				UserID:   p.UserID,
				Score:    p.Score,
				JoinedAt: p.JoinedAt,
			})
		}
		if len(players) > 0 {
			if _, err := tx.NewInsert().Model(&players).Exec(ctx); err != nil {
				return fmt.Errorf("insert match players: %w", err)
			}
		}
		return nil
	})
}

func (s *MatchStore) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	var mr matchRow
	err := s.db.NewSelect().Model(&mr).Where("m.id = ?", matchID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Match{}, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("load match: %w", err)
	}

	var rounds []roundRow
	if err := s.db.NewSelect().Model(&rounds).Where("r.match_id = ?", matchID).Order("r.sequence ASC").Scan(ctx); err != nil {
		return domain.Match{}, fmt.Errorf("load rounds: %w", err)
	}
	var questions []matchQuestionRow
	if err := s.db.NewSelect().Model(&questions).Where("mq.match_id = ?", matchID).Order("mq.round_id", "mq.sequence ASC").Scan(ctx); err != nil {
		return domain.Match{}, fmt.Errorf("load match questions: %w", err)
	}
	var players []matchPlayerRow
	if err := s.db.NewSelect().Model(&players).Where("mp.match_id = ?", matchID).Order("mp.user_id ASC").Scan(ctx); err != nil {
		return domain.Match{}, fmt.Errorf("load match players: %w", err)
	}

	match := domain.Match{
		ID:         mr.ID,
		HostID:     mr.HostID,
		Status:     domain.MatchStatus(mr.Status),
		Difficulty: mr.Difficulty,
		StartedAt:  mr.StartedAt,
		EndedAt:    mr.EndedAt,
		CreatedAt:  mr.CreatedAt,
	}
	byRound := make(map[string][]domain.MatchQuestion)
	for _, q := range questions {
		var options [4]string
		copy(options[:], q.Options)
		byRound[q.RoundID] = append(byRound[q.RoundID], domain.MatchQuestion{
			ID:           q.ID,
			MatchID:      q.MatchID,
			RoundID:      q.RoundID,
			Sequence:     q.Sequence,
			QuestionHash: q.QuestionHash,
			Prompt:       q.Prompt,
			Options:      options,
			CorrectSlot:  q.CorrectSlot,
		})
	}
	for _, r := range rounds {
		match.Rounds = append(match.Rounds, domain.Round{
			ID:         r.ID,
			MatchID:    r.MatchID,
			Sequence:   r.Sequence,
			Category:   r.Category,
			Difficulty: r.Difficulty,
			Questions:  byRound[r.ID],
		})
	}
	for _, p := range players {
		match.Players = append(match.Players, domain.MatchPlayer{
			MatchID:  p.MatchID,
			UserID:   p.UserID,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
		})
	}
	return match, nil
}

func (s *MatchStore) MatchStatus(ctx context.Context, matchID string) (domain.MatchStatus, error) {
	var status string
	err := s.db.NewSelect().Model((*matchRow)(nil)).Column("status").Where("m.id = ?", matchID).Scan(ctx, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	if err != nil {
		return "", fmt.Errorf("load match status: %w", err)
	}
	return domain.MatchStatus(status), nil
}

func (s *MatchStore) SetMatchStatus(ctx context.Context, matchID string, from, to domain.MatchStatus, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	q := s.db.NewUpdate().Model((*matchRow)(nil)).
		Set("status = ?", string(to)).
		Where("m.id = ?", matchID).
		Where("m.status = ?", string(from))
	switch to {
	case domain.StatusOngoing:
		q = q.Set("started_at = ?", at)
	case domain.StatusFinished, domain.StatusCanceled:
		q = q.Set("ended_at = ?", at)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing match from a lost CAS race.
		current, err := s.MatchStatus(ctx, matchID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: match %s is %s, cannot move %s -> %s",
			domain.ErrInvalidTransition, matchID, current, from, to)
	}
	return nil
}

func (s *MatchStore) GetMatchQuestion(ctx context.Context, matchID, matchQuestionID string) (domain.MatchQuestion, error) {
	var q matchQuestionRow
	err := s.db.NewSelect().Model(&q).
		Where("mq.id = ?", matchQuestionID).
		Where("mq.match_id = ?", matchID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchQuestion{}, fmt.Errorf("%w: %s in match %s", domain.ErrUnknownQuestion, matchQuestionID, matchID)
	}
	if err != nil {
		return domain.MatchQuestion{}, fmt.Errorf("load match question: %w", err)
	}
	var options [4]string
	copy(options[:], q.Options)
	return domain.MatchQuestion{
		ID:           q.ID,
		MatchID:      q.MatchID,
		RoundID:      q.RoundID,
		Sequence:     q.Sequence,
		QuestionHash: q.QuestionHash,
		Prompt:       q.Prompt,
		Options:      options,
		CorrectSlot:  q.CorrectSlot,
	}, nil
}

func (s *MatchStore) GetMatchPlayer(ctx context.Context, matchID, userID string) (domain.MatchPlayer, error) {
	var p matchPlayerRow
	err := s.db.NewSelect().Model(&p).
		Where("mp.match_id = ?", matchID).
		Where("mp.user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MatchPlayer{}, fmt.Errorf("%w: user %s in match %s", domain.ErrPlayerNotInMatch, userID, matchID)
	}
	if err != nil {
		return domain.MatchPlayer{}, fmt.Errorf("load match player: %w", err)
	}
	return domain.MatchPlayer{MatchID: p.MatchID, UserID: p.UserID, Score: p.Score, JoinedAt: p.JoinedAt}, nil
}

func (s *MatchStore) FastestCorrect(ctx context.Context, matchQuestionID string) (int64, bool, error) {
	var fastest sql.NullInt64
	err := s.db.NewSelect().Model((*playerAnswerRow)(nil)).
		ColumnExpr("min(pa.response_time_ms)").
		Where("pa.match_question_id = ?", matchQuestionID).
		Where("pa.is_correct").
		Scan(ctx, &fastest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("load fastest correct answer: %w", err)
	}
	if !fastest.Valid {
		return 0, false, nil
	}
	return fastest.Int64, true, nil
}

func (s *MatchStore) RecordAnswer(ctx context.Context, answer domain.PlayerAnswer) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := playerAnswerRow{
			MatchQuestionID: answer.MatchQuestionID,
			MatchID:         answer.MatchID,
			UserID:          answer.UserID,
			SelectedSlot:    answer.SelectedSlot,
			IsCorrect:       answer.Correct,
			ResponseTimeMs:  answer.ResponseTimeMs,
			Points:          answer.Points,
			SubmittedAt:     answer.SubmittedAt,
		}
		res, err := tx.NewInsert().Model(&row).
			On("CONFLICT (match_question_id, user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if inserted == 0 {
			return fmt.Errorf("%w: user %s already answered question %s",
				domain.ErrDuplicateAnswer, answer.UserID, answer.MatchQuestionID)
		}

		if answer.Points != 0 {
			if _, err := tx.NewUpdate().Model((*matchPlayerRow)(nil)).
				Set("score = score + ?", answer.Points).
				Where("mp.match_id = ?", answer.MatchID).
				Where("mp.user_id = ?", answer.UserID).
				Exec(ctx); err != nil {
				return fmt.Errorf("increment player score: %w", err)
			}
		}
		return nil
	})
}

func (s *MatchStore) AnswersByMatch(ctx context.Context, matchID string) ([]domain.PlayerAnswer, error) {
	var rows []playerAnswerRow
	if err := s.db.NewSelect().Model(&rows).Where("pa.match_id = ?", matchID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	answers := make([]domain.PlayerAnswer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, domain.PlayerAnswer{
			MatchQuestionID: r.MatchQuestionID,
			MatchID:         r.MatchID,
			UserID:          r.UserID,
			SelectedSlot:    r.SelectedSlot,
			Correct:         r.IsCorrect,
			ResponseTimeMs:  r.ResponseTimeMs,
			Points:          r.Points,
			SubmittedAt:     r.SubmittedAt,
		})
	}
	return answers, nil
}

func (s *MatchStore) FinalizeMatch(ctx context.Context, matchID string, endedAt time.Time, scores []domain.Score, stats []domain.UserStats) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*matchRow)(nil)).
			Set("status = ?", string(domain.StatusFinished)).
			Set("ended_at = ?", endedAt).
			Where("m.id = ?", matchID).
			Where("m.status = ?", string(domain.StatusOngoing)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("finish match: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: match %s not ongoing", domain.ErrInvalidTransition, matchID)
		}

		if len(scores) > 0 {
			rows := make([]scoreRow, 0, len(scores))
			for _, sc := range scores {
				rows = append(rows, scoreRow{
					MatchID:           sc.MatchID,
					UserID:            sc.UserID,
					TotalScore:        sc.TotalScore,
					CorrectAnswers:    sc.CorrectAnswers,
					TotalQuestions:    sc.TotalQuestions,
					AvgResponseTimeMs: sc.AvgResponseTimeMs,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert scores: %w", err)
			}
		}

		for _, st := range stats {
			last := st.LastPlayedAt
			row := userStatsRow{
				UserID:               st.UserID,
				GamesPlayed:          st.GamesPlayed,
				GamesWon:             st.GamesWon,
				TotalScore:           st.TotalScore,
				HighestScore:         st.HighestScore,
				AverageScore:         st.AverageScore,
				CorrectAnswers:       st.CorrectAnswers,
				TotalAnswers:         st.TotalAnswers,
				AvgResponseTimeMs:    st.AvgResponseTimeMs,
				BestCategory:         st.BestCategory,
				BestCategoryAccuracy: st.BestCategoryAccuracy,
				LastPlayedAt:         &last,
			}
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (user_id) DO UPDATE").
				Set("games_played = EXCLUDED.games_played").
				Set("games_won = EXCLUDED.games_won").
				Set("total_score = EXCLUDED.total_score").
				Set("highest_score = EXCLUDED.highest_score").
				Set("average_score = EXCLUDED.average_score").
				Set("correct_answers = EXCLUDED.correct_answers").
				Set("total_answers = EXCLUDED.total_answers").
				Set("avg_response_time_ms = EXCLUDED.avg_response_time_ms").
				Set("best_category = EXCLUDED.best_category").
				Set("best_category_accuracy = EXCLUDED.best_category_accuracy").
				Set("last_played_at = EXCLUDED.last_played_at").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert user stats for %s: %w", st.UserID, err)
			}
		}
		return nil
	})
}

func (s *MatchStore) UserStats(ctx context.Context, userID string) (domain.UserStats, bool, error) {
	var row userStatsRow
	err := s.db.NewSelect().Model(&row).Where("us.user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, fmt.Errorf("load user stats: %w", err)
	}
	st := domain.UserStats{
		UserID:               row.UserID,
		GamesPlayed:          row.GamesPlayed,
		GamesWon:             row.GamesWon,
		TotalScore:           row.TotalScore,
		HighestScore:         row.HighestScore,
		AverageScore:         row.AverageScore,
		CorrectAnswers:       row.CorrectAnswers,
		TotalAnswers:         row.TotalAnswers,
		AvgResponseTimeMs:    row.AvgResponseTimeMs,
		BestCategory:         row.BestCategory,
		BestCategoryAccuracy: row.BestCategoryAccuracy,
	}
	if row.LastPlayedAt != nil {
		st.LastPlayedAt = *row.LastPlayedAt
	}
	return st, true, nil
}

func (s *MatchStore) ScoresByMatch(ctx context.Context, matchID string) ([]domain.Score, error) {
	var rows []scoreRow
	if err := s.db.NewSelect().Model(&rows).Where("s.match_id = ?", matchID).Order("s.total_score DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	scores := make([]domain.Score, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, domain.Score{
			MatchID:           r.MatchID,
			UserID:            r.UserID,
			TotalScore:        r.TotalScore,
			CorrectAnswers:    r.CorrectAnswers,
			TotalQuestions:    r.TotalQuestions,
			AvgResponseTimeMs: r.AvgResponseTimeMs,
		})
	}
	return scores, nil
}
