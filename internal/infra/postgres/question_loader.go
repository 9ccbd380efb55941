package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-match-service/internal/domain"
)

// QuestionLoader reads the question catalog from Postgres. It sits
// behind a cache (redis or in-memory) as a QuestionSource.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, category, difficulty string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT hash, category, difficulty, text, correct_answer, distractors
		FROM questions
		WHERE category = $1 AND ($2 = '' OR difficulty = $2)`,
		category, difficulty)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var distractors []string
		if err := rows.Scan(&q.Hash, &q.Category, &q.Difficulty, &q.Text, &q.CorrectAnswer, &distractors); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		copy(q.Distractors[:], distractors)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *QuestionLoader) CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error) {
	var count domain.CategoryCount
	err := l.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE difficulty = 'easy'),
			count(*) FILTER (WHERE difficulty = 'medium'),
			count(*) FILTER (WHERE difficulty = 'hard'),
			count(*)
		FROM questions
		WHERE category = $1`,
		category).Scan(&count.Easy, &count.Medium, &count.Hard, &count.Total)
	if err != nil {
		return domain.CategoryCount{}, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// ImportQuestions inserts catalog questions, skipping content hashes
// that already exist. Returns the number of new rows.
func (l *QuestionLoader) ImportQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	imported := 0
	for _, q := range questions {
		tag, err := l.pool.Exec(ctx, `
			INSERT INTO questions (hash, category, difficulty, text, correct_answer, distractors)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (hash) DO NOTHING`,
			q.Hash, q.Category, q.Difficulty, q.Text, q.CorrectAnswer, []string{q.Distractors[0], q.Distractors[1], q.Distractors[2]})
		if err != nil {
			return imported, fmt.Errorf("import question %s: %w", q.Hash, err)
		}
		imported += int(tag.RowsAffected())
	}
	return imported, nil
}
