package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-match-service/internal/domain"
)

// QuestionSource loads catalog questions from the backing store on a
// cache miss.
type QuestionSource interface {
	LoadQuestions(ctx context.Context, category, difficulty string) ([]domain.Question, error)
	CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error)
}

// QuestionCatalog caches question sets in Redis (one hash per
// category/difficulty pair, field = content hash, value = JSON) and
// falls back to the source on a miss. Stored as:
//
//	HSET questions:{category}:{difficulty} {hash} {json}
type QuestionCatalog struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCatalog(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionCatalog {
	return &QuestionCatalog{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectQuestions returns up to count distinct random questions,
// skipping excluded hashes. Fewer than count may come back.
func (c *QuestionCatalog) SelectQuestions(ctx context.Context, category, difficulty string, count int, excludeHashes []string) ([]domain.Question, error) {
	all, err := c.load(ctx, category, difficulty)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(excludeHashes))
	for _, h := range excludeHashes {
		excluded[h] = true
	}
	eligible := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if !excluded[q.Hash] {
			eligible = append(eligible, q)
		}
	}

	c.mu.Lock()
	c.rnd.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	c.mu.Unlock()

	if len(eligible) > count {
		eligible = eligible[:count]
	}
	return eligible, nil
}

// CountByCategory is served straight from the source; availability
// checks are rare compared to selection and want fresh numbers.
func (c *QuestionCatalog) CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error) {
	return c.source.CountByCategory(ctx, category)
}

func (c *QuestionCatalog) load(ctx context.Context, category, difficulty string) ([]domain.Question, error) {
	key := c.key(category, difficulty)

	cached, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		return decodeQuestions(cached)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			return decodeQuestions(cached)
		}

		questions, err := c.source.LoadQuestions(ctx, category, difficulty)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		pipe := c.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("marshal question %s: %w", q.Hash, err)
			}
			pipe.HSet(ctx, key, q.Hash, data)
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCatalog) key(category, difficulty string) string {
	if difficulty == "" {
		difficulty = "any"
	}
	return "questions:" + category + ":" + difficulty
}

func decodeQuestions(cached map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(cached))
	for hash, raw := range cached {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("unmarshal cached question %s: %w", hash, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (c *QuestionCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
