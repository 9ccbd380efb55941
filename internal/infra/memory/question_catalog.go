package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-match-service/internal/domain"
)

// QuestionSource loads catalog questions from a backing store
// (Postgres, a document DB, a fixture set).
type QuestionSource interface {
	LoadQuestions(ctx context.Context, category, difficulty string) ([]domain.Question, error)
	CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error)
}

// QuestionCatalog caches per-(category, difficulty) question lists with
// a TTL to avoid repeated source hits during match creation bursts.
type QuestionCatalog struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCatalog(source QuestionSource, ttl time.Duration) *QuestionCatalog {
	return &QuestionCatalog{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// SelectQuestions returns up to count distinct random questions for the
// category/difficulty, skipping excluded hashes. Fewer than count may
// come back; the caller decides whether that is an error.
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

func (c *QuestionCatalog) CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error) {
	return c.source.CountByCategory(ctx, category)
}

func (c *QuestionCatalog) load(ctx context.Context, category, difficulty string) ([]domain.Question, error) {
	key := category + "\x00" + difficulty
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.source.LoadQuestions(ctx, category, difficulty)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		c.mu.Lock()
		c.cache[key] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(ttl),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionSource serves questions from an in-memory slice
// (useful for tests and demo mode).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context, category, difficulty string) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range s.questions {
		if q.Category != category {
			continue
		}
		if difficulty != "" && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *StaticQuestionSource) CountByCategory(_ context.Context, category string) (domain.CategoryCount, error) {
	var count domain.CategoryCount
	for _, q := range s.questions {
		if q.Category != category {
			continue
		}
		count.Total++
		switch q.Difficulty {
		case "easy":
			count.Easy++
		case "medium":
			count.Medium++
		case "hard":
			count.Hard++
		}
	}
	return count, nil
}
