package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"trivia-match-service/internal/domain"
)

// MatchStore persists engine state (in-memory, Postgres, etc). Every
// method is individually atomic: it either fully commits or leaves no
// partial state behind.
type MatchStore interface {
	// CreateMatch stores the match together with its rounds, frozen
	// questions and player roster in one atomic operation.
	CreateMatch(ctx context.Context, match *domain.Match) error
	// GetMatch returns the full aggregate: rounds, questions, players.
	GetMatch(ctx context.Context, matchID string) (domain.Match, error)
	MatchStatus(ctx context.Context, matchID string) (domain.MatchStatus, error)
	// SetMatchStatus performs a compare-and-set lifecycle transition and
	// stamps started/ended timestamps as appropriate. It fails with
	// domain.ErrInvalidTransition when the current status is not `from`
	// or the transition is not legal.
	SetMatchStatus(ctx context.Context, matchID string, from, to domain.MatchStatus, at time.Time) error
	GetMatchQuestion(ctx context.Context, matchID, matchQuestionID string) (domain.MatchQuestion, error)
	GetMatchPlayer(ctx context.Context, matchID, userID string) (domain.MatchPlayer, error)
	// FastestCorrect returns the minimum response time among correct
	// answers already committed for the match question; ok is false when
	// none exist yet.
	FastestCorrect(ctx context.Context, matchQuestionID string) (fastest int64, ok bool, err error)
	// RecordAnswer inserts the answer and increments the owning player's
	// running score atomically. A second answer for the same
	// (match question, user) fails with domain.ErrDuplicateAnswer.
	RecordAnswer(ctx context.Context, answer domain.PlayerAnswer) error
	AnswersByMatch(ctx context.Context, matchID string) ([]domain.PlayerAnswer, error)
	// FinalizeMatch commits the ONGOING -> FINISHED transition, the Score
	// rows and the merged user stats as one atomic unit.
	FinalizeMatch(ctx context.Context, matchID string, endedAt time.Time, scores []domain.Score, stats []domain.UserStats) error
	UserStats(ctx context.Context, userID string) (domain.UserStats, bool, error)
	ScoresByMatch(ctx context.Context, matchID string) ([]domain.Score, error)
}

// QuestionCatalog is the read-only question store the engine selects
// from when assembling a match.
type QuestionCatalog interface {
	// SelectQuestions returns up to count distinct questions matching the
	// category and difficulty, excluding the given content hashes.
	SelectQuestions(ctx context.Context, category, difficulty string, count int, excludeHashes []string) ([]domain.Question, error)
	CountByCategory(ctx context.Context, category string) (domain.CategoryCount, error)
}

// Notifier receives engine events. Delivery is fire-and-forget: the
// engine's own state stays authoritative whether or not anything
// listens.
type Notifier interface {
	MatchStatusChanged(matchID string, status domain.MatchStatus)
	AnswerScored(matchID, matchQuestionID, userID string, correct bool, points int)
	MatchFinished(matchID string, scores []domain.Score)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) MatchStatusChanged(string, domain.MatchStatus)  {}
func (NopNotifier) AnswerScored(string, string, string, bool, int) {}
func (NopNotifier) MatchFinished(string, []domain.Score)           {}

// Config tunes match assembly.
type Config struct {
	// RoundSize is the number of questions per round; the last round
	// holds the remainder when the requested amount is not a multiple.
	RoundSize int
}

const defaultRoundSize = 5

// MatchService contains the match execution use cases: creation,
// lifecycle transitions, answer scoring and finalization.
type MatchService struct {
	store    MatchStore
	catalog  QuestionCatalog
	notifier Notifier
	log      *zap.SugaredLogger
	cfg      Config
	locks    *lockTable

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

func NewMatchService(store MatchStore, catalog QuestionCatalog, notifier Notifier, log *zap.SugaredLogger, cfg Config) *MatchService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.RoundSize <= 0 {
		cfg.RoundSize = defaultRoundSize
	}
	return &MatchService{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		locks:    newLockTable(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartMatch moves a SCHEDULED match to ONGOING.
func (s *MatchService) StartMatch(ctx context.Context, matchID string) error {
	unlock := s.locks.lock(matchKey(matchID))
	defer unlock()

	now := time.Now()
	if err := s.store.SetMatchStatus(ctx, matchID, domain.StatusScheduled, domain.StatusOngoing, now); err != nil {
		return err
	}
	s.notifier.MatchStatusChanged(matchID, domain.StatusOngoing)
	s.log.Infow("match started", "matchId", matchID)
	return nil
}

// CancelMatch aborts a SCHEDULED or ONGOING match. No scores are
// produced and player stats are untouched.
func (s *MatchService) CancelMatch(ctx context.Context, matchID string) error {
	unlock := s.locks.lock(matchKey(matchID))
	defer unlock()

	status, err := s.store.MatchStatus(ctx, matchID)
	if err != nil {
		return err
	}
	if !status.CanTransitionTo(domain.StatusCanceled) {
		return fmt.Errorf("%w: cannot cancel %s match %s", domain.ErrInvalidTransition, status, matchID)
	}
	if err := s.store.SetMatchStatus(ctx, matchID, status, domain.StatusCanceled, time.Now()); err != nil {
		return err
	}
	s.notifier.MatchStatusChanged(matchID, domain.StatusCanceled)
	s.log.Infow("match canceled", "matchId", matchID)
	return nil
}

// GetMatch returns the full match aggregate.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	return s.store.GetMatch(ctx, matchID)
}

// Scores returns the finalized scores of a match.
func (s *MatchService) Scores(ctx context.Context, matchID string) ([]domain.Score, error) {
	return s.store.ScoresByMatch(ctx, matchID)
}

// QuestionAvailability reports how many catalog questions exist for a
// category, split by difficulty.
func (s *MatchService) QuestionAvailability(ctx context.Context, category string) (domain.CategoryCount, error) {
	return s.catalog.CountByCategory(ctx, category)
}

func matchKey(matchID string) string            { return "match:" + matchID }
func questionKey(matchQuestionID string) string { return "question:" + matchQuestionID }
func userKey(userID string) string              { return "user:" + userID }
