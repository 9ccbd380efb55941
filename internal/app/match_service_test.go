package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
)

func TestCreateMatchBuildsRounds(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 12)

	match, err := service.CreateMatch(ctx, app.CreateMatchRequest{
		Category: "science",
		Amount:   12,
		HostID:   "host",
		Players:  []string{"u1", "u2"},
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}

	if match.Status != domain.StatusScheduled {
		t.Fatalf("expected SCHEDULED, got %s", match.Status)
	}
	if len(match.Rounds) != 3 {
		t.Fatalf("expected 3 rounds of 5+5+2, got %d", len(match.Rounds))
	}
	if got := len(match.Rounds[2].Questions); got != 2 {
		t.Fatalf("expected last round to hold the remainder of 2, got %d", got)
	}
	if match.QuestionCount() != 12 {
		t.Fatalf("expected 12 questions, got %d", match.QuestionCount())
	}

	// Host is part of the roster even when not listed.
	if len(match.Players) != 3 {
		t.Fatalf("expected host plus 2 players, got %d", len(match.Players))
	}

	seq := 0
	for _, r := range match.Rounds {
		seq++
		if r.Sequence != seq {
			t.Fatalf("expected round sequence %d, got %d", seq, r.Sequence)
		}
		for i, q := range r.Questions {
			if q.Sequence != i+1 {
				t.Fatalf("expected question sequence %d, got %d", i+1, q.Sequence)
			}
			if q.CorrectSlot < 0 || q.CorrectSlot > 3 {
				t.Fatalf("correct slot out of range: %d", q.CorrectSlot)
			}
			for _, opt := range q.Options {
				if opt == "" {
					t.Fatalf("question %s has an empty option slot", q.ID)
				}
			}
		}
	}
}

func TestCreateMatchInsufficientQuestionsPersistsNothing(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 3)

	_, err := service.CreateMatch(ctx, app.CreateMatchRequest{
		Category: "science",
		Amount:   10,
		HostID:   "host",
	})
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected insufficient questions error, got %v", err)
	}

	// Nothing should have been written.
	if _, err := store.AnswersByMatch(ctx, "any"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected match not found, got %v", err)
	}
}

func TestCreateMatchValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)

	cases := []struct {
		name string
		req  app.CreateMatchRequest
		want error
	}{
		{"missing host", app.CreateMatchRequest{Category: "science", Amount: 5}, domain.ErrInvalidParticipants},
		{"empty player", app.CreateMatchRequest{Category: "science", Amount: 5, HostID: "h", Players: []string{""}}, domain.ErrInvalidParticipants},
		{"duplicate player", app.CreateMatchRequest{Category: "science", Amount: 5, HostID: "h", Players: []string{"u1", "u1"}}, domain.ErrInvalidParticipants},
		{"missing category", app.CreateMatchRequest{Amount: 5, HostID: "h"}, domain.ErrInvalidRequest},
		{"zero amount", app.CreateMatchRequest{Category: "science", HostID: "h"}, domain.ErrInvalidRequest},
	}
	for _, tc := range cases {
		if _, err := service.CreateMatch(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestFirstSubmissionStartsMatch(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")
	q := match.Rounds[0].Questions[0]

	result, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID,
		UserID:          "u1",
		SelectedSlot:    &q.CorrectSlot,
		ResponseTimeMs:  2000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Points != app.MaxPoints {
		t.Fatalf("first correct answer should earn %d, got %d", app.MaxPoints, result.Points)
	}

	got, err := service.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Status != domain.StatusOngoing {
		t.Fatalf("expected ONGOING after first submission, got %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Fatalf("expected StartedAt to be stamped")
	}
}

func TestSpeedPenaltyScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1", "u2", "u3")
	q := match.Rounds[0].Questions[0]

	submit := func(userID string, rt int64) app.AnswerResult {
		t.Helper()
		result, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
			MatchQuestionID: q.ID,
			UserID:          userID,
			SelectedSlot:    &q.CorrectSlot,
			ResponseTimeMs:  rt,
		})
		if err != nil {
			t.Fatalf("submit %s: %v", userID, err)
		}
		return result
	}

	if got := submit("u1", 2000).Points; got != 100 {
		t.Fatalf("fastest correct answer: expected 100, got %d", got)
	}
	// 500ms behind the fastest costs 5 points.
	if got := submit("u2", 2500).Points; got != 95 {
		t.Fatalf("expected 95, got %d", got)
	}
	// Far behind bottoms out at the floor.
	if got := submit("u3", 15000).Points; got != app.MinPoints {
		t.Fatalf("expected floor of %d, got %d", app.MinPoints, got)
	}
}

func TestIncorrectAndTimeoutScoreZero(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1", "u2")
	q := match.Rounds[0].Questions[0]

	wrong := (q.CorrectSlot + 1) % 4
	result, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID,
		UserID:          "u1",
		SelectedSlot:    &wrong,
		ResponseTimeMs:  500,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct || result.Points != 0 {
		t.Fatalf("wrong answer should score 0, got correct=%v points=%d", result.Correct, result.Points)
	}

	// Timeout: no option selected.
	result, err = service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID,
		UserID:          "u2",
		ResponseTimeMs:  30000,
	})
	if err != nil {
		t.Fatalf("submit timeout: %v", err)
	}
	if result.Correct || result.Points != 0 {
		t.Fatalf("timeout should score 0, got correct=%v points=%d", result.Correct, result.Points)
	}
}

func TestNoRetroactiveRescore(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1", "u2")
	q := match.Rounds[0].Questions[0]

	// A slow first correct answer becomes the reference and earns full points.
	first, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u1", SelectedSlot: &q.CorrectSlot, ResponseTimeMs: 5000,
	})
	if err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	if first.Points != 100 {
		t.Fatalf("expected 100 for first correct, got %d", first.Points)
	}

	// A faster answer arriving later is capped at the ceiling and must not
	// change what u1 already earned.
	second, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u2", SelectedSlot: &q.CorrectSlot, ResponseTimeMs: 2000,
	})
	if err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	if second.Points != 100 {
		t.Fatalf("expected capped 100, got %d", second.Points)
	}

	answers, err := store.AnswersByMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	for _, a := range answers {
		if a.UserID == "u1" && a.Points != 100 {
			t.Fatalf("committed answer was rescored to %d", a.Points)
		}
	}
}

func TestDuplicateAnswerRejected(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")
	q := match.Rounds[0].Questions[0]

	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u1", SelectedSlot: &q.CorrectSlot, ResponseTimeMs: 1000,
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u1", SelectedSlot: &q.CorrectSlot, ResponseTimeMs: 900,
	})
	if !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate answer error, got %v", err)
	}

	player, err := storePlayer(service, ctx, match.ID, "u1")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if player.Score != 100 {
		t.Fatalf("duplicate must not change the score, got %d", player.Score)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")
	q := match.Rounds[0].Questions[0]

	if _, err := service.SubmitAnswer(ctx, "nope", app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u1",
	}); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected match not found, got %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: "nope", UserID: "u1",
	}); !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected unknown question, got %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "stranger",
	}); !errors.Is(err, domain.ErrPlayerNotInMatch) {
		t.Fatalf("expected player not in match, got %v", err)
	}
}

func TestFinishMatchScoresAndStats(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1", "u2")
	q0 := match.Rounds[0].Questions[0]
	q1 := match.Rounds[0].Questions[1]

	mustSubmit(t, service, match.ID, q0.ID, "u1", &q0.CorrectSlot, 1000) // 100
	mustSubmit(t, service, match.ID, q0.ID, "u2", &q0.CorrectSlot, 2000) // 90
	mustSubmit(t, service, match.ID, q1.ID, "u1", &q1.CorrectSlot, 3000) // 100

	scores, err := service.FinishMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected a score row for all 3 participants, got %d", len(scores))
	}
	if scores[0].UserID != "u1" || scores[0].TotalScore != 200 {
		t.Fatalf("expected u1 leading with 200, got %+v", scores[0])
	}
	if scores[0].CorrectAnswers != 2 || scores[0].AvgResponseTimeMs != 2000 {
		t.Fatalf("unexpected u1 aggregates: %+v", scores[0])
	}
	if scores[1].UserID != "u2" || scores[1].TotalScore != 90 {
		t.Fatalf("expected u2 with 90, got %+v", scores[1])
	}
	// The silent host still gets a zero row.
	if scores[2].UserID != "host" || scores[2].TotalScore != 0 {
		t.Fatalf("expected zero row for host, got %+v", scores[2])
	}
	for _, sc := range scores {
		if sc.TotalQuestions != 5 {
			t.Fatalf("expected 5 total questions, got %d", sc.TotalQuestions)
		}
	}

	stats, found, err := store.UserStats(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("stats u1: found=%v err=%v", found, err)
	}
	if stats.GamesPlayed != 1 || stats.GamesWon != 1 {
		t.Fatalf("expected u1 to have played and won once, got %+v", stats)
	}
	if stats.HighestScore != 200 || stats.AverageScore != 200 {
		t.Fatalf("unexpected u1 score stats: %+v", stats)
	}
	if stats.BestCategory != "science" {
		t.Fatalf("expected best category science, got %q", stats.BestCategory)
	}

	stats, found, err = store.UserStats(ctx, "u2")
	if err != nil || !found {
		t.Fatalf("stats u2: found=%v err=%v", found, err)
	}
	if stats.GamesPlayed != 1 || stats.GamesWon != 0 {
		t.Fatalf("expected u2 to have played but not won, got %+v", stats)
	}

	got, _ := service.GetMatch(ctx, match.ID)
	if got.Status != domain.StatusFinished || got.EndedAt == nil {
		t.Fatalf("expected FINISHED with EndedAt, got %s %v", got.Status, got.EndedAt)
	}
}

func TestFinishMatchTieCreditsNoWinner(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 5)
	match := createMatch(t, service, 5, "u1", "u2")
	q := match.Rounds[0].Questions[0]

	mustSubmit(t, service, match.ID, q.ID, "u1", &q.CorrectSlot, 1000)
	mustSubmit(t, service, match.ID, q.ID, "u2", &q.CorrectSlot, 1000)

	if _, err := service.FinishMatch(ctx, match.ID); err != nil {
		t.Fatalf("finish: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		stats, _, err := store.UserStats(ctx, userID)
		if err != nil {
			t.Fatalf("stats %s: %v", userID, err)
		}
		if stats.GamesWon != 0 {
			t.Fatalf("tie must credit nobody, %s has %d wins", userID, stats.GamesWon)
		}
	}
}

func TestDoubleFinishFails(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")
	q := match.Rounds[0].Questions[0]
	mustSubmit(t, service, match.ID, q.ID, "u1", &q.CorrectSlot, 1000)

	first, err := service.FinishMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := service.FinishMatch(ctx, match.ID); !errors.Is(err, domain.ErrMatchNotOngoing) {
		t.Fatalf("expected not-ongoing error on second finish, got %v", err)
	}

	// First finalization stays committed.
	scores, err := service.Scores(ctx, match.ID)
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if len(scores) != len(first) || scores[0].TotalScore != first[0].TotalScore {
		t.Fatalf("scores changed after failed re-finalize: %+v vs %+v", scores, first)
	}
}

func TestLifecycleGuards(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")

	// Explicit start, then double start fails.
	if err := service.StartMatch(ctx, match.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.StartMatch(ctx, match.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on double start, got %v", err)
	}

	// Cancel ONGOING works; submissions afterwards are rejected.
	if err := service.CancelMatch(ctx, match.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	q := match.Rounds[0].Questions[0]
	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "u1", SelectedSlot: &q.CorrectSlot,
	}); !errors.Is(err, domain.ErrMatchNotOngoing) {
		t.Fatalf("expected not-ongoing after cancel, got %v", err)
	}

	// Terminal states cannot be canceled again or finished.
	if err := service.CancelMatch(ctx, match.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition canceling canceled match, got %v", err)
	}
	if _, err := service.FinishMatch(ctx, match.ID); !errors.Is(err, domain.ErrMatchNotOngoing) {
		t.Fatalf("expected not-ongoing finishing canceled match, got %v", err)
	}
}

func TestConcurrentSubmissionsStayConsistent(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 5)

	const players = 16
	roster := make([]string, players)
	for i := range roster {
		roster[i] = fmt.Sprintf("u%02d", i)
	}
	match := createMatch(t, service, 5, "host", roster...)
	q := match.Rounds[0].Questions[0]

	var wg sync.WaitGroup
	results := make([]app.AnswerResult, players)
	errs := make([]error, players)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
				MatchQuestionID: q.ID,
				UserID:          roster[i],
				SelectedSlot:    &q.CorrectSlot,
				ResponseTimeMs:  1000,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
	}
	// Identical response times mean nobody is behind the fastest.
	for i, r := range results {
		if r.Points != app.MaxPoints {
			t.Fatalf("submission %d: expected %d points, got %d", i, app.MaxPoints, r.Points)
		}
	}

	answers, err := store.AnswersByMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != players {
		t.Fatalf("expected %d committed answers, got %d", players, len(answers))
	}
}

func TestConcurrentFirstSubmissionsAllAccepted(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)

	// Repeat to shake out the start race: every racer reads SCHEDULED,
	// only one wins the transition, and the rest must still score.
	for iter := 0; iter < 25; iter++ {
		roster := []string{"u1", "u2", "u3", "u4"}
		match := createMatch(t, service, 5, "host", roster...)
		questions := match.Rounds[0].Questions

		start := make(chan struct{})
		var wg sync.WaitGroup
		errs := make([]error, len(roster))
		for i := range roster {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q := questions[i]
				<-start
				_, errs[i] = service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
					MatchQuestionID: q.ID,
					UserID:          roster[i],
					SelectedSlot:    &q.CorrectSlot,
					ResponseTimeMs:  1000,
				})
			}(i)
		}
		close(start)
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("iteration %d: valid first submission %d rejected: %v", iter, i, err)
			}
		}
		got, err := service.GetMatch(ctx, match.ID)
		if err != nil {
			t.Fatalf("get match: %v", err)
		}
		if got.Status != domain.StatusOngoing {
			t.Fatalf("iteration %d: expected ONGOING, got %s", iter, got.Status)
		}
	}
}

func TestConcurrentFinalizationsMergeSharedStats(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t, 5)

	const matches = 8
	ids := make([]string, matches)
	for i := range ids {
		match := createMatch(t, service, 5, fmt.Sprintf("host%d", i), "shared")
		q := match.Rounds[0].Questions[0]
		mustSubmit(t, service, match.ID, q.ID, "shared", &q.CorrectSlot, 1000)
		ids[i] = match.ID
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, matches)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = service.FinishMatch(ctx, ids[i])
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("finish %d: %v", i, err)
		}
	}

	stats, found, err := store.UserStats(ctx, "shared")
	if err != nil || !found {
		t.Fatalf("stats: found=%v err=%v", found, err)
	}
	if stats.GamesPlayed != matches {
		t.Fatalf("expected exactly %d games played, got %d", matches, stats.GamesPlayed)
	}
	if stats.GamesWon != matches {
		t.Fatalf("expected %d wins over silent hosts, got %d", matches, stats.GamesWon)
	}
	if stats.TotalScore != int64(matches*100) {
		t.Fatalf("expected total score %d, got %d", matches*100, stats.TotalScore)
	}
	if stats.TotalAnswers != matches {
		t.Fatalf("expected %d lifetime answers, got %d", matches, stats.TotalAnswers)
	}
}

func TestRejectedSubmissionLeavesMatchScheduled(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, 5)
	match := createMatch(t, service, 5, "host", "u1")
	q := match.Rounds[0].Questions[0]

	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: "does-not-exist", UserID: "u1", SelectedSlot: &q.CorrectSlot,
	}); !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected unknown question, got %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, match.ID, app.AnswerSubmission{
		MatchQuestionID: q.ID, UserID: "stranger", SelectedSlot: &q.CorrectSlot,
	}); !errors.Is(err, domain.ErrPlayerNotInMatch) {
		t.Fatalf("expected player not in match, got %v", err)
	}

	got, err := service.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Status != domain.StatusScheduled {
		t.Fatalf("rejected submission changed match status to %s", got.Status)
	}
	if got.StartedAt != nil {
		t.Fatalf("rejected submission stamped StartedAt")
	}
}

func mustSubmit(t *testing.T, service *app.MatchService, matchID, questionID, userID string, slot *int, rt int64) app.AnswerResult {
	t.Helper()
	result, err := service.SubmitAnswer(context.Background(), matchID, app.AnswerSubmission{
		MatchQuestionID: questionID,
		UserID:          userID,
		SelectedSlot:    slot,
		ResponseTimeMs:  rt,
	})
	if err != nil {
		t.Fatalf("submit %s/%s: %v", questionID, userID, err)
	}
	return result
}

func createMatch(t *testing.T, service *app.MatchService, amount int, hostID string, players ...string) domain.Match {
	t.Helper()
	match, err := service.CreateMatch(context.Background(), app.CreateMatchRequest{
		Category: "science",
		Amount:   amount,
		HostID:   hostID,
		Players:  players,
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return match
}

func storePlayer(service *app.MatchService, ctx context.Context, matchID, userID string) (domain.MatchPlayer, error) {
	match, err := service.GetMatch(ctx, matchID)
	if err != nil {
		return domain.MatchPlayer{}, err
	}
	for _, p := range match.Players {
		if p.UserID == userID {
			return p, nil
		}
	}
	return domain.MatchPlayer{}, domain.ErrPlayerNotInMatch
}

func newTestService(t *testing.T, catalogSize int) (*app.MatchService, *memory.MatchStore) {
	t.Helper()
	questions := make([]domain.Question, 0, catalogSize)
	for i := 0; i < catalogSize; i++ {
		questions = append(questions, domain.NewQuestion(
			"science", "easy",
			fmt.Sprintf("Question number %d?", i),
			fmt.Sprintf("Right %d", i),
			[3]string{
				fmt.Sprintf("Wrong %d-a", i),
				fmt.Sprintf("Wrong %d-b", i),
				fmt.Sprintf("Wrong %d-c", i),
			},
		))
	}
	store := memory.NewMatchStore()
	catalog := memory.NewQuestionCatalog(memory.NewStaticQuestionSource(questions), 5*time.Minute)
	return app.NewMatchService(store, catalog, nil, nil, app.Config{}), store
}
