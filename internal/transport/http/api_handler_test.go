package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	"trivia-match-service/internal/monitor"
	"trivia-match-service/internal/notify"
)

func TestMatchAPIFlow(t *testing.T) {
	server, service := newTestServer(t)
	defer server.Close()

	created := postJSON(t, server, "/matches", map[string]any{
		"category": "science",
		"amount":   5,
		"hostId":   "host",
		"players":  []string{"u1", "u2"},
	}, http.StatusCreated)

	matchID := created["matchId"].(string)
	if created["status"] != string(domain.StatusScheduled) {
		t.Fatalf("expected SCHEDULED, got %v", created["status"])
	}
	rounds := created["rounds"].([]any)
	if len(rounds) != 1 {
		t.Fatalf("expected 1 round, got %d", len(rounds))
	}
	questions := rounds[0].(map[string]any)["questions"].([]any)
	if len(questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(questions))
	}
	// The correct slot must never be serialized.
	if _, leaked := questions[0].(map[string]any)["correctSlot"]; leaked {
		t.Fatalf("correct slot leaked into the response")
	}

	// Find the correct slot through the service to drive the scenario.
	match, err := service.GetMatch(context.Background(), matchID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	q := match.Rounds[0].Questions[0]

	answered := postJSON(t, server, "/matches/"+matchID+"/answers", map[string]any{
		"matchQuestionId": q.ID,
		"userId":          "u1",
		"selectedOption":  q.CorrectSlot,
		"responseTimeMs":  1200,
	}, http.StatusOK)
	if answered["correct"] != true || answered["pointsAwarded"].(float64) != 100 {
		t.Fatalf("unexpected answer result %v", answered)
	}

	// Duplicate submission conflicts.
	postJSON(t, server, "/matches/"+matchID+"/answers", map[string]any{
		"matchQuestionId": q.ID,
		"userId":          "u1",
		"selectedOption":  q.CorrectSlot,
		"responseTimeMs":  900,
	}, http.StatusConflict)

	finished := postJSON(t, server, "/matches/"+matchID+"/finish", nil, http.StatusOK)
	scores := finished["scores"].([]any)
	if len(scores) != 3 {
		t.Fatalf("expected 3 score rows, got %d", len(scores))
	}
	top := scores[0].(map[string]any)
	if top["userId"] != "u1" || top["totalScore"].(float64) != 100 {
		t.Fatalf("expected u1 leading with 100, got %v", top)
	}

	// Finished matches reject further transitions.
	postJSON(t, server, "/matches/"+matchID+"/cancel", nil, http.StatusConflict)
}

func TestMatchAPIErrorMapping(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	// Unknown match.
	resp, err := http.Get(server.URL + "/matches/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Roster validation.
	postJSON(t, server, "/matches", map[string]any{
		"category": "science",
		"amount":   5,
	}, http.StatusBadRequest)

	// Catalog cannot satisfy the request.
	postJSON(t, server, "/matches", map[string]any{
		"category": "science",
		"amount":   50,
		"hostId":   "host",
	}, http.StatusUnprocessableEntity)

	// Malformed body.
	resp, err = http.Post(server.URL+"/matches", "application/json", bytes.NewBufferString("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/categories/science/availability")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var count domain.CategoryCount
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if count.Total != 6 || count.Easy != 6 {
		t.Fatalf("unexpected counts %+v", count)
	}
}

func postJSON(t *testing.T, server *httptest.Server, path string, body any, wantStatus int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(server.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("post %s: expected %d, got %d", path, wantStatus, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func newTestServer(t *testing.T) (*httptest.Server, *app.MatchService) {
	t.Helper()
	questions := make([]domain.Question, 0, 6)
	for i := 0; i < 6; i++ {
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
	catalog := memory.NewQuestionCatalog(memory.NewStaticQuestionSource(questions), time.Minute)
	hub := notify.NewHub(nil)
	service := app.NewMatchService(store, catalog, hub, nil, app.Config{})

	mux := http.NewServeMux()
	NewAPIHandler(service, monitor.New("test"), nil).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(hub, nil).ServeWS)
	return httptest.NewServer(mux), service
}
