package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/monitor"
)

// APIHandler exposes the synchronous match API as JSON over HTTP.
type APIHandler struct {
	service *app.MatchService
	metrics *monitor.Metrics
	log     *zap.SugaredLogger
}

func NewAPIHandler(service *app.MatchService, metrics *monitor.Metrics, log *zap.SugaredLogger) *APIHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &APIHandler{service: service, metrics: metrics, log: log}
}

// Register wires the API routes into the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /matches", h.createMatch)
	mux.HandleFunc("GET /matches/{id}", h.getMatch)
	mux.HandleFunc("POST /matches/{id}/start", h.startMatch)
	mux.HandleFunc("POST /matches/{id}/answers", h.submitAnswer)
	mux.HandleFunc("POST /matches/{id}/finish", h.finishMatch)
	mux.HandleFunc("POST /matches/{id}/cancel", h.cancelMatch)
	mux.HandleFunc("GET /categories/{category}/availability", h.availability)
}

type createMatchRequest struct {
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Amount     int      `json:"amount"`
	HostID     string   `json:"hostId"`
	Players    []string `json:"players"`
}

type matchQuestionDTO struct {
	ID       string    `json:"id"`
	Sequence int       `json:"sequence"`
	Prompt   string    `json:"prompt"`
	Options  [4]string `json:"options"`
}

type roundDTO struct {
	ID         string             `json:"id"`
	Sequence   int                `json:"sequence"`
	Category   string             `json:"category"`
	Difficulty string             `json:"difficulty"`
	Questions  []matchQuestionDTO `json:"questions"`
}

type matchResponse struct {
	MatchID   string     `json:"matchId"`
	Status    string     `json:"status"`
	HostID    string     `json:"hostId"`
	Players   []string   `json:"players"`
	Rounds    []roundDTO `json:"rounds"`
	Questions int        `json:"questions"`
}

// toMatchResponse renders a match for clients. The correct slot never
// leaves the server.
func toMatchResponse(m domain.Match) matchResponse {
	resp := matchResponse{
		MatchID:   m.ID,
		Status:    string(m.Status),
		HostID:    m.HostID,
		Questions: m.QuestionCount(),
	}
	for _, p := range m.Players {
		resp.Players = append(resp.Players, p.UserID)
	}
	for _, r := range m.Rounds {
		round := roundDTO{ID: r.ID, Sequence: r.Sequence, Category: r.Category, Difficulty: r.Difficulty}
		for _, q := range r.Questions {
			round.Questions = append(round.Questions, matchQuestionDTO{
				ID:       q.ID,
				Sequence: q.Sequence,
				Prompt:   q.Prompt,
				Options:  q.Options,
			})
		}
		resp.Rounds = append(resp.Rounds, round)
	}
	return resp
}

func (h *APIHandler) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	match, err := h.service.CreateMatch(r.Context(), app.CreateMatchRequest{
		Category:   req.Category,
		Difficulty: req.Difficulty,
		Amount:     req.Amount,
		HostID:     req.HostID,
		Players:    req.Players,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ActiveMatches.Inc()
	}
	writeJSON(w, http.StatusCreated, toMatchResponse(match))
}

func (h *APIHandler) getMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.service.GetMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchResponse(match))
}

func (h *APIHandler) startMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StartMatch(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusOngoing)})
}

type submitAnswerRequest struct {
	MatchQuestionID string `json:"matchQuestionId"`
	UserID          string `json:"userId"`
	SelectedOption  *int   `json:"selectedOption"`
	ResponseTimeMs  int64  `json:"responseTimeMs"`
}

type submitAnswerResponse struct {
	PointsAwarded int  `json:"pointsAwarded"`
	Correct       bool `json:"correct"`
	TotalScore    int  `json:"totalScore"`
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MatchQuestionID == "" || req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "matchQuestionId and userId are required")
		return
	}

	start := time.Now()
	result, err := h.service.SubmitAnswer(r.Context(), r.PathValue("id"), app.AnswerSubmission{
		MatchQuestionID: req.MatchQuestionID,
		UserID:          req.UserID,
		SelectedSlot:    req.SelectedOption,
		ResponseTimeMs:  req.ResponseTimeMs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveScoring(start, result.Correct)
	}
	writeJSON(w, http.StatusOK, submitAnswerResponse{
		PointsAwarded: result.Points,
		Correct:       result.Correct,
		TotalScore:    result.TotalScore,
	})
}

type scoreDTO struct {
	UserID            string `json:"userId"`
	TotalScore        int    `json:"totalScore"`
	CorrectAnswers    int    `json:"correctAnswers"`
	TotalQuestions    int    `json:"totalQuestions"`
	AvgResponseTimeMs int64  `json:"avgResponseTimeMs"`
}

func (h *APIHandler) finishMatch(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.FinishMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ActiveMatches.Dec()
		h.metrics.MatchesFinished.Inc()
	}
	out := make([]scoreDTO, 0, len(scores))
	for _, s := range scores {
		out = append(out, scoreDTO{
			UserID:            s.UserID,
			TotalScore:        s.TotalScore,
			CorrectAnswers:    s.CorrectAnswers,
			TotalQuestions:    s.TotalQuestions,
			AvgResponseTimeMs: s.AvgResponseTimeMs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": out})
}

func (h *APIHandler) cancelMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelMatch(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ActiveMatches.Dec()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.StatusCanceled)})
}

func (h *APIHandler) availability(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.QuestionAvailability(r.Context(), r.PathValue("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, count)
}

// writeError maps engine error kinds onto HTTP status codes: validation
// 400, unknown references 404, state conflicts 409, catalog shortfall
// 422.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidParticipants):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrUnknownQuestion),
		errors.Is(err, domain.ErrPlayerNotInMatch):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMatchNotOngoing),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateAnswer):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientQuestions):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "error", err)
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
