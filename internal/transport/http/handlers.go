// Package http adapts the quiz use cases to an HTTP JSON API and a
// websocket draft channel. The core services stay transport-free.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/domain"
)

// Handler exposes the quiz, answer and rating use cases over JSON.
type Handler struct {
	quizzes *app.QuizService
	answers *app.AnswerService
	ratings *app.RatingService
}

func NewHandler(quizzes *app.QuizService, answers *app.AnswerService, ratings *app.RatingService) *Handler {
	return &Handler{quizzes: quizzes, answers: answers, ratings: ratings}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PUT /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("GET /quizzes/{id}/results", h.listResults)
	mux.HandleFunc("POST /quizzes/{id}/answers", h.submitAnswer)
	mux.HandleFunc("GET /quizzes/{id}/answers/mine", h.findMine)
	mux.HandleFunc("POST /quizzes/{id}/ratings", h.rateQuiz)
	mux.HandleFunc("GET /answers/{id}", h.getAnswer)
	mux.HandleFunc("PUT /answers/{id}", h.editDraft)
	mux.HandleFunc("POST /answers/{id}/ready", h.markReady)
	mux.HandleFunc("POST /answers/{id}/assess", h.selfAssess)
	mux.HandleFunc("POST /answers/{id}/autocalculate", h.autoCalculate)
	mux.HandleFunc("POST /answers/{id}/complete", h.completeAssessment)
}

// identity reads the caller identity forwarded by the auth frontend.
func identity(r *http.Request) domain.Identity {
	return domain.Identity{
		UID:         r.Header.Get("X-User-Id"),
		DisplayName: r.Header.Get("X-User-Name"),
	}
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var input app.QuizInput
	if !decodeBody(w, r, &input) {
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), identity(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var input app.QuizInput
	if !decodeBody(w, r, &input) {
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), identity(r), r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListReadyQuizzes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	rows, err := h.quizzes.ListQuizResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type submitRequest struct {
	app.DraftData
	AsReview bool `json:"asReview"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.answers.Submit(r.Context(), identity(r), r.PathValue("id"), req.DraftData, req.AsReview)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) findMine(w http.ResponseWriter, r *http.Request) {
	answer, ok, err := h.answers.FindMine(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, domain.ErrAnswerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) getAnswer(w http.ResponseWriter, r *http.Request) {
	answer, err := h.answers.GetAnswer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) editDraft(w http.ResponseWriter, r *http.Request) {
	var data app.DraftData
	if !decodeBody(w, r, &data) {
		return
	}
	answer, err := h.answers.EditDraft(r.Context(), identity(r), r.PathValue("id"), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) markReady(w http.ResponseWriter, r *http.Request) {
	answer, err := h.answers.MarkReadyForReview(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type assessRequest struct {
	Scores []float64 `json:"scores"`
}

func (h *Handler) selfAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.answers.SelfAssess(r.Context(), identity(r), r.PathValue("id"), req.Scores)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) autoCalculate(w http.ResponseWriter, r *http.Request) {
	answer, err := h.answers.AutoCalculate(r.Context(), identity(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) completeAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.answers.CompleteAssessment(r.Context(), identity(r), r.PathValue("id"), req.Scores)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type rateRequest struct {
	Value *float64 `json:"value"`
}

func (h *Handler) rateQuiz(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := h.ratings.Rate(r.Context(), r.PathValue("id"), identity(r).UID, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrAnswerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStoreConflict):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
