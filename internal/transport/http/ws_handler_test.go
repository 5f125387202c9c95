package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/infra/memory"
	"musicquiz-service/internal/match"
	"musicquiz-service/internal/scoring"
)

func TestWebSocketDraftFlow(t *testing.T) {
	store := memory.NewStore()
	seedQuiz(t, store)
	service := app.NewAnswerService(store, store, match.DefaultThreshold)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1&userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	autosave := map[string]any{
		"type": "autosave",
		"payload": map[string]any{
			"teamSize": 1,
			"answers": []map[string]string{
				{"artist": "queen", "songName": "Bohemian Rhapsody"},
				{"artist": "", "songName": ""},
			},
		},
	}
	if err := conn.WriteJSON(autosave); err != nil {
		t.Fatalf("write autosave: %v", err)
	}
	if typ := readNext(conn, t); typ != "saved" {
		t.Fatalf("expected saved ack, got %s", typ)
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"teamSize": 1,
			"answers": []map[string]string{
				{"artist": "queen", "songName": "Bohemian Rhapsody"},
				{"artist": "blink 182", "songName": "All The Small Things"},
			},
			"asReview": true,
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	if typ := readNext(conn, t); typ != "submitted" {
		t.Fatalf("expected submitted, got %s", typ)
	}

	answer, ok, err := store.FindByQuizAndCreator(context.Background(), "quiz-1", "u1")
	if err != nil || !ok {
		t.Fatalf("expected persisted answer, ok=%v err=%v", ok, err)
	}
	if answer.State() != domain.StateReadyForReview {
		t.Fatalf("expected readyForReview, got %s", answer.State())
	}
}

func TestWebSocketRejectsMissingIdentity(t *testing.T) {
	store := memory.NewStore()
	service := app.NewAnswerService(store, store, match.DefaultThreshold)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=quiz-1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) string {
	t.Helper()
	var msg struct {
		Type string `json:"type"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type
}

func seedQuiz(t *testing.T, store *memory.Store) {
	t.Helper()
	questions := []domain.Question{
		{Artist: "Queen", Song: "Bohemian Rhapsody"},
		{Artist: "Blink-182", Song: "All the Small Things", Extra: "Release year?", CorrectExtraAnswer: "1999"},
	}
	if err := store.CreateQuiz(context.Background(), domain.Quiz{
		ID:                 "quiz-1",
		Title:              "Socket quiz",
		Questions:          questions,
		Amount:             len(questions),
		CalculatedMaxScore: scoring.MaxScore(questions),
		IsReady:            true,
		CreatedBy:          "host",
	}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
}
