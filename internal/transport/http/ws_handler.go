package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/domain"
)

// WSHandler carries a participant's draft session over a websocket: the
// client streams autosaves while typing and can finish with a submit on the
// same connection.
type WSHandler struct {
	answers  *app.AnswerService
	upgrader websocket.Upgrader
}

func NewWSHandler(answers *app.AnswerService) *WSHandler {
	return &WSHandler{
		answers: answers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type savedPayload struct {
	AutoSavedAt time.Time `json:"autoSavedAt"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and loops over draft messages. Autosave
// failures are logged and swallowed so a flaky save never interrupts the
// participant's typing session; submit failures are always sent back.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if quizID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing quizId, userId, or name", http.StatusBadRequest)
		return
	}
	ident := domain.Identity{UID: userID, DisplayName: displayName}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "autosave":
			var data app.DraftData
			if err := json.Unmarshal(inbound.Payload, &data); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid autosave payload"}})
				continue
			}
			answer, err := h.answers.Autosave(r.Context(), ident, quizID, data)
			if err != nil {
				// never interrupt typing over a failed autosave
				log.Printf("autosave skipped for quiz %s user %s: %v", quizID, userID, err)
				continue
			}
			_ = conn.WriteJSON(outboundMessage[savedPayload]{Type: "saved", Payload: savedPayload{AutoSavedAt: answer.AutoSavedAt}})
		case "submit":
			var req submitRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}})
				continue
			}
			answer, err := h.answers.Submit(r.Context(), ident, quizID, req.DraftData, req.AsReview)
			if err != nil {
				_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			_ = conn.WriteJSON(outboundMessage[domain.Answer]{Type: "submitted", Payload: answer})
		default:
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
