package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/net/websocket"

	"github.com/dorotheo-dental/sage/internal/conversation"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/http/middleware"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

// ConversationEngine is the chat surface the handler drives.
type ConversationEngine interface {
	ProcessMessage(ctx context.Context, patient *directory.Patient, text string, history []conversation.ChatMessage) conversation.Reply
}

// PatientStore loads the authenticated patient's profile.
type PatientStore interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// ChatHandler serves the patient chat API. The client owns the transcript:
// every request carries the history, and replies embed the step markers the
// engine needs to resume the flow on the next turn.
type ChatHandler struct {
	engine   ConversationEngine
	patients PatientStore
	logger   *logging.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(engine ConversationEngine, patients PatientStore, logger *logging.Logger) *ChatHandler {
	if engine == nil {
		panic("handlers: conversation engine required")
	}
	if patients == nil {
		panic("handlers: patient store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{engine: engine, patients: patients, logger: logger}
}

// MessageRequest is the POST /v1/chat body.
type MessageRequest struct {
	Message string                     `json:"message"`
	History []conversation.ChatMessage `json:"history,omitempty"`
}

// MessageResponse wraps the engine reply.
type MessageResponse struct {
	Reply conversation.Reply `json:"reply"`
}

// HandleMessage processes one chat turn for the authenticated patient.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	patient, err := h.loadPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown patient")
		return
	}

	reply := h.engine.ProcessMessage(r.Context(), patient, req.Message, req.History)
	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

// wsInbound is what the chat widget sends over the socket.
type wsInbound struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// wsOutbound is what we send back.
type wsOutbound struct {
	Type         string   `json:"type"` // "message", "pong", "error"
	Text         string   `json:"text,omitempty"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}

// HandleWebSocket serves a persistent chat session. The connection keeps its
// own transcript so the widget doesn't resend history on every turn; the
// transcript dies with the socket, which is fine because the step markers in
// each reply let a future session resume from client-held history.
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	patient, err := h.loadPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown patient")
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, patient)
	}).ServeHTTP(w, r)
}

func (h *ChatHandler) serveWS(ctx context.Context, conn *websocket.Conn, patient *directory.Patient) {
	defer conn.Close()

	var history []conversation.ChatMessage
	for {
		var in wsInbound
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			return
		}

		switch in.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, wsOutbound{Type: "pong"})
		case "message":
			if in.Text == "" {
				_ = websocket.JSON.Send(conn, wsOutbound{Type: "error", Text: "empty message"})
				continue
			}
			reply := h.engine.ProcessMessage(ctx, patient, in.Text, history)
			history = append(history,
				conversation.ChatMessage{Role: conversation.RoleUser, Content: in.Text},
				conversation.ChatMessage{Role: conversation.RoleAssistant, Content: reply.Text},
			)
			if err := websocket.JSON.Send(conn, wsOutbound{
				Type:         "message",
				Text:         reply.Text,
				QuickReplies: reply.QuickReplies,
			}); err != nil {
				return
			}
		default:
			_ = websocket.JSON.Send(conn, wsOutbound{Type: "error", Text: "unknown message type"})
		}
	}
}

func (h *ChatHandler) loadPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	patient, err := h.patients.GetPatient(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("chat: load patient failed", "error", err, "patient_id", id)
		}
		return nil, err
	}
	return patient, nil
}
