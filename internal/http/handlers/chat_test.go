package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorotheo-dental/sage/internal/conversation"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/internal/http/middleware"
)

type fakeEngine struct {
	lastPatient *directory.Patient
	lastText    string
	lastHistory []conversation.ChatMessage
	reply       conversation.Reply
}

func (f *fakeEngine) ProcessMessage(_ context.Context, patient *directory.Patient, text string, history []conversation.ChatMessage) conversation.Reply {
	f.lastPatient = patient
	f.lastText = text
	f.lastHistory = history
	return f.reply
}

type fakePatients struct {
	patients map[uuid.UUID]*directory.Patient
}

func (f *fakePatients) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func authedRequest(t *testing.T, patientID uuid.UUID, body []byte) *http.Request {
	t.Helper()
	token, err := middleware.SignPatientToken("secret", patientID, "Maria", 5*time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestChatHandlerProcessesMessage(t *testing.T) {
	patientID := uuid.New()
	engine := &fakeEngine{reply: conversation.Reply{
		Text:         "Which branch would you like to visit?\n\n[BOOK_STEP_1]",
		QuickReplies: []string{"Dorotheo Dental Makati"},
	}}
	patients := &fakePatients{patients: map[uuid.UUID]*directory.Patient{
		patientID: {ID: patientID, FirstName: "Maria", LastName: "Santos"},
	}}
	handler := NewChatHandler(engine, patients, nil)

	body, _ := json.Marshal(MessageRequest{
		Message: "I want to book an appointment",
		History: []conversation.ChatMessage{
			{Role: conversation.RoleUser, Content: "hello"},
			{Role: conversation.RoleAssistant, Content: "Hi Maria!"},
		},
	})
	rec := httptest.NewRecorder()
	middleware.PatientJWT("secret")(http.HandlerFunc(handler.HandleMessage)).
		ServeHTTP(rec, authedRequest(t, patientID, body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reply.Text, "[BOOK_STEP_1]")
	assert.Equal(t, []string{"Dorotheo Dental Makati"}, resp.Reply.QuickReplies)

	require.NotNil(t, engine.lastPatient)
	assert.Equal(t, patientID, engine.lastPatient.ID)
	assert.Equal(t, "I want to book an appointment", engine.lastText)
	assert.Len(t, engine.lastHistory, 2)
}

func TestChatHandlerRejectsUnauthenticated(t *testing.T) {
	handler := NewChatHandler(&fakeEngine{}, &fakePatients{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader([]byte(`{"message":"hi"}`)))
	rec := httptest.NewRecorder()
	middleware.PatientJWT("secret")(http.HandlerFunc(handler.HandleMessage)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHandlerRejectsUnknownPatient(t *testing.T) {
	handler := NewChatHandler(&fakeEngine{}, &fakePatients{}, nil)

	body, _ := json.Marshal(MessageRequest{Message: "hi"})
	rec := httptest.NewRecorder()
	middleware.PatientJWT("secret")(http.HandlerFunc(handler.HandleMessage)).
		ServeHTTP(rec, authedRequest(t, uuid.New(), body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatHandlerRejectsEmptyMessage(t *testing.T) {
	patientID := uuid.New()
	patients := &fakePatients{patients: map[uuid.UUID]*directory.Patient{
		patientID: {ID: patientID},
	}}
	handler := NewChatHandler(&fakeEngine{}, patients, nil)

	body, _ := json.Marshal(MessageRequest{Message: ""})
	rec := httptest.NewRecorder()
	middleware.PatientJWT("secret")(http.HandlerFunc(handler.HandleMessage)).
		ServeHTTP(rec, authedRequest(t, patientID, body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandlerRejectsBadJSON(t *testing.T) {
	patientID := uuid.New()
	patients := &fakePatients{patients: map[uuid.UUID]*directory.Patient{
		patientID: {ID: patientID},
	}}
	handler := NewChatHandler(&fakeEngine{}, patients, nil)

	rec := httptest.NewRecorder()
	middleware.PatientJWT("secret")(http.HandlerFunc(handler.HandleMessage)).
		ServeHTTP(rec, authedRequest(t, patientID, []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
