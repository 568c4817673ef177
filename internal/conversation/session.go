package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dorotheo-dental/sage/pkg/logging"
)

// ConfidentThreshold is the confidence at which a draft field counts as
// confirmed for display purposes.
const ConfidentThreshold = 0.8

// BookingDraft is the optional per-patient scratch state. It accelerates
// confidence display only; flow position is always re-derived from the
// transcript, so losing a draft never corrupts a conversation.
type BookingDraft struct {
	Clinic  string `json:"clinic,omitempty"`
	Dentist string `json:"dentist,omitempty"`
	Service string `json:"service,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`

	Confidence map[string]float64 `json:"confidence,omitempty"`

	ConfirmationShown    bool `json:"confirmation_shown,omitempty"`
	ConfirmationAccepted bool `json:"confirmation_accepted,omitempty"`

	// Language survives draft resets within the same patient.
	Language  string    `json:"language,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfidentField reports whether a field's confidence clears the threshold.
func (d *BookingDraft) ConfidentField(name string) bool {
	return d.Confidence[name] >= ConfidentThreshold
}

// SetField records a field value with its confidence score.
func (d *BookingDraft) SetField(name, value string, confidence float64) {
	if d.Confidence == nil {
		d.Confidence = make(map[string]float64)
	}
	d.Confidence[name] = confidence
	switch name {
	case "clinic":
		d.Clinic = value
	case "dentist":
		d.Dentist = value
	case "service":
		d.Service = value
	case "date":
		d.Date = value
	case "time":
		d.Time = value
	}
}

// SessionStore keeps booking drafts in redis with a sliding TTL. Expiry
// discards the whole draft at once; the next message simply starts fresh.
type SessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *logging.Logger
}

// NewSessionStore constructs the draft store.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *SessionStore {
	if client == nil {
		panic("conversation: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionStore{client: client, ttl: ttl, logger: logger}
}

func sessionKey(patientID string) string {
	return "sage:session:" + patientID
}

// Get loads the patient's draft, or nil when none exists or it expired.
func (s *SessionStore) Get(ctx context.Context, patientID string) (*BookingDraft, error) {
	raw, err := s.client.Get(ctx, sessionKey(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load draft: %w", err)
	}
	var draft BookingDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		// Corrupt draft is not worth failing the turn over.
		s.logger.Warn("discarding unreadable booking draft", "patient_id", patientID, "error", err)
		return nil, nil
	}
	return &draft, nil
}

// Save writes the draft and restarts its TTL.
func (s *SessionStore) Save(ctx context.Context, patientID string, draft *BookingDraft) error {
	draft.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("conversation: marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(patientID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save draft: %w", err)
	}
	return nil
}

// Reset discards the draft but carries the patient's language forward into
// a fresh one.
func (s *SessionStore) Reset(ctx context.Context, patientID string) error {
	prev, err := s.Get(ctx, patientID)
	if err != nil {
		return err
	}
	fresh := &BookingDraft{}
	if prev != nil {
		fresh.Language = prev.Language
	}
	return s.Save(ctx, patientID, fresh)
}
