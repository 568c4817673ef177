// Package conversation is the chat engine: it turns one inbound message plus
// the transcript so far into one reply. Flow position is reconstructed from
// step markers embedded in prior assistant turns, so the engine itself holds
// no per-conversation state between requests.
package conversation

// Role labels one side of the transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the transcript, supplied by the caller in order.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Reply is the engine's answer for one turn. QuickReplies are plain strings
// the client renders as buttons; tapping one sends the string back verbatim,
// so every quick reply must be parseable by the entity extractors.
type Reply struct {
	Text         string   `json:"text"`
	QuickReplies []string `json:"quick_replies,omitempty"`

	// Side-effect flags for the caller.
	AppointmentCreated bool `json:"appointment_created,omitempty"`
	RequestStaged      bool `json:"request_staged,omitempty"`
}
