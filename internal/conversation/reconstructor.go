package conversation

// maxScanTurns bounds how far back the reconstructor looks. Conversations
// longer than this have long since completed or abandoned any earlier flow.
const maxScanTurns = 20

// Reconstruct derives the active flow and its last-asked step from the
// transcript alone. It scans assistant turns newest to oldest: a terminal
// tag seen before any step marker means no flow is active; otherwise the
// first step marker found names the flow. Re-running over the same history
// always yields the same answer.
func Reconstruct(history []ChatMessage) (Marker, bool) {
	scanned := 0
	for i := len(history) - 1; i >= 0 && scanned < maxScanTurns; i-- {
		turn := history[i]
		if turn.Role != RoleAssistant {
			continue
		}
		scanned++
		if m, ok := parseMarker(turn.Content); ok {
			return m, true
		}
		if hasTerminalTag(turn.Content) {
			return Marker{}, false
		}
	}
	return Marker{}, false
}

// flowWindow returns the user turns since the last terminated flow, oldest
// first. Entity gathering reads only these, so values from a finished
// booking never leak into a new one.
func flowWindow(history []ChatMessage) []ChatMessage {
	start := 0
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role == RoleAssistant && hasTerminalTag(turn.Content) {
			start = i + 1
			break
		}
	}
	var out []ChatMessage
	for _, turn := range history[start:] {
		if turn.Role == RoleUser {
			out = append(out, turn)
		}
	}
	return out
}
