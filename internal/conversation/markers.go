package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Flow names one of the three multi-turn dialogues.
type Flow string

const (
	FlowSchedule   Flow = "schedule"
	FlowReschedule Flow = "reschedule"
	FlowCancel     Flow = "cancel"
)

// Schedule flow steps. The marker on a reply names the question that reply
// asked, so the next user message is the answer to that step.
const (
	StepClinic  = 1
	StepDentist = 2
	StepDate    = 3
	StepTime    = 4
	StepService = 5
	StepConfirm = 6
)

// Reschedule flow steps.
const (
	StepPickAppointment = 1
	StepNewDate         = 2
	StepNewTime         = 3
)

// Cancel flow steps reuse StepPickAppointment; confirmation is step 2.
const StepCancelConfirm = 2

// Marker is the typed form of a step tag. The tag string appended to reply
// text is the only persistence of flow position, so its rendering must stay
// stable across deployments.
type Marker struct {
	Flow Flow
	Step int
}

var flowTagPrefix = map[Flow]string{
	FlowSchedule:   "BOOK",
	FlowReschedule: "RESCHED",
	FlowCancel:     "CANCEL",
}

var tagPrefixFlow = map[string]Flow{
	"BOOK":    FlowSchedule,
	"RESCHED": FlowReschedule,
	"CANCEL":  FlowCancel,
}

// Tag renders the wire form, e.g. "[BOOK_STEP_3]".
func (m Marker) Tag() string {
	return fmt.Sprintf("[%s_STEP_%d]", flowTagPrefix[m.Flow], m.Step)
}

// Terminal tags end a flow or block one from starting.
const (
	TagFlowComplete    = "[FLOW_COMPLETE]"
	TagPendingBlock    = "[PENDING_BLOCK]"
	TagApprovalWelcome = "[APPROVAL_WELCOME]"
)

var terminalTags = []string{TagFlowComplete, TagPendingBlock, TagApprovalWelcome}

var stepTagRE = regexp.MustCompile(`\[(BOOK|RESCHED|CANCEL)_STEP_(\d+)\]`)

// parseMarker extracts the step marker from one assistant turn, if any. When
// markers from two flows coexist in a turn, cancel wins over reschedule over
// schedule.
func parseMarker(text string) (Marker, bool) {
	matches := stepTagRE.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return Marker{}, false
	}
	best := Marker{}
	found := false
	for _, m := range matches {
		flow := tagPrefixFlow[m[1]]
		step, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if !found || flowPrecedence(flow) < flowPrecedence(best.Flow) {
			best = Marker{Flow: flow, Step: step}
			found = true
		}
	}
	return best, found
}

func flowPrecedence(f Flow) int {
	switch f {
	case FlowCancel:
		return 0
	case FlowReschedule:
		return 1
	default:
		return 2
	}
}

func hasTerminalTag(text string) bool {
	for _, tag := range terminalTags {
		if strings.Contains(text, tag) {
			return true
		}
	}
	return false
}
