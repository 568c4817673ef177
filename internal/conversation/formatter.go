package conversation

import "strings"

// formatForMobile shapes reply text for a phone screen: consecutive blank
// lines collapse to one, and anything past maxLines is cut with a trailing
// "…and more" marker. Step tags always survive the cut, since losing one
// would strand the conversation. Applied uniformly to every flow reply.
func formatForMobile(text string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")

	collapsed := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			collapsed = append(collapsed, "")
			continue
		}
		blank = false
		collapsed = append(collapsed, line)
	}

	if maxLines <= 0 || len(collapsed) <= maxLines {
		return strings.Join(collapsed, "\n")
	}

	var tail []string
	for _, line := range collapsed {
		if stepTagRE.MatchString(line) || hasTerminalTag(line) {
			tail = append(tail, line)
		}
	}

	keep := maxLines - 1 - len(tail)
	if keep < 1 {
		keep = 1
	}
	out := append([]string{}, collapsed[:keep]...)
	out = append(out, "…and more")
	out = append(out, tail...)
	return strings.Join(out, "\n")
}
