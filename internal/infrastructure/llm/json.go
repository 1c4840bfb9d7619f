package llm

import "strings"

// extractJSON pulls the JSON object out of a model reply that may wrap
// it in prose or a markdown fence. When no braces are found the reply is
// returned as-is so the caller's unmarshal reports the failure.
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		return reply[start : end+1]
	}

	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) > 2 {
			return strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return trimmed
}
