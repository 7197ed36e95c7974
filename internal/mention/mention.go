// Package mention extracts user-mention tokens from Slack message and
// topic text.
package mention

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]+)?>`)

// Extract returns the user ids of every well-formed `<@USERID>` token in
// text, in left-to-right order. Duplicate mentions are preserved: the
// topic broadcast sends one DM per occurrence. Returns an empty slice
// when nothing matches.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		userID := strings.TrimSpace(match[1])
		if userID == "" {
			continue
		}
		out = append(out, userID)
	}
	return out
}
