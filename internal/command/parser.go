// Package command classifies free-text Slack messages into bot commands.
//
// Matching is an ordered, non-exclusive scan: a single message may carry
// several independent triggers (e.g. "@pending remind me in 2 hours") and
// each one yields its own command. Unrecognized text yields nothing; a
// malformed reminder phrase is silently ignored.
package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindMarkPending      Kind = "mark_pending"
	KindMarkCompleted    Kind = "mark_completed"
	KindListPending      Kind = "list_pending"
	KindScheduleReminder Kind = "schedule_reminder"
)

const (
	triggerPending   = "@pending"
	triggerCompleted = "@completed"
	triggerList      = "@list_pending"
)

var remindPattern = regexp.MustCompile(`(?i)^remind me in (\d+) (minute|hour|day)s?\s*$`)

// Command is one recognized trigger extracted from a message.
type Command struct {
	Kind Kind

	// Delay is set for KindScheduleReminder only.
	Delay time.Duration
}

// Parse returns every command present in text, in trigger order
// (pending, reminder, completed, list). The empty slice means the
// message is not addressed to the bot.
func Parse(text string) []Command {
	var out []Command
	if strings.Contains(text, triggerPending) {
		out = append(out, Command{Kind: KindMarkPending})
	}
	if delay, ok := parseReminder(text); ok {
		out = append(out, Command{Kind: KindScheduleReminder, Delay: delay})
	}
	if strings.Contains(text, triggerCompleted) {
		out = append(out, Command{Kind: KindMarkCompleted})
	}
	if strings.Contains(text, triggerList) {
		out = append(out, Command{Kind: KindListPending})
	}
	return out
}

func parseReminder(text string) (time.Duration, bool) {
	matches := remindPattern.FindStringSubmatch(strings.TrimSpace(text))
	if len(matches) != 3 {
		return 0, false
	}
	amount, err := strconv.Atoi(matches[1])
	if err != nil || amount < 0 {
		return 0, false
	}
	var unit time.Duration
	switch strings.ToLower(matches[2]) {
	case "minute":
		unit = time.Minute
	case "hour":
		unit = time.Hour
	case "day":
		unit = 24 * time.Hour
	default:
		return 0, false
	}
	return time.Duration(amount) * unit, true
}
