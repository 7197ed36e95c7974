// Package task holds the pending-task record and its persistence
// adapters. A task is keyed by the thread anchor (the root message
// timestamp of the thread it lives in) and there is at most one record
// per anchor; re-marking a thread pending overwrites the record.
package task

import (
	"strings"
)

const StatusPending = "pending"

// PreviewLimit caps the stored preview of the thread's root message.
const PreviewLimit = 50

// Task is one unit of flagged, not-yet-completed work.
type Task struct {
	Status    string `json:"status"`
	ChannelID string `json:"channel"`
	Text      string `json:"text"`
	Comment   string `json:"comment"`
}

// Entry pairs a task with its thread anchor as returned by ListAll.
type Entry struct {
	ThreadTS string
	Task     Task
}

// New builds a pending task with the preview already truncated.
func New(channelID, previewText, comment string) Task {
	return Task{
		Status:    StatusPending,
		ChannelID: channelID,
		Text:      TruncatePreview(previewText),
		Comment:   comment,
	}
}

// TruncatePreview cuts text to PreviewLimit runes.
func TruncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLimit {
		return text
	}
	return string(runes[:PreviewLimit])
}

// ThreadLink formats the Slack archive permalink for a thread. The
// anchor's dot is removed to match Slack's own p-link scheme, e.g.
// anchor "1700000000.123456" in channel C1 on domain acme becomes
// https://acme.slack.com/archives/C1/p1700000000123456.
func ThreadLink(domain, channelID, threadTS string) string {
	return "https://" + domain + ".slack.com/archives/" + channelID + "/p" + strings.ReplaceAll(threadTS, ".", "")
}
