// Package notify delivers outbound bot messages: threaded channel
// replies and direct messages, with per-recipient failure isolation for
// multi-recipient broadcasts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type DispatcherOptions struct {
	// OpenConversation resolves/opens a DM channel for a user id.
	OpenConversation func(ctx context.Context, userID string) (string, error)
	// PostMessage posts text to a channel, threaded when threadTS is set.
	PostMessage func(ctx context.Context, channelID, text, threadTS string) error
	Logger      *slog.Logger
}

type Dispatcher struct {
	openConversation func(ctx context.Context, userID string) (string, error)
	postMessage      func(ctx context.Context, channelID, text, threadTS string) error
	log              *slog.Logger
}

func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.OpenConversation == nil {
		return nil, fmt.Errorf("open conversation func is required")
	}
	if opts.PostMessage == nil {
		return nil, fmt.Errorf("post message func is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		openConversation: opts.OpenConversation,
		postMessage:      opts.PostMessage,
		log:              log,
	}, nil
}

// Reply posts a threaded reply into a channel.
func (d *Dispatcher) Reply(ctx context.Context, channelID, threadTS, text string) error {
	return d.postMessage(ctx, channelID, text, threadTS)
}

// SendDirect opens a DM channel with userID and posts text into it.
// Failures are logged with the offending user id and returned; callers
// sending to multiple recipients continue past them.
func (d *Dispatcher) SendDirect(ctx context.Context, userID, text string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}
	channelID, err := d.openConversation(ctx, userID)
	if err != nil {
		d.log.Warn("dm_open_error", "user_id", userID, "error", err.Error())
		return err
	}
	if err := d.postMessage(ctx, channelID, text, ""); err != nil {
		d.log.Warn("dm_send_error", "user_id", userID, "error", err.Error())
		return err
	}
	return nil
}

// Broadcast sends text to every user id in order, once per occurrence.
// One failed recipient does not abort the rest.
func (d *Dispatcher) Broadcast(ctx context.Context, userIDs []string, text string) {
	for _, userID := range userIDs {
		_ = d.SendDirect(ctx, userID, text)
	}
}
