// Package tracker applies parsed commands against the task store and
// drives the outbound side effects: confirmation replies, pending-list
// rendering, topic-change broadcasts, and reminder arming.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/threadkeeper/internal/command"
	"github.com/quailyquaily/threadkeeper/internal/mention"
	"github.com/quailyquaily/threadkeeper/internal/task"
)

const (
	replyMarkedPending   = "Marked this thread as pending. Reply `remind me in <N> <minutes|hours|days>` in this thread and I will DM you a reminder."
	replyMarkedCompleted = "Marked this thread as completed."
	replyNoPendingTasks  = "No pending tasks."
	replyNeedThread      = "Reminders only work inside a thread. Reply in the pending thread and try again."
	replyGenericFailure  = "Something went wrong, please try again."

	topicBroadcastPreamble = "You were mentioned in a channel topic. These threads are still pending:"
)

// Event is one inbound chat message, already filtered by the transport.
type Event struct {
	ChannelID string
	UserID    string
	MessageTS string
	ThreadTS  string
	Text      string
}

// Replier posts a threaded reply into a channel.
type Replier interface {
	Reply(ctx context.Context, channelID, threadTS, text string) error
}

// Broadcaster DMs a list of users, continuing past per-recipient
// failures.
type Broadcaster interface {
	Broadcast(ctx context.Context, userIDs []string, text string)
}

// ReminderScheduler arms a one-shot reminder.
type ReminderScheduler interface {
	Schedule(userID, threadTS string, delay time.Duration) (string, error)
}

type Options struct {
	Store       task.Store
	Replier     Replier
	Broadcaster Broadcaster
	Reminders   ReminderScheduler
	// Domain resolves the workspace domain for thread links.
	Domain func(ctx context.Context) (string, error)
	// FetchRootText reads the thread's root message text for the
	// stored preview.
	FetchRootText func(ctx context.Context, channelID, threadTS string) (string, error)
	Logger        *slog.Logger
}

type Controller struct {
	store         task.Store
	replier       Replier
	broadcaster   Broadcaster
	reminders     ReminderScheduler
	domain        func(ctx context.Context) (string, error)
	fetchRootText func(ctx context.Context, channelID, threadTS string) (string, error)
	log           *slog.Logger
}

func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if opts.Replier == nil {
		return nil, fmt.Errorf("nil replier")
	}
	if opts.Broadcaster == nil {
		return nil, fmt.Errorf("nil broadcaster")
	}
	if opts.Reminders == nil {
		return nil, fmt.Errorf("nil reminder scheduler")
	}
	if opts.Domain == nil {
		return nil, fmt.Errorf("nil domain resolver")
	}
	if opts.FetchRootText == nil {
		return nil, fmt.Errorf("nil root text fetcher")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:         opts.Store,
		replier:       opts.Replier,
		broadcaster:   opts.Broadcaster,
		reminders:     opts.Reminders,
		domain:        opts.Domain,
		fetchRootText: opts.FetchRootText,
		log:           log,
	}, nil
}

// HandleMessage classifies the event's text and executes every matching
// command. Failures are logged and answered in-thread where a reply
// makes sense; nothing propagates to the caller.
func (c *Controller) HandleMessage(ctx context.Context, ev Event) {
	for _, cmd := range command.Parse(ev.Text) {
		switch cmd.Kind {
		case command.KindMarkPending:
			c.markPending(ctx, ev)
		case command.KindScheduleReminder:
			c.scheduleReminder(ctx, ev, cmd.Delay)
		case command.KindMarkCompleted:
			c.markCompleted(ctx, ev)
		case command.KindListPending:
			c.listPending(ctx, ev)
		}
	}
}

// HandleTopicChange broadcasts the pending-task digest to every user
// mentioned in the new topic, once per occurrence. No mentions or no
// pending tasks means no DMs.
func (c *Controller) HandleTopicChange(ctx context.Context, channelID, topic string) {
	mentioned := mention.Extract(topic)
	if len(mentioned) == 0 {
		return
	}
	entries, err := c.store.ListAll(ctx)
	if err != nil {
		c.log.Warn("task_store_error", "op", "topic_broadcast", "channel_id", channelID, "error", err.Error())
		return
	}
	if len(entries) == 0 {
		return
	}
	list, err := c.formatList(ctx, entries)
	if err != nil {
		c.log.Warn("topic_broadcast_link_error", "channel_id", channelID, "error", err.Error())
		return
	}
	c.log.Info("topic_broadcast", "channel_id", channelID, "recipients", len(mentioned), "tasks", len(entries))
	c.broadcaster.Broadcast(ctx, mentioned, topicBroadcastPreamble+"\n"+list)
}

// threadAnchor is the task key for this event: the thread root when the
// message is a thread reply, else the message's own timestamp.
func (ev Event) threadAnchor() string {
	if strings.TrimSpace(ev.ThreadTS) != "" {
		return strings.TrimSpace(ev.ThreadTS)
	}
	return strings.TrimSpace(ev.MessageTS)
}

func (c *Controller) markPending(ctx context.Context, ev Event) {
	anchor := ev.threadAnchor()
	preview, err := c.fetchRootText(ctx, ev.ChannelID, anchor)
	if err != nil {
		// Transport failure on the preview fetch; keep the command
		// working with the triggering message's own text.
		c.log.Warn("thread_root_fetch_error", "channel_id", ev.ChannelID, "thread_ts", anchor, "error", err.Error())
		preview = ev.Text
	}
	t := task.New(ev.ChannelID, preview, ev.Text)
	if err := c.store.Put(ctx, anchor, t); err != nil {
		c.log.Warn("task_store_error", "op", "put", "thread_ts", anchor, "error", err.Error())
		c.reply(ctx, ev, anchor, replyGenericFailure)
		return
	}
	c.log.Info("task_marked_pending", "channel_id", ev.ChannelID, "thread_ts", anchor, "user_id", ev.UserID)
	c.reply(ctx, ev, anchor, replyMarkedPending)
}

func (c *Controller) markCompleted(ctx context.Context, ev Event) {
	anchor := ev.threadAnchor()
	if err := c.store.Delete(ctx, anchor); err != nil {
		c.log.Warn("task_store_error", "op", "delete", "thread_ts", anchor, "error", err.Error())
		c.reply(ctx, ev, anchor, replyGenericFailure)
		return
	}
	// A delete for a thread that was never pending still confirms.
	c.log.Info("task_marked_completed", "channel_id", ev.ChannelID, "thread_ts", anchor, "user_id", ev.UserID)
	c.reply(ctx, ev, anchor, replyMarkedCompleted)
}

func (c *Controller) listPending(ctx context.Context, ev Event) {
	anchor := ev.threadAnchor()
	entries, err := c.store.ListAll(ctx)
	if err != nil {
		c.log.Warn("task_store_error", "op", "list", "error", err.Error())
		c.reply(ctx, ev, anchor, replyGenericFailure)
		return
	}
	if len(entries) == 0 {
		c.reply(ctx, ev, anchor, replyNoPendingTasks)
		return
	}
	list, err := c.formatList(ctx, entries)
	if err != nil {
		c.log.Warn("list_link_error", "error", err.Error())
		c.reply(ctx, ev, anchor, replyGenericFailure)
		return
	}
	c.reply(ctx, ev, anchor, list)
}

func (c *Controller) scheduleReminder(ctx context.Context, ev Event, delay time.Duration) {
	threadTS := strings.TrimSpace(ev.ThreadTS)
	if threadTS == "" {
		c.reply(ctx, ev, ev.threadAnchor(), replyNeedThread)
		return
	}
	c.reply(ctx, ev, threadTS, fmt.Sprintf("Okay, I will remind you about this thread in %s.", formatDelay(delay)))
	if _, err := c.reminders.Schedule(ev.UserID, threadTS, delay); err != nil {
		c.log.Warn("reminder_schedule_error", "thread_ts", threadTS, "user_id", ev.UserID, "error", err.Error())
	}
}

// formatList renders the 1-based numbered pending digest with one
// "<text> — <link>" line per task, in the store's enumeration order.
func (c *Controller) formatList(ctx context.Context, entries []task.Entry) (string, error) {
	domain, err := c.domain(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		link := task.ThreadLink(domain, entry.Task.ChannelID, entry.ThreadTS)
		fmt.Fprintf(&b, "%d. %s %s", i+1, entry.Task.Text, link)
	}
	return b.String(), nil
}

func (c *Controller) reply(ctx context.Context, ev Event, threadTS, text string) {
	if err := c.replier.Reply(ctx, ev.ChannelID, threadTS, text); err != nil {
		c.log.Warn("reply_error", "channel_id", ev.ChannelID, "thread_ts", threadTS, "error", err.Error())
	}
}

func formatDelay(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		return pluralize(n, "day")
	case d >= time.Hour && d%time.Hour == 0:
		n := int(d / time.Hour)
		return pluralize(n, "hour")
	default:
		n := int(d / time.Minute)
		return pluralize(n, "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
