// Package reminder arms one-shot, in-process reminder timers for
// pending threads.
//
// Reminders are deliberately not persisted: a process restart abandons
// every armed timer. There is no cancellation either; a reminder whose
// task was completed before it fires simply does nothing.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quailyquaily/threadkeeper/internal/task"
)

type Options struct {
	Store task.Store
	// Domain resolves the workspace domain for thread links.
	Domain func(ctx context.Context) (string, error)
	// SendDirect delivers the reminder DM.
	SendDirect func(ctx context.Context, userID, text string) error
	Logger     *slog.Logger
	// BaseContext bounds every armed timer; canceling it abandons them.
	// Defaults to context.Background().
	BaseContext context.Context
	// FireTimeout bounds the store lookup and DM send when a timer
	// fires. Defaults to 30s.
	FireTimeout time.Duration
}

type Scheduler struct {
	store       task.Store
	domain      func(ctx context.Context) (string, error)
	sendDirect  func(ctx context.Context, userID, text string) error
	log         *slog.Logger
	baseCtx     context.Context
	fireTimeout time.Duration

	wg sync.WaitGroup
}

func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("nil store")
	}
	if opts.Domain == nil {
		return nil, fmt.Errorf("nil domain resolver")
	}
	if opts.SendDirect == nil {
		return nil, fmt.Errorf("nil send func")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	fireTimeout := opts.FireTimeout
	if fireTimeout <= 0 {
		fireTimeout = 30 * time.Second
	}
	return &Scheduler{
		store:       opts.Store,
		domain:      opts.Domain,
		sendDirect:  opts.SendDirect,
		log:         log,
		baseCtx:     baseCtx,
		fireTimeout: fireTimeout,
	}, nil
}

// Schedule arms a one-shot timer that, after delay, re-checks the store
// for threadTS and DMs userID if the task is still pending. Returns the
// reminder id, or an error when the arguments are invalid.
func (s *Scheduler) Schedule(userID, threadTS string, delay time.Duration) (string, error) {
	userID = strings.TrimSpace(userID)
	threadTS = strings.TrimSpace(threadTS)
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if threadTS == "" {
		return "", fmt.Errorf("thread_ts is required")
	}
	if delay < 0 {
		return "", fmt.Errorf("negative delay")
	}

	id := "rem_" + uuid.NewString()
	s.log.Info("reminder_armed", "reminder_id", id, "user_id", userID, "thread_ts", threadTS, "delay_ms", delay.Milliseconds())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-s.baseCtx.Done():
			return
		case <-timer.C:
		}
		s.fire(id, userID, threadTS)
	}()
	return id, nil
}

func (s *Scheduler) fire(id, userID, threadTS string) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.fireTimeout)
	defer cancel()

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		s.log.Warn("reminder_store_error", "reminder_id", id, "thread_ts", threadTS, "error", err.Error())
		return
	}
	var found *task.Task
	for i := range entries {
		if entries[i].ThreadTS == threadTS {
			found = &entries[i].Task
			break
		}
	}
	if found == nil {
		// Already completed; nothing to remind about.
		s.log.Info("reminder_skipped", "reminder_id", id, "thread_ts", threadTS, "reason", "task_absent")
		return
	}

	domain, err := s.domain(ctx)
	if err != nil {
		s.log.Warn("reminder_domain_error", "reminder_id", id, "error", err.Error())
		return
	}
	link := task.ThreadLink(domain, found.ChannelID, threadTS)
	text := fmt.Sprintf("Reminder: this thread is still pending.\n> %s\n%s", found.Text, link)
	if err := s.sendDirect(ctx, userID, text); err != nil {
		s.log.Warn("reminder_send_error", "reminder_id", id, "user_id", userID, "error", err.Error())
		return
	}
	s.log.Info("reminder_fired", "reminder_id", id, "user_id", userID, "thread_ts", threadTS)
}

// Wait blocks until every armed timer has fired or been abandoned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
