package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
)

type sentMessage struct {
	ChannelID string
	Text      string
	ThreadTS  string
}

type fakeTransport struct {
	mu       sync.Mutex
	sent     []sentMessage
	openErr  map[string]error
	postErr  map[string]error
	dmSuffix string
}

func (f *fakeTransport) open(ctx context.Context, userID string) (string, error) {
	if err := f.openErr[userID]; err != nil {
		return "", err
	}
	return "D" + userID + f.dmSuffix, nil
}

func (f *fakeTransport) post(ctx context.Context, channelID, text, threadTS string) error {
	if err := f.postErr[channelID]; err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Text: text, ThreadTS: threadTS})
	f.mu.Unlock()
	return nil
}

func newTestDispatcher(t *testing.T, f *fakeTransport) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherOptions{
		OpenConversation: f.open,
		PostMessage:      f.post,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func TestSendDirect(t *testing.T) {
	t.Parallel()

	f := &fakeTransport{}
	d := newTestDispatcher(t, f)

	if err := d.SendDirect(context.Background(), "U1", "hello"); err != nil {
		t.Fatalf("SendDirect() error = %v", err)
	}
	if len(f.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(f.sent))
	}
	if f.sent[0].ChannelID != "DU1" {
		t.Fatalf("channel = %q, want %q", f.sent[0].ChannelID, "DU1")
	}
	if f.sent[0].ThreadTS != "" {
		t.Fatalf("thread_ts = %q, want empty", f.sent[0].ThreadTS)
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	t.Parallel()

	f := &fakeTransport{openErr: map[string]error{"U2": fmt.Errorf("user_not_found")}}
	d := newTestDispatcher(t, f)

	d.Broadcast(context.Background(), []string{"U1", "U2", "U3", "U1"}, "digest")

	if len(f.sent) != 3 {
		t.Fatalf("sent = %d messages, want 3", len(f.sent))
	}
	want := []string{"DU1", "DU3", "DU1"}
	for i, w := range want {
		if f.sent[i].ChannelID != w {
			t.Fatalf("sent[%d].ChannelID = %q, want %q", i, f.sent[i].ChannelID, w)
		}
	}
}

func TestReplyThreads(t *testing.T) {
	t.Parallel()

	f := &fakeTransport{}
	d := newTestDispatcher(t, f)

	if err := d.Reply(context.Background(), "C1", "1.1", "done"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if f.sent[0].ThreadTS != "1.1" {
		t.Fatalf("thread_ts = %q, want %q", f.sent[0].ThreadTS, "1.1")
	}
}
