package command

import (
	"testing"
	"time"
)

func kinds(cmds []Command) []Kind {
	out := make([]Kind, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Kind)
	}
	return out
}

func TestParseTriggers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want []Kind
	}{
		{name: "none", text: "nothing to see here", want: nil},
		{name: "pending", text: "please handle this @pending", want: []Kind{KindMarkPending}},
		{name: "completed", text: "@completed thanks", want: []Kind{KindMarkCompleted}},
		{name: "list", text: "@list_pending", want: []Kind{KindListPending}},
		{name: "reminder", text: "remind me in 10 minutes", want: []Kind{KindScheduleReminder}},
		{
			name: "multiple independent triggers",
			text: "@pending @completed @list_pending",
			want: []Kind{KindMarkPending, KindMarkCompleted, KindListPending},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := kinds(Parse(tc.text))
			if len(got) != len(tc.want) {
				t.Fatalf("Parse(%q) kinds = %v, want %v", tc.text, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Parse(%q) kinds = %v, want %v", tc.text, got, tc.want)
				}
			}
		})
	}
}

func TestParseReminderDelay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want time.Duration
	}{
		{text: "remind me in 1 minute", want: time.Minute},
		{text: "remind me in 5 minutes", want: 5 * time.Minute},
		{text: "remind me in 2 hours", want: 2 * time.Hour},
		{text: "remind me in 1 day", want: 24 * time.Hour},
		{text: "Remind Me In 3 Days", want: 72 * time.Hour},
		{text: "remind me in 0 minutes", want: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			cmds := Parse(tc.text)
			if len(cmds) != 1 || cmds[0].Kind != KindScheduleReminder {
				t.Fatalf("Parse(%q) = %v, want one reminder command", tc.text, cmds)
			}
			if cmds[0].Delay != tc.want {
				t.Fatalf("delay = %v, want %v", cmds[0].Delay, tc.want)
			}
		})
	}

	// Exact millisecond conversions.
	if d := Parse("remind me in 2 hours")[0].Delay; d.Milliseconds() != 7_200_000 {
		t.Fatalf("2 hours = %d ms, want 7200000", d.Milliseconds())
	}
	if d := Parse("remind me in 1 day")[0].Delay; d.Milliseconds() != 86_400_000 {
		t.Fatalf("1 day = %d ms, want 86400000", d.Milliseconds())
	}
}

func TestParseReminderMalformedIgnored(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"remind me in a while",
		"remind me in 5 fortnights",
		"remind me in minutes",
		"remind me in 5",
		"remind me in 5 minutes or so",
		"please remind me in 5 minutes", // not at the start
	} {
		if cmds := Parse(text); len(cmds) != 0 {
			t.Fatalf("Parse(%q) = %v, want no commands", text, cmds)
		}
	}
}
