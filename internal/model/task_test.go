package model

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusTodo, StatusInProgress, true},
		{StatusTodo, StatusArchived, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusTodo, true},
		{StatusArchived, StatusTodo, false},
		{StatusArchived, StatusInProgress, false},
		{StatusArchived, StatusCompleted, false},
		{StatusArchived, StatusArchived, true}, // idempotent no-op
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range AllStatuses {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "done", "TODO", "in_progress"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh} {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%q) = false", p)
		}
	}
	if ValidPriority("urgent") || ValidPriority("") {
		t.Error("unknown priority accepted")
	}
}
