package plan

import (
	"testing"

	"github.com/google/uuid"
)

func TestCheckTransition(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"pending to approved", StatusPending, StatusApproved, false},
		{"pending to expired", StatusPending, StatusExpired, false},
		{"pending to cancelled", StatusPending, StatusCancelled, false},
		{"approved to executing", StatusApproved, StatusExecuting, false},
		{"executing to completed", StatusExecuting, StatusCompleted, false},
		{"executing to rolled_back", StatusExecuting, StatusRolledBack, false},
		{"executing to failed", StatusExecuting, StatusFailed, false},
		{"pending to executing skips approval", StatusPending, StatusExecuting, true},
		{"completed is terminal", StatusCompleted, StatusApproved, true},
		{"rolled_back is terminal", StatusRolledBack, StatusExecuting, true},
		{"cancelled is terminal", StatusCancelled, StatusApproved, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckTransition(id, tc.from, tc.to)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %s -> %s, got nil", tc.from, tc.to)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error for %s -> %s: %v", tc.from, tc.to, err)
			}
		})
	}
}

func TestTerminalStatusFromOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		outcomes map[string]DeviceOutcome
		want     Status
	}{
		{
			name: "all completed",
			outcomes: map[string]DeviceOutcome{
				"a": {Status: "completed"},
				"b": {Status: "completed"},
			},
			want: StatusCompleted,
		},
		{
			name: "one rolled back wins over failed",
			outcomes: map[string]DeviceOutcome{
				"a": {Status: "rolled_back"},
				"b": {Status: "failed"},
			},
			want: StatusRolledBack,
		},
		{
			name: "one failed, none rolled back",
			outcomes: map[string]DeviceOutcome{
				"a": {Status: "completed"},
				"b": {Status: "failed"},
			},
			want: StatusFailed,
		},
		{
			name:     "empty outcomes still in flight",
			outcomes: map[string]DeviceOutcome{},
			want:     StatusExecuting,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TerminalStatusFromOutcomes(tc.outcomes)
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminalStatuses := []Status{StatusCompleted, StatusFailed, StatusRolledBack, StatusExpired, StatusCancelled}
	for _, s := range terminalStatuses {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []Status{StatusPending, StatusApproved, StatusExecuting}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
