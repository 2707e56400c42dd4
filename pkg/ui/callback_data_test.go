package ui

import (
	"strings"
	"testing"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{
			name:  "home",
			input: "s:home",
			want:  Action{Screen: ScreenHome, Op: OpNone, Value: 0},
		},
		{
			name:  "reminder",
			input: "s:remind",
			want:  Action{Screen: ScreenReminder, Op: OpNone, Value: 0},
		},
		{
			name:  "close",
			input: "s:close",
			want:  Action{Screen: ScreenClose, Op: OpNone, Value: 0},
		},
		{
			name:  "timezone inc",
			input: "s:tz:+1",
			want:  Action{Screen: ScreenTimezone, Op: OpInc, Value: 1},
		},
		{
			name:  "reminder dec",
			input: "s:remind:-1",
			want:  Action{Screen: ScreenReminder, Op: OpDec, Value: -1},
		},
		{
			name:  "level toggle",
			input: "s:level:toggle",
			want:  Action{Screen: ScreenLevel, Op: OpToggle},
		},
		{
			name:  "timezone set negative",
			input: "s:tz:set:-5",
			want:  Action{Screen: ScreenTimezone, Op: OpSet, Value: -5},
		},
		{
			name:  "reminder off",
			input: "s:remind:set:-1",
			want:  Action{Screen: ScreenReminder, Op: OpSet, Value: -1},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing prefix",
			input:   "home",
			wantErr: true,
		},
		{
			name:    "empty action",
			input:   "s:",
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   "s:noop",
			wantErr: true,
		},
		{
			name:    "home with op",
			input:   "s:home:+1",
			wantErr: true,
		},
		{
			name:    "level with inc",
			input:   "s:level:+1",
			wantErr: true,
		},
		{
			name:    "set missing value",
			input:   "s:tz:set",
			wantErr: true,
		},
		{
			name:    "set non-numeric",
			input:   "s:tz:set:abc",
			wantErr: true,
		},
		{
			name:    "set lone minus",
			input:   "s:remind:set:-",
			wantErr: true,
		},
		{
			name:    "invalid op",
			input:   "s:tz:+2",
			wantErr: true,
		},
		{
			name:    "extra parts",
			input:   "s:tz:set:1:extra",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   "s:" + strings.Repeat("a", MaxCallbackDataLen),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackData(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected action: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuilderCallbacks(t *testing.T) {
	tests := []struct {
		name  string
		build func() (string, error)
		want  Action
	}{
		{"home", BuildHomeCallback, Action{Screen: ScreenHome}},
		{"timezone", BuildTimezoneCallback, Action{Screen: ScreenTimezone}},
		{"reminder", BuildReminderCallback, Action{Screen: ScreenReminder}},
		{"close", BuildCloseCallback, Action{Screen: ScreenClose}},
		{"level", BuildLevelToggleCallback, Action{Screen: ScreenLevel, Op: OpToggle}},
		{"timezone inc", BuildTimezoneIncCallback, Action{Screen: ScreenTimezone, Op: OpInc, Value: 1}},
		{"timezone dec", BuildTimezoneDecCallback, Action{Screen: ScreenTimezone, Op: OpDec, Value: -1}},
		{"reminder inc", BuildReminderIncCallback, Action{Screen: ScreenReminder, Op: OpInc, Value: 1}},
		{"reminder dec", BuildReminderDecCallback, Action{Screen: ScreenReminder, Op: OpDec, Value: -1}},
		{"timezone set", func() (string, error) { return BuildTimezoneSetCallback(-8) }, Action{Screen: ScreenTimezone, Op: OpSet, Value: -8}},
		{"reminder set", func() (string, error) { return BuildReminderSetCallback(18) }, Action{Screen: ScreenReminder, Op: OpSet, Value: 18}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(data) > MaxCallbackDataLen {
				t.Fatalf("callback data too long: %d", len(data))
			}
			got, err := ParseCallbackData(data)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("unexpected action: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSessionCallbacks(t *testing.T) {
	id := "5f0c2d6e-8a41-4b7e-9d3a-1c2b3a4d5e6f"
	for _, op := range []SessionOp{SessionNext, SessionToggle, SessionPause, SessionResume, SessionReset, SessionFinish, SessionCancel} {
		data, err := BuildSessionCallback(op, id)
		if err != nil {
			t.Fatalf("build %s failed: %v", op, err)
		}
		got, err := ParseSessionCallback(data)
		if err != nil {
			t.Fatalf("parse %q failed: %v", data, err)
		}
		if got.Op != op || got.Token != SessionToken(id) {
			t.Fatalf("unexpected action for %s: %+v", op, got)
		}
	}
	if SessionToken(id) != "5f0c2d6e" {
		t.Fatalf("unexpected token %q", SessionToken(id))
	}

	for _, bad := range []string{"", "g:", "g:next", "g:jump:abc", "s:home", "g:next:"} {
		if _, err := ParseSessionCallback(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := BuildSessionCallback(SessionOp("jump"), id); err == nil {
		t.Fatalf("expected error for unknown op")
	}
}

func TestReviewCallbacks(t *testing.T) {
	data, err := BuildRevealCallback(42)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	got, err := ParseReviewCallback(data)
	if err != nil || got != (ReviewAction{CardID: 42, Reveal: true}) {
		t.Fatalf("unexpected reveal action %+v, %v", got, err)
	}

	for rating := 0; rating <= 5; rating++ {
		data, err := BuildRateCallback(7, rating)
		if err != nil {
			t.Fatalf("build rating %d failed: %v", rating, err)
		}
		got, err := ParseReviewCallback(data)
		if err != nil || got != (ReviewAction{CardID: 7, Rating: rating}) {
			t.Fatalf("unexpected rate action %+v, %v", got, err)
		}
	}

	for _, bad := range []string{"r:", "r:0:3", "r:7:6", "r:7:-1", "r:x:3", "r:7:33", "r:7", "s:7:3"} {
		if _, err := ParseReviewCallback(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if _, err := BuildRateCallback(7, 6); err == nil {
		t.Fatalf("expected error for rating out of range")
	}
}
