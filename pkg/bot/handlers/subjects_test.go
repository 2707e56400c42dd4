package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/smith3v/tutor625/pkg/bot/onboarding"
	"github.com/smith3v/tutor625/pkg/internal/testutil"
	"github.com/smith3v/tutor625/pkg/progress"
)

func loadSubjects(t *testing.T, userID int64) []string {
	t.Helper()
	profile, err := progress.LoadProfile(userID)
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	return progress.Subjects(profile)
}

func TestHandleSubjectsSetsList(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 301)

	HandleSubjects(context.Background(), b, testutil.NewTestUpdate("/subjects Maths, applied maths , maths", 301))

	got := loadSubjects(t, 301)
	if len(got) != 2 || got[0] != "Maths" || got[1] != "applied maths" {
		t.Fatalf("unexpected subjects %q", got)
	}
	if text := client.LastMessageText(t); !strings.Contains(text, "/session Maths") {
		t.Fatalf("unexpected reply %q", text)
	}
}

func TestHandleSubjectsWithoutArgsShowsPicker(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 302, "physics")

	HandleSubjects(context.Background(), b, testutil.NewTestUpdate("/subjects", 302))

	calls := client.Calls("sendMessage")
	if len(calls) != 1 {
		t.Fatalf("expected one message, got %d", len(calls))
	}
	markup, _ := testutil.MultipartField(t, calls[0], "reply_markup")
	if !strings.Contains(markup, "Physics ✅") {
		t.Fatalf("expected physics to be ticked, got %q", markup)
	}
}

func TestOnboardingCallbackTogglesSubject(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 303, "maths")

	HandleOnboardingCallback(context.Background(), b, testutil.NewTestCallbackUpdate(onboarding.BuildSubjectCallback("biology"), 303, 303, 10))
	if got := loadSubjects(t, 303); len(got) != 2 || got[1] != "biology" {
		t.Fatalf("expected biology to be added, got %q", got)
	}

	HandleOnboardingCallback(context.Background(), b, testutil.NewTestCallbackUpdate(onboarding.BuildSubjectCallback("maths"), 303, 303, 10))
	if got := loadSubjects(t, 303); len(got) != 1 || got[0] != "biology" {
		t.Fatalf("expected maths to be removed, got %q", got)
	}

	if len(client.Calls("editMessageText")) != 2 {
		t.Fatalf("expected the picker to be redrawn twice")
	}
	if len(client.Calls("answerCallbackQuery")) != 2 {
		t.Fatalf("expected both callbacks to be answered")
	}
}

func TestOnboardingCallbackLevelAndDone(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 304, "english")

	HandleOnboardingCallback(context.Background(), b, testutil.NewTestCallbackUpdate(onboarding.BuildLevelCallback(), 304, 304, 11))
	profile, err := progress.LoadProfile(304)
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	if profile.Level != "ordinary" {
		t.Fatalf("expected level to switch, got %q", profile.Level)
	}

	client.Reset()
	HandleOnboardingCallback(context.Background(), b, testutil.NewTestCallbackUpdate(onboarding.BuildDoneCallback(), 304, 304, 11))
	if got := lastText(t, client, "editMessageText"); !strings.Contains(got, "ordinary level") || !strings.Contains(got, "English") {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestOnboardingCallbackRejectsUnknownData(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 305)

	HandleOnboardingCallback(context.Background(), b, testutil.NewTestCallbackUpdate("o:t:astrology", 305, 305, 12))

	if got := lastCallbackAnswer(t, client); got != "Unknown command" {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(client.Calls("editMessageText")) != 0 {
		t.Fatalf("expected no edits")
	}
}
