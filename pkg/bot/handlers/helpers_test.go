package handlers

import (
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/bot/pending"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/internal/testutil"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/smith3v/tutor625/pkg/progress"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func setupHandlerTest(t *testing.T) (*testutil.MockClient, *bot.Bot) {
	t.Helper()
	testutil.SetupTestDB(t)
	logger.SetLogLevel(logger.ERROR)
	pending.ResetDefaultManager(func() time.Time { return testNow })

	originalNow := nowFunc
	originalAsker := asker
	originalSessions := sessions
	nowFunc = func() time.Time { return testNow }
	t.Cleanup(func() {
		nowFunc = originalNow
		asker = originalAsker
		sessions = originalSessions
	})
	asker = ai.Disabled{}

	client := testutil.NewMockClient()
	return client, testutil.NewTestTelegramBot(t, client)
}

func registerProfile(t *testing.T, userID int64, subjects ...string) db.UserProfile {
	t.Helper()
	profile, _, err := progress.EnsureProfile(userID, "Test")
	if err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if len(subjects) > 0 {
		if _, err := progress.SetSubjects(t.Context(), userID, subjects); err != nil {
			t.Fatalf("failed to set subjects: %v", err)
		}
	}
	return profile
}

// lastCallbackAnswer returns the text of the last answerCallbackQuery call.
func lastCallbackAnswer(t *testing.T, client *testutil.MockClient) string {
	t.Helper()
	calls := client.Calls("answerCallbackQuery")
	if len(calls) == 0 {
		t.Fatalf("expected the callback to be answered")
	}
	text, _ := testutil.MultipartField(t, calls[len(calls)-1], "text")
	return text
}

// lastText returns the text field of the last call to one API method.
func lastText(t *testing.T, client *testutil.MockClient, method string) string {
	t.Helper()
	calls := client.Calls(method)
	if len(calls) == 0 {
		t.Fatalf("expected a %s call", method)
	}
	text, ok := testutil.MultipartField(t, calls[len(calls)-1], "text")
	if !ok {
		t.Fatalf("%s call has no text", method)
	}
	return text
}
