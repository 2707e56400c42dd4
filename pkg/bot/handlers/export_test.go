package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tutor625/pkg/internal/testutil"
)

func TestHandleExportNoCards(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 1001)

	HandleExport(context.Background(), b, testutil.NewTestUpdate("/export", 1001))

	if got := client.LastMessageText(t); got != "You have no flashcards to export." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestHandleExportSendsDocument(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 1002)
	seedDueCard(t, 1002, "Maths", "2+2", testNow.Add(time.Hour))
	seedDueCard(t, 1002, "Biology", "cell", testNow.Add(time.Hour))

	HandleExport(context.Background(), b, testutil.NewTestUpdate("/export", 1002))

	calls := client.Calls("sendDocument")
	if len(calls) != 1 {
		t.Fatalf("expected one document, got %d", len(calls))
	}
	caption, _ := testutil.MultipartField(t, calls[0], "caption")
	if caption != "Your flashcards (2 cards)." {
		t.Fatalf("unexpected caption %q", caption)
	}
	body := string(calls[0].Body)
	if !strings.Contains(body, "flashcards-20250310.csv") {
		t.Fatalf("expected dated filename in upload")
	}
	biology, maths := strings.Index(body, "Biology,cell"), strings.Index(body, "Maths,2+2")
	if biology < 0 || maths < 0 || biology > maths {
		t.Fatalf("expected subjects in alphabetical order")
	}
}

func TestHandleExportPrivateOnly(t *testing.T) {
	client, b := setupHandlerTest(t)
	update := testutil.NewTestUpdate("/export", 1003)
	update.Message.Chat.Type = "group"

	HandleExport(context.Background(), b, update)

	if got := client.LastMessageText(t); !strings.Contains(got, "private chat") {
		t.Fatalf("unexpected reply %q", got)
	}
}
