package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/internal/testutil"
)

type recordingAsker struct {
	mu       sync.Mutex
	requests []ai.Request
	answer   string
	err      error
}

func (a *recordingAsker) Ask(_ context.Context, req ai.Request) (ai.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return ai.Response{}, a.err
	}
	return ai.Response{Response: a.answer}, nil
}

func TestHandleAskAnswers(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 901, "physics", "maths")
	fake := &recordingAsker{answer: "Use v = u + at."}
	asker = fake

	HandleAsk(context.Background(), b, testutil.NewTestUpdate("/ask how do I find final velocity?", 901))

	if got := client.LastMessageText(t); got != "Use v = u + at." {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(client.Calls("sendChatAction")) != 1 {
		t.Fatalf("expected a typing indicator")
	}
	if len(fake.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req.Prompt != "how do I find final velocity?" || req.Context != "Student level: higher. Subjects: physics, maths." {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestHandleAskWaitsForQuestion(t *testing.T) {
	client, b := setupHandlerTest(t)
	registerProfile(t, 902)
	fake := &recordingAsker{answer: "Photosynthesis makes glucose."}
	asker = fake

	HandleAsk(context.Background(), b, testutil.NewTestUpdate("/ask", 902))
	if got := client.LastMessageText(t); !strings.Contains(got, "What is your question") {
		t.Fatalf("unexpected prompt %q", got)
	}

	DefaultHandler(context.Background(), b, testutil.NewTestUpdate("What does photosynthesis make?", 902))
	if got := client.LastMessageText(t); got != "Photosynthesis makes glucose." {
		t.Fatalf("unexpected answer %q", got)
	}
	if len(fake.requests) != 1 || fake.requests[0].Prompt != "What does photosynthesis make?" {
		t.Fatalf("unexpected requests %+v", fake.requests)
	}
}

func TestHandleAskErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "disabled", err: ai.ErrDisabled, want: "not available"},
		{name: "invalid", err: ai.ErrInvalidRequest, want: "4000 characters"},
		{name: "upstream", err: errors.New("boom"), want: "could not answer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, b := setupHandlerTest(t)
			registerProfile(t, 903)
			asker = &recordingAsker{err: tc.err}

			HandleAsk(context.Background(), b, testutil.NewTestUpdate("/ask anything", 903))

			if got := client.LastMessageText(t); !strings.Contains(got, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, got)
			}
		})
	}
}
