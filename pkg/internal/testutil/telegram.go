package testutil

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type RecordedRequest struct {
	Path        string
	Method      string
	ContentType string
	Body        []byte
}

// MockClient records Bot API calls and answers each with Response.
type MockClient struct {
	mu       sync.Mutex
	requests []RecordedRequest
	Response string
	// Responses overrides Response per API method, keyed by the last path
	// segment (for example "getFile").
	Responses map[string]string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Response:  `{"ok":true,"result":{}}`,
		Responses: make(map[string]string),
	}
}

func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Path:        req.URL.Path,
		Method:      req.Method,
		ContentType: req.Header.Get("Content-Type"),
		Body:        body,
	})
	response := m.Response
	if override, ok := m.Responses[apiMethod(req.URL.Path)]; ok {
		response = override
	}
	m.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(response)),
		Header:     make(http.Header),
	}, nil
}

func apiMethod(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Requests returns a copy of everything recorded so far.
func (m *MockClient) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// Calls returns the recorded requests for one API method.
func (m *MockClient) Calls(method string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range m.Requests() {
		if apiMethod(req.Path) == method {
			out = append(out, req)
		}
	}
	return out
}

func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// LastMessageText returns the text field of the most recent request that
// carried one.
func (m *MockClient) LastMessageText(t *testing.T) string {
	t.Helper()
	requests := m.Requests()
	if len(requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	for i := len(requests) - 1; i >= 0; i-- {
		if text, ok := MultipartField(t, requests[i], "text"); ok {
			return text
		}
	}
	t.Fatalf("text field not found in any request")
	return ""
}

// Texts returns the text field of every request that carried one, oldest
// first.
func (m *MockClient) Texts(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, req := range m.Requests() {
		if text, ok := MultipartField(t, req, "text"); ok {
			out = append(out, text)
		}
	}
	return out
}

// MultipartField reads one form field from a recorded multipart request.
func MultipartField(t *testing.T, req RecordedRequest, fieldName string) (string, bool) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.Body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return "", false
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), true
		}
	}
}

func NewTestTelegramBot(t *testing.T, client *MockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func NewTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID:        userID,
				FirstName: "Test",
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func NewTestDocumentUpdate(fileName, fileID, caption string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Caption: caption,
			Document: &models.Document{
				FileID:   fileID,
				FileName: fileName,
			},
		},
	}
}

func NewTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// ServeFile swaps http.DefaultTransport for one that answers every request
// with body, for the duration of the test.
func ServeFile(t *testing.T, body string) {
	t.Helper()
	original := http.DefaultTransport
	t.Cleanup(func() {
		http.DefaultTransport = original
	})
	http.DefaultTransport = RoundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})
}
