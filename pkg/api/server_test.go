package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smith3v/tutor625/pkg/ai"
	"github.com/smith3v/tutor625/pkg/config"
	"github.com/smith3v/tutor625/pkg/db"
	"github.com/smith3v/tutor625/pkg/internal/testutil"
	"github.com/smith3v/tutor625/pkg/progress"
	"github.com/smith3v/tutor625/pkg/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAsker struct {
	resp ai.Response
	err  error
	got  ai.Request
}

func (s *stubAsker) Ask(_ context.Context, req ai.Request) (ai.Response, error) {
	s.got = req
	if s.err != nil {
		return ai.Response{}, s.err
	}
	if err := req.Validate(); err != nil {
		return ai.Response{}, err
	}
	return s.resp, nil
}

const testToken = "test-api-token"

func newTestServer(asker ai.Asker, rps float64, burst int) *Server {
	s := New(config.HTTPConfig{RateLimit: rps, Burst: burst, APIToken: testToken}, asker, 20)
	s.now = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doWithToken(t, s, method, path, body, testToken)
}

func doWithToken(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(nil, 0, 0), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	testutil.SetupTestDB(t)
	asker := &stubAsker{resp: ai.Response{Response: "ok"}}
	s := newTestServer(asker, 0, 0)

	for _, path := range []string{"/api/users/42/due", "/api/users/42/stats"} {
		rec := doWithToken(t, s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		rec = doWithToken(t, s, http.MethodGet, path, "", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := doWithToken(t, s, http.MethodPost, "/api/ask", `{"prompt":"q"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, asker.got.Prompt)

	// health checks stay open
	rec = doWithToken(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIClosedWithoutConfiguredToken(t *testing.T) {
	s := New(config.HTTPConfig{}, &stubAsker{resp: ai.Response{Response: "ok"}}, 20)

	rec := doWithToken(t, s, http.MethodPost, "/api/ask", `{"prompt":"q"}`, "anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAskContract(t *testing.T) {
	asker := &stubAsker{resp: ai.Response{Response: "Mitochondria produce ATP."}}
	s := newTestServer(asker, 0, 0)

	rec := do(t, s, http.MethodPost, "/api/ask", `{"prompt":"What do mitochondria do?","context":"Biology"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"Mitochondria produce ATP."}`, rec.Body.String())
	assert.Equal(t, "Biology", asker.got.Context)

	rec = do(t, s, http.MethodPost, "/api/ask", `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = do(t, s, http.MethodPost, "/api/ask", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskBackendErrors(t *testing.T) {
	rec := do(t, newTestServer(&stubAsker{err: errors.New("boom")}, 0, 0), http.MethodPost, "/api/ask", `{"prompt":"q"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)

	rec = do(t, newTestServer(ai.Disabled{}, 0, 0), http.MethodPost, "/api/ask", `{"prompt":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAskRateLimited(t *testing.T) {
	s := newTestServer(&stubAsker{resp: ai.Response{Response: "ok"}}, 0.001, 2)
	for i := 0; i < 2; i++ {
		rec := do(t, s, http.MethodPost, "/api/ask", `{"prompt":"q"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, s, http.MethodPost, "/api/ask", `{"prompt":"q"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other endpoints are not limited
	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	unlimited := NewRateLimiter(0, 1)
	for i := 0; i < 50; i++ {
		assert.True(t, unlimited.Allow("a"))
	}
}

func TestDueEndpoint(t *testing.T) {
	testutil.SetupTestDB(t)
	s := newTestServer(nil, 0, 0)
	now := s.now()

	_, err := srs.CreateCard(42, srs.CardInput{Subject: "Maths", Front: "2+2", Back: "4"}, now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = srs.CreateCard(42, srs.CardInput{Subject: "Irish", Front: "madra", Back: "dog"}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = srs.CreateCard(42, srs.CardInput{Subject: "Maths", Front: "later", Back: "x"}, now.Add(time.Hour))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/users/42/due", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all dueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Equal(t, 2, all.Count)
	assert.Equal(t, "madra", all.Cards[0].Front)

	rec = do(t, s, http.MethodGet, "/api/users/42/due?subject=Maths", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var maths dueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &maths))
	require.Equal(t, 1, maths.Count)
	assert.Equal(t, "2+2", maths.Cards[0].Front)
	assert.Equal(t, 2.5, maths.Cards[0].EaseFactor)

	rec = do(t, s, http.MethodGet, "/api/users/abc/due", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	testutil.SetupTestDB(t)
	s := newTestServer(nil, 0, 0)

	rec := do(t, s, http.MethodGet, "/api/users/77/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, _, err := progress.EnsureProfile(77, "Niamh")
	require.NoError(t, err)
	require.NoError(t, db.DB.Create(&db.SubjectStudyTime{UserID: 77, Subject: "Maths", Minutes: 40}).Error)

	rec = do(t, s, http.MethodGet, "/api/users/77/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats progress.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "Niamh", stats.DisplayName)
	require.Len(t, stats.PerSubject, 1)
	assert.Equal(t, 40, stats.PerSubject[0].Minutes)
}
