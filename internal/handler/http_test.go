package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/career-sequence-game/internal/catalog"
	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/domain"
	"github.com/career-sequence-game/internal/game"
	"github.com/career-sequence-game/internal/ratelimit"
	"github.com/career-sequence-game/internal/store"
	"github.com/career-sequence-game/internal/websocket"
)

func newTestRouter(t *testing.T, guessLimit int) http.Handler {
	t.Helper()

	seqs := []domain.CareerSequence{
		{
			PlayerID:        "p1",
			PlayerName:      "Lionel Messi",
			MarketValueRank: 1,
			Difficulty:      domain.DifficultyShort,
			SharedBy:        1,
			Visits: []domain.ClubVisit{
				{Club: "Barcelona", Season: "2004"},
				{Club: "Paris Saint-Germain", Season: "2021"},
				{Club: "Inter Miami", Season: "2023"},
			},
		},
	}

	cfg := &config.GameConfig{
		MatchThreshold:  85,
		LookupThreshold: 70,
		DefaultPoolSize: 100,
		MaxPoolSize:     1000,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(guessLimit, time.Minute)
	engine := game.NewEngine(catalog.NewMemory(seqs), store.NewMemoryStore(), limiter, cfg, logger)

	hub := websocket.NewHub(logger)
	engine.SetHub(hub)

	return NewHandler(engine, hub, logger).Router()
}

func newTestServer(t *testing.T, guessLimit int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(newTestRouter(t, guessLimit))
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var out APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json",
		strings.NewReader(`{"difficulty":"short"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	require.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	return data["session_id"].(string)
}

func TestStartSessionEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json",
		strings.NewReader(`{"difficulty":"short","top_n":50}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode(t, resp)
	assert.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	assert.NotEmpty(t, data["session_id"])

	question := data["question"].(map[string]interface{})
	assert.Equal(t, "short", question["difficulty"])
	assert.EqualValues(t, 3, question["num_visits"])
}

func TestStartSessionRejectsBadDifficulty(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json",
		strings.NewReader(`{"difficulty":"impossible"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, decode(t, resp).Success)
}

func TestStartSessionEmptyPool(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Post(srv.URL+"/api/v1/sessions", "application/json",
		strings.NewReader(`{"difficulty":"long"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGuessEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)
	sessionID := startSession(t, srv)

	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/guess", "application/json",
		strings.NewReader(`{"guess":"messi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, true, data["correct"])
	assert.Equal(t, "Lionel Messi", data["matched_name"])

	// A second guess hits the answered session: conflict.
	resp, err = http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/guess", "application/json",
		strings.NewReader(`{"guess":"messi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestGuessUnknownSession(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Post(srv.URL+"/api/v1/sessions/unknown/guess", "application/json",
		strings.NewReader(`{"guess":"messi"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGuessRateLimitSetsRetryAfter(t *testing.T) {
	srv := newTestServer(t, 2)
	sessionID := startSession(t, srv)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/guess", "application/json",
			strings.NewReader(`{"guess":"wrong"}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/guess", "application/json",
		strings.NewReader(`{"guess":"wrong"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()
}

func TestGuessRateLimitKeyedByClientIP(t *testing.T) {
	router := newTestRouter(t, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
		strings.NewReader(`{"difficulty":"short"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	sessionID := body.Data.(map[string]interface{})["session_id"].(string)

	guess := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/guess",
			strings.NewReader(`{"guess":"wrong"}`))
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// Reconnecting with a fresh ephemeral port must not grant a fresh
	// guess budget; the limit is per client IP.
	assert.Equal(t, http.StatusOK, guess("203.0.113.7:40001").Code)
	for _, port := range []string{"40002", "40003", "40004"} {
		rec := guess("203.0.113.7:" + port)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	}

	// A different client IP keeps its own budget.
	assert.Equal(t, http.StatusOK, guess("198.51.100.9:40001").Code)
}

func TestNextEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)
	sessionID := startSession(t, srv)

	// Next before answering: conflict.
	resp, err := http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/next", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/guess", "application/json",
		strings.NewReader(`{"guess":"Lionel Messi"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/v1/sessions/"+sessionID+"/next", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	data := body.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["score"])
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)
	sessionID := startSession(t, srv)

	resp, err := http.Get(srv.URL + "/api/v1/sessions/" + sessionID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "active", data["status"])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/sessions/"+sessionID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/sessions/" + sessionID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestLookupEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Get(srv.URL + "/api/v1/players/lookup?name=messi")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "Lionel Messi", data["player_name"])

	resp, err = http.Get(srv.URL + "/api/v1/players/lookup?name=zzzzz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/players/lookup")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	data := body.Data.(map[string]interface{})
	assert.EqualValues(t, 1, data["total_questions"])

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
