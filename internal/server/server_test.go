package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/analyzer"
	"github.com/safeguard-ai/safeguard/internal/broker"
	"github.com/safeguard-ai/safeguard/internal/cache"
	"github.com/safeguard-ai/safeguard/internal/chat"
	"github.com/safeguard-ai/safeguard/internal/models"
	"github.com/safeguard-ai/safeguard/internal/scorer"
	"github.com/safeguard-ai/safeguard/internal/storage"
)

const testAddress = "0x1234567890abcdef1234567890abcdef12345678"

type fakeChain struct {
	code string
}

func (f *fakeChain) IsContract(context.Context, string, models.Network) (bool, error) {
	return f.code != "0x", nil
}

func (f *fakeChain) ContractCode(context.Context, string, models.Network) (string, error) {
	return f.code, nil
}

func (f *fakeChain) TokenInfo(context.Context, string, models.Network) (models.TokenInfo, error) {
	return models.TokenInfo{Name: "Test Token", Symbol: "TEST", Decimals: 18, TotalSupply: "1000000"}, nil
}

func (f *fakeChain) SourceCode(context.Context, string, models.Network) (string, bool) {
	return "contract T { function transfer() public {} }", true
}

type fakeInference struct {
	reply string
}

func (f *fakeInference) ListServices(context.Context) ([]broker.Service, error) {
	return []broker.Service{{
		ProviderAddress: "0xprovider",
		Model:           "deepseek-v3",
		ServiceType:     broker.ServiceTypeChatbot,
		Verifiability:   "TeeML",
	}}, nil
}

func (f *fakeInference) Chat(ctx context.Context, svc broker.Service, messages []models.ChatMessage, maxTokens int, temperature float32) (*broker.Completion, error) {
	return &broker.Completion{Content: f.reply}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	resultCache := cache.New(time.Minute)
	t.Cleanup(resultCache.Close)

	ch := &fakeChain{code: "0x6060"}
	a := analyzer.New(ch, scorer.NewHeuristic(), resultCache, storage.NewMemoryStore(), zap.NewNop())

	chatManager := chat.NewManager(ch, &fakeInference{reply: "looks safe"}, 0, zap.NewNop())
	t.Cleanup(chatManager.Close)

	srv := New(a, chatManager, resultCache, "test", zap.NewNop())
	t.Cleanup(srv.Close)
	return srv
}

// doJSON runs a request through the server and decodes the envelope.
func doJSON(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope), "body: %s", rec.Body.String())
	return rec.Code, envelope
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	code, env := doJSON(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env["success"])

	data := env["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "test", data["environment"])
	assert.Contains(t, data, "cache")
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	code, env := doJSON(t, srv, http.MethodPost, "/api/analyze",
		`{"address":"`+testAddress+`","network":"ethereum"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env["success"])
	assert.Equal(t, false, env["cached"])
	require.NotEmpty(t, env["timestamp"])

	data := env["data"].(map[string]any)
	assert.Equal(t, testAddress, data["contractAddress"])
	assert.Contains(t, data, "riskLevel")
	assert.Contains(t, data, "factors")

	// Second call is served from cache.
	code, env = doJSON(t, srv, http.MethodPost, "/api/analyze",
		`{"address":"`+testAddress+`","network":"ethereum"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env["cached"])
}

func TestAnalyzeValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name, body string
	}{
		{"bad json", `{`},
		{"missing address", `{"network":"ethereum"}`},
		{"bad address", `{"address":"xyz","network":"ethereum"}`},
		{"bad network", `{"address":"` + testAddress + `","network":"solana"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := doJSON(t, srv, http.MethodPost, "/api/analyze", tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, env["success"])
			require.Contains(t, env, "error")
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/analyze",
		`{"address":"`+testAddress+`","network":"ethereum"}`)

	code, env := doJSON(t, srv, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), env["total"])
	items := env["data"].([]any)
	require.Len(t, items, 1)

	code, _ = doJSON(t, srv, http.MethodGet, "/api/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = doJSON(t, srv, http.MethodGet, "/api/history?limit=101", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = doJSON(t, srv, http.MethodGet, "/api/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAnalysisByID(t *testing.T) {
	srv := newTestServer(t)

	_, env := doJSON(t, srv, http.MethodPost, "/api/analyze",
		`{"address":"`+testAddress+`","network":"ethereum"}`)
	id := env["data"].(map[string]any)["id"].(string)

	code, env := doJSON(t, srv, http.MethodGet, "/api/analysis/"+id, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, env["data"].(map[string]any)["id"])

	code, env = doJSON(t, srv, http.MethodGet, "/api/analysis/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, code)
	errBody := env["error"].(map[string]any)
	assert.Equal(t, models.CodeNotFound, errBody["code"])
}

func TestAnalysisByAddress(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/analyze",
		`{"address":"`+testAddress+`","network":"ethereum"}`)

	code, env := doJSON(t, srv, http.MethodGet, "/api/analysis/address/"+testAddress+"?network=ethereum", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, testAddress, env["data"].(map[string]any)["contractAddress"])

	code, _ = doJSON(t, srv, http.MethodGet, "/api/analysis/address/"+testAddress, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, srv, http.MethodGet, "/api/analysis/address/"+testAddress+"?network=bsc", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	code, env := doJSON(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, code)
	data := env["data"].(map[string]any)
	assert.Equal(t, float64(15234), data["totalAnalyses"])
	assert.Equal(t, float64(892), data["scamsDetected"])
	assert.Contains(t, data, "cache")
}

func TestChatFlow(t *testing.T) {
	srv := newTestServer(t)

	code, env := doJSON(t, srv, http.MethodPost, "/api/chat/session", `{}`)
	require.Equal(t, http.StatusCreated, code)
	sessionID := env["data"].(map[string]any)["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	code, env = doJSON(t, srv, http.MethodPost, "/api/chat/message",
		`{"sessionId":"`+sessionID+`","message":"is this token a rug pull?"}`)
	require.Equal(t, http.StatusOK, code)
	data := env["data"].(map[string]any)
	assert.Equal(t, "looks safe", data["reply"])
	assert.Equal(t, float64(3), data["messageCount"])

	code, env = doJSON(t, srv, http.MethodGet, "/api/chat/history/"+sessionID, "")
	require.Equal(t, http.StatusOK, code)
	messages := env["data"].(map[string]any)["messages"].([]any)
	assert.Len(t, messages, 2)

	code, env = doJSON(t, srv, http.MethodGet, "/api/chat/sessions", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), env["data"].(map[string]any)["count"])

	code, _ = doJSON(t, srv, http.MethodDelete, "/api/chat/session/"+sessionID, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, srv, http.MethodDelete, "/api/chat/session/"+sessionID, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestChatValidation(t *testing.T) {
	srv := newTestServer(t)

	code, _ := doJSON(t, srv, http.MethodPost, "/api/chat/session", `{"network":"solana"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, srv, http.MethodPost, "/api/chat/session", `{"contractAddress":"xyz"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, srv, http.MethodPost, "/api/chat/message", `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, srv, http.MethodPost, "/api/chat/message", `{"sessionId":"x","message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	long := strings.Repeat("a", 2001)
	code, _ = doJSON(t, srv, http.MethodPost, "/api/chat/message", `{"sessionId":"x","message":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, srv, http.MethodPost, "/api/chat/message", `{"sessionId":"missing","message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	code, env := doJSON(t, srv, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, env["success"])
}

func TestAnalyzeRateLimit(t *testing.T) {
	srv := newTestServer(t)

	body := `{"address":"` + testAddress + `","network":"ethereum"}`
	var last int
	for i := 0; i <= analyzeRate; i++ {
		last, _ = doJSON(t, srv, http.MethodPost, "/api/analyze", body)
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
