package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/editorkit/internal/cache"
	"github.com/yourusername/editorkit/internal/config"
)

const testKeyEnv = "EDITORKIT_TEST_API_KEY"

func testModelConfig(baseURL string) config.ModelConfig {
	return config.ModelConfig{
		Name:          "test-model",
		ID:            "test-model-v1",
		Provider:      "test",
		APIKeyEnv:     testKeyEnv,
		BaseURL:       baseURL + "/v1",
		Currency:      "$",
		Temperature:   0.7,
		MaxTokens:     256,
		ContextWindow: 8192,
		PriceInput:    1.0,
		PriceOutput:   2.0,
	}
}

// instantTimer satisfies backoff.Timer, firing immediately and recording the
// delay each retry asked for.
type instantTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	t.ch = ch
}

func (t *instantTimer) C() <-chan time.Time { return t.ch }
func (t *instantTimer) Stop()               {}

type recordObserver struct {
	mu     sync.Mutex
	chunks []string
	notes  []string
}

func (o *recordObserver) Progress(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, msg)
}

func (o *recordObserver) StreamChunk(chunk string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunks = append(o.chunks, chunk)
}

func completionBody(content string, promptTokens, completionTokens int) string {
	return fmt.Sprintf(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"test-model-v1",`+
		`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],`+
		`"usage":{"prompt_tokens":%d,"completion_tokens":%d,"total_tokens":%d}}`,
		content, promptTokens, completionTokens, promptTokens+completionTokens)
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("Test response", 12, 34))
	}))
	defer srv.Close()

	timer := &instantTimer{}
	cl, err := NewClient(testModelConfig(srv.URL),
		WithRateLimiter(nil), WithRetryTimer(timer))
	require.NoError(t, err)

	text, usage, err := cl.Generate(context.Background(), "hello", "brief")
	require.NoError(t, err)
	assert.Equal(t, "Test response", text)
	assert.Equal(t, 3, calls)

	// First retry waits 1s, second 2s.
	require.Len(t, timer.delays, 2)
	assert.Equal(t, 1*time.Second, timer.delays[0])
	assert.Equal(t, 2*time.Second, timer.delays[1])

	assert.Equal(t, 12, usage.InputTokens)
	assert.Equal(t, 34, usage.OutputTokens)
	assert.InDelta(t, 12.0/1e6*1.0, usage.CostInput, 1e-12)
	assert.InDelta(t, 34.0/1e6*2.0, usage.CostOutput, 1e-12)
	assert.InDelta(t, usage.CostInput+usage.CostOutput, usage.TotalCost, 1e-12)
}

func TestGenerate_RetryBudgetExhausted(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	timer := &instantTimer{}
	cl, err := NewClient(testModelConfig(srv.URL),
		WithRateLimiter(nil), WithRetryTimer(timer))
	require.NoError(t, err)

	_, _, err = cl.Generate(context.Background(), "hello", "brief")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.Attempts)
	assert.Equal(t, 3, calls)
	assert.Empty(t, cl.Ledger().Entries())
}

func TestGenerate_Streaming(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	var gotReq struct {
		Stream        bool `json:"stream"`
		StreamOptions *struct {
			IncludeUsage bool `json:"include_usage"`
		} `json:"stream_options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hello"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":" world"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	obs := &recordObserver{}
	cl, err := NewClient(testModelConfig(srv.URL),
		WithRateLimiter(nil), WithStreaming(true), WithObserver(obs))
	require.NoError(t, err)

	text, usage, err := cl.Generate(context.Background(), "hi", "brief")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
	assert.Equal(t, []string{"Hello", " world"}, obs.chunks)
	assert.Equal(t, 5, usage.InputTokens)
	assert.Equal(t, 2, usage.OutputTokens)

	assert.True(t, gotReq.Stream)
	require.NotNil(t, gotReq.StreamOptions)
	assert.True(t, gotReq.StreamOptions.IncludeUsage)
}

func TestGenerate_StreamingUsageFallback(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"response text"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	cl, err := NewClient(testModelConfig(srv.URL),
		WithRateLimiter(nil), WithStreaming(true))
	require.NoError(t, err)

	_, usage, err := cl.Generate(context.Background(), "four char text", "brief")
	require.NoError(t, err)

	// No usage chunk arrived, so counts come from the estimator.
	assert.Equal(t, 4, usage.InputTokens)  // 14 latin chars / 3.5
	assert.Equal(t, 3, usage.OutputTokens) // 13 latin chars / 3.5
}

func TestGenerate_CacheShortCircuits(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("cached answer", 10, 20))
	}))
	defer srv.Close()

	cl, err := NewClient(testModelConfig(srv.URL),
		WithRateLimiter(nil), WithCache(cache.NewLRU(10, 0)))
	require.NoError(t, err)

	first, firstUsage, err := cl.Generate(context.Background(), "same prompt", "brief")
	require.NoError(t, err)
	second, secondUsage, err := cl.Generate(context.Background(), "same prompt", "brief")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 10, firstUsage.InputTokens)
	assert.Zero(t, secondUsage.InputTokens)
	assert.Zero(t, secondUsage.TotalCost)

	// Only the real request reaches the ledger.
	assert.Len(t, cl.Ledger().Entries(), 1)

	stats := cl.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestGenerate_LedgerAccumulates(t *testing.T) {
	t.Setenv(testKeyEnv, "test-key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("ok", 100, 200))
	}))
	defer srv.Close()

	cl, err := NewClient(testModelConfig(srv.URL), WithRateLimiter(nil))
	require.NoError(t, err)

	_, _, err = cl.Generate(context.Background(), "one", "brief")
	require.NoError(t, err)
	_, _, err = cl.Generate(context.Background(), "two", "outline")
	require.NoError(t, err)

	entries := cl.Ledger().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "brief", entries[0].RequestName)
	assert.Equal(t, "outline", entries[1].RequestName)

	totals := cl.Ledger().Totals()
	assert.Equal(t, 2, totals.Requests)
	assert.Equal(t, 200, totals.InputTokens)
	assert.Equal(t, 400, totals.OutputTokens)
	assert.InDelta(t, 200.0/1e6*1.0+400.0/1e6*2.0, totals.TotalCost, 1e-12)
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")

	_, err := NewClient(testModelConfig("http://unused"))
	require.Error(t, err)

	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, testKeyEnv, ae.EnvVar)
}
