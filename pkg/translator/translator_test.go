package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nguyenvanduocit/transcache/pkg/config"
)

type stubTranslator struct {
	calls atomic.Int32
	out   string
	err   error
}

func (s *stubTranslator) Translate(ctx context.Context, content, source, target string) (string, error) {
	s.calls.Add(1)
	return s.out, s.err
}

func TestCreateTranslationPrompt(t *testing.T) {
	got := createTranslationPrompt("Hello", "en", "fr")
	if want := "Translate this en text to fr: Hello"; got != want {
		t.Errorf("createTranslationPrompt() = %q, want %q", got, want)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Error("NewOpenAI() without a key should fail")
	}
}

func TestOpenAITranslate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Bonjour\n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}

	translation, err := o.Translate(context.Background(), "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if translation != "Bonjour" {
		t.Errorf("Translate() = %q, want Bonjour", translation)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", got.Model)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != systemPrompt {
		t.Errorf("system message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "user" || got.Messages[1].Content != "Translate this en text to fr: Hello" {
		t.Errorf("user message = %+v", got.Messages[1])
	}
}

func TestOpenAITranslateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`,
			wantErr: ErrRateLimitExceeded,
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`,
			wantErr: ErrEmptyTranslation,
		},
		{
			name:    "blank content",
			status:  http.StatusOK,
			body:    `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"   "}}]}`,
			wantErr: ErrEmptyTranslation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			o, err := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewOpenAI() error = %v", err)
			}

			_, err = o.Translate(context.Background(), "Hello", "en", "fr")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Translate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubTranslator{err: errors.New("upstream down")}
	b := NewBreaker("test", stub, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := b.Translate(ctx, "Hello", "en", "fr"); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d error = %v, want upstream error", i+1, err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", b.State())
	}

	_, err := b.Translate(ctx, "Hello", "en", "fr")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Translate() on open breaker error = %v, want ErrCircuitOpen", err)
	}
	if calls := stub.calls.Load(); calls != 2 {
		t.Errorf("upstream called %d times, want 2", calls)
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	stub := &stubTranslator{out: "Bonjour"}
	b := NewBreaker("test", stub, 1, time.Minute)

	got, err := b.Translate(context.Background(), "Hello", "en", "fr")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "Bonjour" {
		t.Errorf("Translate() = %q, want Bonjour", got)
	}
}

func TestBreakerIgnoresCanceledCalls(t *testing.T) {
	stub := &stubTranslator{err: context.Canceled}
	b := NewBreaker("test", stub, 1, time.Minute)

	for i := 0; i < 3; i++ {
		b.Translate(context.Background(), "Hello", "en", "fr")
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", b.State())
	}
}

func TestThrottleHonoursContext(t *testing.T) {
	stub := &stubTranslator{out: "Bonjour"}
	th := NewThrottle(stub, 1)

	if _, err := th.Translate(context.Background(), "Hello", "en", "fr"); err != nil {
		t.Fatalf("first Translate() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := th.Translate(ctx, "Hello", "en", "fr"); err == nil {
		t.Error("second Translate() within the same minute should wait past the deadline")
	}
	if calls := stub.calls.Load(); calls != 1 {
		t.Errorf("upstream called %d times, want 1", calls)
	}
}

func TestThrottledCallsDoNotTripBreaker(t *testing.T) {
	stub := &stubTranslator{out: "Bonjour"}
	chain := decorate(stub,
		config.Provider{Name: "test", RatePerMinute: 1},
		config.Breaker{Failures: 2, OpenTimeout: time.Minute},
	)

	if _, err := chain.Translate(context.Background(), "Hello", "en", "fr"); err != nil {
		t.Fatalf("first Translate() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := chain.Translate(ctx, "Hello", "en", "fr")
		cancel()
		if err == nil {
			t.Fatalf("call %d should be refused by the throttle", i+2)
		}
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d error = %v, breaker opened without provider failures", i+2, err)
		}
	}

	throttle, ok := chain.(*Throttle)
	if !ok {
		t.Fatalf("outermost decorator = %T, want *Throttle", chain)
	}
	breaker, ok := throttle.next.(*Breaker)
	if !ok {
		t.Fatalf("throttle wraps %T, want *Breaker", throttle.next)
	}
	if breaker.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", breaker.State())
	}
	if calls := stub.calls.Load(); calls != 1 {
		t.Errorf("upstream called %d times, want 1", calls)
	}
}

func TestDecorateWithoutRate(t *testing.T) {
	chain := decorate(&stubTranslator{out: "Bonjour"},
		config.Provider{Name: "test"},
		config.Breaker{Failures: 1, OpenTimeout: time.Minute},
	)
	if _, ok := chain.(*Breaker); !ok {
		t.Errorf("decorate() = %T, want *Breaker when no rate is set", chain)
	}
}
