package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ejeapi/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	})
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "GET ignored", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "POST json", method: http.MethodPost, body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "POST without body", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "POST form", method: http.MethodPost, body: "a=b", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "PATCH missing header", method: http.MethodPatch, body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/config", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestClientRateLimiter_Allow(t *testing.T) {
	rl := NewClientRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("worker:a") || !rl.Allow("worker:a") {
		t.Fatal("first two requests should be allowed")
	}
	if rl.Allow("worker:a") {
		t.Fatal("third request inside the window should be rejected")
	}
	if !rl.Allow("worker:b") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("worker:a") {
		t.Fatal("request after the window should be allowed")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewClientRateLimiter(1, time.Minute, nil, logger.Discard())
	defer rl.Stop()
	h := RateLimit(rl)(okHandler())

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/causas-eje-service/pending-verification", nil)
		req.Header.Set(WorkerIDHeader, "worker-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
}

func TestDefaultClientKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := DefaultClientKeyExtractor(req); got != "10.0.0.7" {
		t.Errorf("got %q, want remote host", got)
	}

	req.Header.Set(WorkerIDHeader, "w-9")
	if got := DefaultClientKeyExtractor(req); got != "worker:w-9" {
		t.Errorf("got %q, want worker key", got)
	}
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"created":true}}`))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/causas-eje", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status = %d", i, w.Code)
		}
		if w.Body.String() != `{"data":{"created":true}}` {
			t.Fatalf("attempt %d: unexpected body %q", i, w.Body.String())
		}
	}
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/causas-eje-service/associate-folder", nil)
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if calls.Load() != 2 {
		t.Errorf("same key on another path must not replay, calls = %d", calls.Load())
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/causas-eje", strings.NewReader(`{"cuij":"0123456789"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q does not match context id %q", w.Header().Get(RequestIDHeader), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "upstream-id" {
		t.Errorf("expected incoming request id to be kept, got %q", seen)
	}
}

func TestRequestTimeout(t *testing.T) {
	h := RequestTimeout(20*time.Millisecond, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
