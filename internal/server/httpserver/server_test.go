package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

type staticSessions []domain.SessionView

func (s staticSessions) Sessions() []domain.SessionView { return s }

func TestServer_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(ln.Addr().String(), okHandler())

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve returned %v after Shutdown, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

func TestServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if err := New(ln.Addr().String(), okHandler()).ListenAndServe(); err == nil {
		t.Error("ListenAndServe on a bound address should fail")
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg.RateLimit <= 0 {
		t.Error("RateLimit should be positive")
	}
	if !cfg.EnableAudit {
		t.Error("audit should be enabled by default")
	}
}

func TestNewRouter(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("snapcoord_sessions_live 0\n"))
	})
	cfg := &RouterConfig{
		Sessions: staticSessions{{ID: "s1", Scope: "all", Phase: domain.PhasePending}},
		Ready:    func() error { return domain.ErrShuttingDown },
		Metrics:  metrics,
		Logger:   discardLogger(),
	}
	router := NewRouter(cfg)

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusServiceUnavailable},
		{"/v1/sessions", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/admin", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Errorf("GET %s missing X-Request-ID", tt.path)
			}
		})
	}

	t.Run("envelope carries request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", "abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		var body struct {
			RequestID string `json:"request_id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.RequestID != "abc" {
			t.Errorf("request_id = %q", body.RequestID)
		}
	})
}

func TestNewRouter_RateLimited(t *testing.T) {
	router := NewRouter(&RouterConfig{
		Sessions:  staticSessions{},
		Logger:    discardLogger(),
		RateLimit: 1,
		RateBurst: 1,
	})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.1.1.1:1"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

