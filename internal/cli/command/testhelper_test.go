package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/server/localserver"
)

// runApp runs the CLI with args and returns its output and error.
// Exit codes are captured instead of terminating the test binary.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"snapcoord-cli"}, args...))
	return out.String(), err
}

// exitCode returns the exit code carried by err, or -1.
func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}

// startSocket serves fn on a temporary Unix socket and returns its path.
func startSocket(t *testing.T, size int, fn func(ctx context.Context, frame []byte) ([]byte, error)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sock")
	srv := localserver.New(localserver.Config{Name: "test", Path: path},
		localserver.HandlerFunc(size, fn), nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return path
}

// mockStatusServer serves the HTTP status endpoints with canned envelopes.
type mockStatusServer struct {
	server   *httptest.Server
	handlers map[string]http.HandlerFunc

	mu      sync.Mutex
	lastURL string
}

func newMockStatusServer(t *testing.T) *mockStatusServer {
	t.Helper()

	m := &mockStatusServer{handlers: make(map[string]http.HandlerFunc)}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.lastURL = r.URL.String()
		m.mu.Unlock()
		if h, ok := m.handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		writeEnvelope(w, http.StatusNotFound, "SC-HTTP-4040", "not found", nil)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockStatusServer) on(path string, status int, code string, data any) {
	m.handlers[path] = func(w http.ResponseWriter, _ *http.Request) {
		msg := "ok"
		if status >= 400 {
			msg = "failed"
		}
		writeEnvelope(w, status, code, msg, data)
	}
}

func (m *mockStatusServer) requestURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURL
}

func (m *mockStatusServer) addr() string {
	return m.server.URL
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
		"data":       data,
	})
}

// recorder collects values seen by a fake server goroutine.
type recorder[T any] struct {
	mu    sync.Mutex
	items []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}
