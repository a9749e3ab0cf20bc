package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Handler serves fixed-size frames.
type Handler interface {
	// FrameSize returns the exact length of a request frame.
	FrameSize() int

	// ServeFrame handles one request frame and returns the reply frame.
	// A non-nil error closes the connection without a reply.
	ServeFrame(ctx context.Context, frame []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler for a given frame size.
func HandlerFunc(size int, fn func(ctx context.Context, frame []byte) ([]byte, error)) Handler {
	return handlerFunc{size: size, fn: fn}
}

type handlerFunc struct {
	size int
	fn   func(context.Context, []byte) ([]byte, error)
}

func (h handlerFunc) FrameSize() int { return h.size }

func (h handlerFunc) ServeFrame(ctx context.Context, frame []byte) ([]byte, error) {
	return h.fn(ctx, frame)
}

// Config holds the socket server configuration.
type Config struct {
	// Name labels log lines, e.g. "agent" or "host-event".
	Name string
	// Path is the Unix socket path. A stale socket file is replaced.
	Path string
	// Mode is the permission applied to the socket file (default: 0600).
	Mode fs.FileMode
	// ReadTimeout bounds reading the rest of a frame once its first byte arrived (default: 5s).
	ReadTimeout time.Duration
	// WriteTimeout bounds writing a reply (default: 5s).
	WriteTimeout time.Duration
	// IdleTimeout closes connections idle between frames (default: 10m).
	IdleTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Mode == 0 {
		out.Mode = 0o600
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = 5 * time.Second
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = 5 * time.Second
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = 10 * time.Minute
	}
	return out
}

// Server is a framed Unix socket server.
type Server struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	// ctx is cancelled on Shutdown so blocked handlers return.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a new socket server.
func New(cfg Config, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  logger.With("listener", cfg.Name),
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the socket. It replaces a stale socket file left by a
// previous process but refuses to remove anything that is not a socket.
func (s *Server) Listen() error {
	if fi, err := os.Lstat(s.cfg.Path); err == nil {
		if fi.Mode()&fs.ModeSocket == 0 {
			return fmt.Errorf("listen %s: path exists and is not a socket", s.cfg.Path)
		}
		if err := os.Remove(s.cfg.Path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.cfg.Path)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Path, err)
	}
	if err := os.Chmod(s.cfg.Path, s.cfg.Mode); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod %s: %w", s.cfg.Path, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe binds the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve accepts connections on the bound socket until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("localserver: Serve called before Listen")
	}
	s.running.Store(true)
	s.logger.Info("socket server started", "path", s.cfg.Path)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if server is shutting down
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(conn)
		}()
	}
}

// Shutdown stops accepting connections, cancels in-flight handlers, closes
// open connections and waits for them to finish (respects ctx timeout).
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.cancel()

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("socket server stopped")
		if errors.Is(closeErr, net.ErrClosed) {
			return nil
		}
		return closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	br := bufio.NewReaderSize(conn, s.handler.FrameSize())
	frame := make([]byte, s.handler.FrameSize())

	for {
		// First byte: allow idle timeout between frames.
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := br.Peek(1); err != nil {
			s.logReadErr(err)
			return
		}

		// After first byte: the rest of the frame must follow promptly.
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}
		if _, err := io.ReadFull(br, frame); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn("truncated frame", "want_bytes", len(frame))
				return
			}
			s.logReadErr(err)
			return
		}
		_ = conn.SetReadDeadline(time.Time{})

		reply, err := s.handler.ServeFrame(s.ctx, frame)
		if err != nil {
			s.logger.Warn("frame rejected, closing connection", "error", err)
			return
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if _, err := conn.Write(reply); err != nil {
			s.logger.Debug("reply write failed", "error", err)
			return
		}
	}
}

func (s *Server) logReadErr(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Debug("connection timed out")
		return
	}
	s.logger.Debug("connection read error", "error", err)
}
