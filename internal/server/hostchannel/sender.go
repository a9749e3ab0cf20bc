package hostchannel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// SocketSender delivers reports over a Unix socket, keeping one connection
// open between reports and redialing when it breaks.
type SocketSender struct {
	path   string
	dialer net.Dialer

	mu   sync.Mutex
	conn net.Conn
}

// NewSocketSender creates a sender for the report socket at path.
func NewSocketSender(path string) *SocketSender {
	return &SocketSender{path: path}
}

// Send writes req and reads the host's one-byte response.
func (s *SocketSender) Send(ctx context.Context, req wire.ControlRequest) (wire.ControlResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, _ := req.MarshalBinary()

	// A kept connection may have been closed by the host; retry once on a
	// fresh one.
	reused := s.conn != nil
	resp, err := s.roundTripLocked(ctx, frame)
	if err != nil && reused && ctx.Err() == nil {
		resp, err = s.roundTripLocked(ctx, frame)
	}
	return resp, err
}

func (s *SocketSender) roundTripLocked(ctx context.Context, frame []byte) (wire.ControlResponse, error) {
	if s.conn == nil {
		conn, err := s.dialer.DialContext(ctx, "unix", s.path)
		if err != nil {
			return wire.ControlResponse{}, domain.ErrTransport.WithDetailsf("dial %s", s.path).WithCause(err)
		}
		s.conn = conn
	}

	// Zero clears any deadline left from the previous report.
	deadline, _ := ctx.Deadline()
	_ = s.conn.SetDeadline(deadline)

	var resp wire.ControlResponse
	err := func() error {
		if _, err := s.conn.Write(frame); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		buf := make([]byte, wire.ControlResponseSize)
		if _, err := io.ReadFull(s.conn, buf); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return resp.UnmarshalBinary(buf)
	}()
	if err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return wire.ControlResponse{}, domain.ErrTransport.WithCause(err)
	}
	return resp, nil
}

// Close closes the kept connection.
func (s *SocketSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
