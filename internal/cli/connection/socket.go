package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// SocketClient exchanges fixed-size frames with a snapcoord Unix socket.
// One request frame is answered by one reply frame.
type SocketClient struct {
	path   string
	dialer net.Dialer
	conn   net.Conn
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		path:   socketPath,
		dialer: net.Dialer{Timeout: 5 * time.Second},
	}
}

// Connect connects to the socket.
func (c *SocketClient) Connect(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.path, err)
	}
	c.conn = conn
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// RoundTrip writes frame and reads a replySize-byte reply. The context
// deadline, if any, bounds the whole exchange; cancelling ctx aborts a
// blocked read.
func (c *SocketClient) RoundTrip(ctx context.Context, frame []byte, replySize int) ([]byte, error) {
	if c.conn == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := c.conn.Write(frame); err != nil {
		return nil, c.wrap(ctx, "write", err)
	}

	reply := make([]byte, replySize)
	if _, err := io.ReadFull(c.conn, reply); err != nil {
		return nil, c.wrap(ctx, "read", err)
	}
	return reply, nil
}

func (c *SocketClient) wrap(ctx context.Context, op string, err error) error {
	_ = c.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s %s: %w", op, c.path, ctxErr)
	}
	// The socket deadline can fire a moment before the context's own timer.
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", op, c.path, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s %s: %w", op, c.path, err)
}
