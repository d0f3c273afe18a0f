package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/claude-bar/claude-bar/internal/session"
)

// Query connects to the status socket and decodes the snapshot it sends.
func Query(ctx context.Context, socket string, timeout time.Duration) ([]session.Session, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", socket, err)
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var sessions []session.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return sessions, nil
}
