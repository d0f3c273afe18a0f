// Package daemon serves the session snapshot over a unix socket. Each
// connection receives the current snapshot as one JSON array followed by a
// newline and is then closed; nothing is read from the client.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/session"
)

var log = logging.ForComponent(logging.CompDaemon)

type State int32

const (
	Starting State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Task is a long-running component supervised next to the accept loop. It
// must return once its context is cancelled.
type Task func(ctx context.Context) error

// Optional wraps a task whose failure must not take the socket down. The
// error is logged and the task counts as finished; the socket and the
// remaining tasks keep running.
func Optional(name string, task Task) Task {
	return func(ctx context.Context) error {
		err := task(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("task_failed",
				slog.String("task", name),
				slog.String("error", err.Error()))
		}
		return nil
	}
}

// Server owns the status socket.
type Server struct {
	socket        string
	acceptBackoff time.Duration
	errorBackoff  time.Duration
	writeTimeout  time.Duration
	store         *session.Store

	state atomic.Int32
	conns sync.WaitGroup
	warn  rate.Sometimes
}

func New(cfg *config.Config, store *session.Store) *Server {
	return &Server{
		socket:        cfg.Paths.Socket,
		acceptBackoff: cfg.Server.AcceptBackoff,
		errorBackoff:  cfg.Server.ErrorBackoff,
		writeTimeout:  cfg.Server.WriteTimeout,
		store:         store,
		warn:          rate.Sometimes{First: 1, Interval: time.Minute},
	}
}

func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	log.Debug("daemon_state", slog.String("state", st.String()))
}

// Listen binds the unix socket at path. An existing socket file is treated
// as stale and replaced; any other file at path is an error.
func Listen(path string) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if st, err := os.Lstat(path); err == nil {
		if st.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("socket path exists and is not a unix socket: %s", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
		log.Info("stale_socket_removed", slog.String("path", path))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat socket path: %w", err)
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Run binds the socket and serves until ctx is cancelled or a task fails.
// Tasks share a context that is cancelled when any of them, or the accept
// loop, returns an error. Wrap tasks that may fail without stopping the
// daemon in Optional.
func (s *Server) Run(ctx context.Context, tasks ...Task) error {
	s.setState(Starting)
	ln, err := Listen(s.socket)
	if err != nil {
		s.setState(Stopped)
		return err
	}
	log.Info("daemon_listening", slog.String("socket", s.socket))

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error { return task(gctx) })
	}
	g.Go(func() error { return s.Serve(gctx, ln) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("daemon_failed", slog.String("error", err.Error()))
		return err
	}
	log.Info("daemon_stopped")
	return nil
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln,
// waits for in-flight writes and removes the socket file.
func (s *Server) Serve(ctx context.Context, ln *net.UnixListener) error {
	s.setState(Running)
	defer func() {
		s.setState(Stopping)
		ln.Close()
		s.conns.Wait()
		path := ln.Addr().String()
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("socket_remove_failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		s.setState(Stopped)
	}()

	for ctx.Err() == nil {
		if err := ln.SetDeadline(time.Now().Add(s.acceptBackoff)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			s.warn.Do(func() {
				log.Warn("accept_failed", slog.String("error", err.Error()))
			})
			select {
			case <-ctx.Done():
			case <-time.After(s.errorBackoff):
			}
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(conn)
		}()
	}
	return nil
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		log.Error("snapshot_encode_failed", slog.String("error", err.Error()))
		return
	}
	data = append(data, '\n')

	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return
	}
	if _, err := conn.Write(data); err != nil {
		log.Debug("snapshot_write_failed", slog.String("error", err.Error()))
	}
}
