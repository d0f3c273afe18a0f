package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/monitor"
	"github.com/claude-bar/claude-bar/internal/session"
)

var log = logging.ForComponent(logging.CompWS)

// ErrTooManyConnections is returned by AddClient when the client limit is
// reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const writeWait = 5 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster fans snapshots out to WebSocket clients. Published snapshots
// are coalesced over the throttle window, and a full snapshot is re-sent on
// every snapshot interval so idle clients still see ages advance.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *session.Store
	maxConns int
	seq      atomic.Uint64

	throttle   time.Duration
	flushMu    sync.Mutex
	pending    []session.Session
	hasPending bool
	flushTimer *time.Timer

	snapshotTicker *time.Ticker
	done           chan struct{}
	stopOnce       sync.Once
}

func NewBroadcaster(store *session.Store, throttle, snapshotInterval time.Duration, maxConns int) *Broadcaster {
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		store:          store,
		maxConns:       maxConns,
		throttle:       throttle,
		snapshotTicker: time.NewTicker(snapshotInterval),
		done:           make(chan struct{}),
	}
	go b.snapshotLoop()
	return b
}

// AddClient registers conn and queues the current snapshot for it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := &client{conn: conn, b: b, send: make(chan []byte, 64)}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()

	if data, err := b.encode(MsgSnapshot, newSnapshotPayload(b.store.Snapshot())); err == nil {
		b.trySend(c, data)
	}
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

// QueueSnapshot schedules sessions for broadcast. Only the latest snapshot
// queued within one throttle window is sent.
func (b *Broadcaster) QueueSnapshot(sessions []session.Session) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pending = sessions
	b.hasPending = true
	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	sessions, ok := b.pending, b.hasPending
	b.pending = nil
	b.hasPending = false
	b.flushTimer = nil
	b.flushMu.Unlock()

	if ok {
		b.broadcast(MsgSnapshot, newSnapshotPayload(sessions))
	}
}

// PublishHook returns a store publish hook that queues every snapshot and
// sends a health frame whenever an enumerator changes status. The hook is
// meant for a single publishing goroutine.
func (b *Broadcaster) PublishHook(health HealthFunc) func([]session.Session) {
	var last []monitor.HealthStatus
	return func(sessions []session.Session) {
		b.QueueSnapshot(sessions)
		if health == nil {
			return
		}
		sources := health()
		statuses := make([]monitor.HealthStatus, len(sources))
		for i, src := range sources {
			statuses[i] = src.Status
		}
		if slices.Equal(statuses, last) {
			return
		}
		last = statuses
		b.BroadcastHealth(HealthPayload{Sources: sources})
	}
}

// BroadcastHealth sends an enumerator health update to every client.
func (b *Broadcaster) BroadcastHealth(payload HealthPayload) {
	b.broadcast(MsgHealth, payload)
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.snapshotTicker.C:
			if b.ClientCount() > 0 {
				b.broadcast(MsgSnapshot, newSnapshotPayload(b.store.Snapshot()))
			}
		}
	}
}

func (b *Broadcaster) encode(t MessageType, payload interface{}) ([]byte, error) {
	msg := WSMessage{Type: t, Seq: b.seq.Add(1), Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("broadcast_marshal_failed",
			slog.String("type", string(t)),
			slog.String("error", err.Error()))
		return nil, err
	}
	return data, nil
}

func (b *Broadcaster) broadcast(t MessageType, payload interface{}) {
	data, err := b.encode(t, payload)
	if err != nil {
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if !b.trySend(c, data) {
			log.Warn("ws_client_too_slow", slog.String("remote", c.conn.RemoteAddr().String()))
			b.RemoveClient(c)
		}
	}
}

// trySend queues data without blocking. It reports false when the client
// buffer is full. A client removed concurrently is skipped.
func (b *Broadcaster) trySend(c *client, data []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.clients[c] {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop halts the periodic snapshot and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.snapshotTicker.Stop()
		close(b.done)

		b.flushMu.Lock()
		if b.flushTimer != nil {
			b.flushTimer.Stop()
			b.flushTimer = nil
		}
		b.flushMu.Unlock()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}
