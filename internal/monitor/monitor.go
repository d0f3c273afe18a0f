package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/session"
	"github.com/claude-bar/claude-bar/internal/transcript"
)

var log = logging.ForComponent(logging.CompMonitor)

// Monitor runs the discovery, merge, resolve and status cycle and publishes
// each resulting snapshot to the store.
type Monitor struct {
	cfg         *config.Config
	inspector   ProcessInspector
	enumerators []TerminalEnumerator
	store       *session.Store

	mu      sync.Mutex // protects trigger
	trigger <-chan struct{}

	health map[session.Terminal]*sourceHealth
	warn   map[session.Terminal]*rate.Sometimes
	now    func() time.Time
}

func NewMonitor(cfg *config.Config, inspector ProcessInspector, enumerators []TerminalEnumerator, store *session.Store) *Monitor {
	m := &Monitor{
		cfg:         cfg,
		inspector:   inspector,
		enumerators: enumerators,
		store:       store,
		health:      make(map[session.Terminal]*sourceHealth, len(enumerators)),
		warn:        make(map[session.Terminal]*rate.Sometimes, len(enumerators)),
		now:         time.Now,
	}
	for _, e := range enumerators {
		m.health[e.Kind()] = newSourceHealth()
		m.warn[e.Kind()] = &rate.Sometimes{First: 1, Interval: time.Minute}
	}
	return m
}

// NewInspector builds the process inspector selected by the config.
func NewInspector(cfg *config.Config) ProcessInspector {
	if cfg.ResolvedInspector() == config.InspectorPS {
		return NewPSInspector(cfg.Monitor.Program, cfg.Monitor.QueryTimeout)
	}
	return NewPsutilInspector(cfg.Monitor.Program)
}

// SetTrigger registers a channel whose signals start an extra cycle
// between ticks. Must be called before Run.
func (m *Monitor) SetTrigger(ch <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = ch
}

// Run polls once immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	trigger := m.trigger
	m.mu.Unlock()

	ticker := time.NewTicker(m.cfg.Monitor.PollInterval)
	defer ticker.Stop()

	log.Info("monitor_started",
		slog.String("program", m.cfg.Monitor.Program),
		slog.Duration("interval", m.cfg.Monitor.PollInterval),
		slog.Int("enumerators", len(m.enumerators)))

	m.PollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("monitor_stopped")
			return nil
		case <-ticker.C:
			m.PollOnce(ctx)
		case <-trigger:
			log.Debug("monitor_triggered")
			m.PollOnce(ctx)
		}
	}
}

// PollOnce runs one cycle and publishes its snapshot. A cycle cut short by
// cancellation is discarded.
func (m *Monitor) PollOnce(ctx context.Context) {
	start := m.now()
	sessions := m.Poll(ctx)
	if ctx.Err() != nil {
		return
	}
	m.store.Publish(sessions)
	log.Debug("poll_complete",
		slog.Int("sessions", len(sessions)),
		slog.Duration("took", time.Since(start)))
}

// Poll builds a fresh snapshot. It never fails; every query that goes
// wrong degrades the affected session instead.
func (m *Monitor) Poll(ctx context.Context) []session.Session {
	pidByTTY := PIDsByTTY(ctx, m.inspector)
	merged := MergeSessions(m.enumerate(ctx), pidByTTY)

	live := make(map[string]bool, len(merged))
	for _, mt := range merged {
		live[mt.TTY] = true
	}

	now := m.now()
	sessions := make([]session.Session, 0, len(merged))
	for _, mt := range merged {
		pid := pidByTTY[mt.TTY]
		cwd, _ := m.inspector.Cwd(ctx, pid)

		path, ok := transcript.Resolve(
			mt.TTY,
			transcript.ClaimsDirFor(m.cfg.Paths.ClaimsDir, cwd),
			transcript.LogDirFor(m.cfg.Paths.ProjectsDir, cwd),
			live,
		)
		if !ok {
			path = ""
		}

		sessions = append(sessions, session.Session{
			TTY:        mt.TTY,
			PID:        pid,
			Cwd:        cwd,
			Terminal:   mt.Kind,
			Transcript: path,
			Status:     transcript.StatusOfFile(path, now),
		})
	}
	return sessions
}

// enumerate queries every enumerator. A failing enumerator contributes an
// empty list for this cycle only.
func (m *Monitor) enumerate(ctx context.Context) []Enumeration {
	enums := make([]Enumeration, 0, len(m.enumerators))
	for _, e := range m.enumerators {
		kind := e.Kind()
		ttys, err := e.TTYs(ctx)
		h := m.health[kind]
		if err != nil {
			h.recordFailure(err, m.now())
			m.warn[kind].Do(func() {
				log.Warn("enumerate_failed",
					slog.String("terminal", kind.String()),
					slog.String("error", err.Error()))
			})
			ttys = nil
		} else {
			h.recordSuccess()
		}
		if snap, changed := h.snapshotAndEmit(kind.String()); changed {
			log.Info("enumerator_health",
				slog.String("terminal", kind.String()),
				slog.String("status", string(snap.Status)),
				slog.Int("failures", snap.Failures))
		}
		enums = append(enums, Enumeration{Kind: kind, TTYs: ttys})
	}
	return enums
}

// Health reports the health of every enumerator in priority order.
func (m *Monitor) Health() []SourceHealth {
	result := make([]SourceHealth, 0, len(m.enumerators))
	for _, e := range m.enumerators {
		result = append(result, m.health[e.Kind()].snapshot(e.Kind().String()))
	}
	return result
}
