package monitor

import (
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthFailed   HealthStatus = "failed"
)

// failureThreshold is the number of consecutive failed cycles after which
// an enumerator counts as failed rather than degraded.
const failureThreshold = 3

// SourceHealth is a point-in-time view of one enumerator's health.
type SourceHealth struct {
	Source      string       `json:"source"`
	Status      HealthStatus `json:"status"`
	Failures    int          `json:"failures"`
	LastError   string       `json:"lastError,omitempty"`
	LastFailure time.Time    `json:"lastFailure,omitempty"`
}

// sourceHealth tracks consecutive enumeration failures for one terminal
// kind. Fields are protected by mu because the poll loop writes them while
// the HTTP mirror reads them.
type sourceHealth struct {
	mu                sync.Mutex
	failures          int
	lastErr           string
	lastFail          time.Time
	lastEmittedStatus HealthStatus
}

func newSourceHealth() *sourceHealth {
	return &sourceHealth{lastEmittedStatus: HealthHealthy}
}

func (h *sourceHealth) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = 0
	h.lastErr = ""
}

func (h *sourceHealth) recordFailure(err error, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	h.lastErr = err.Error()
	h.lastFail = now
}

// statusLocked computes health status. Caller must hold h.mu.
func (h *sourceHealth) statusLocked() HealthStatus {
	switch {
	case h.failures >= failureThreshold:
		return HealthFailed
	case h.failures > 0:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

func (h *sourceHealth) status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

// snapshot returns a consistent copy of all health fields under the lock.
func (h *sourceHealth) snapshot(source string) SourceHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked(source)
}

func (h *sourceHealth) snapshotLocked(source string) SourceHealth {
	return SourceHealth{
		Source:      source,
		Status:      h.statusLocked(),
		Failures:    h.failures,
		LastError:   h.lastErr,
		LastFailure: h.lastFail,
	}
}

// snapshotAndEmit is snapshot plus whether the status changed since the
// last call that reported a change.
func (h *sourceHealth) snapshotAndEmit(source string) (SourceHealth, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := h.snapshotLocked(source)
	changed := snap.Status != h.lastEmittedStatus
	if changed {
		h.lastEmittedStatus = snap.Status
	}
	return snap, changed
}
