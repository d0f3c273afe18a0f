package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if got := len(s.Snapshot()); got != 0 {
		t.Errorf("new store has %d sessions, want 0", got)
	}
	if s.Generation() != 0 {
		t.Errorf("new store Generation() = %d, want 0", s.Generation())
	}
	if !s.PublishedAt().IsZero() {
		t.Error("new store has non-zero PublishedAt")
	}
}

func TestPublishAndSnapshot(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{
		{TTY: "/dev/ttys001", PID: 10, Status: Active},
		{TTY: "/dev/ttys002", PID: 11, Status: Idle},
	})

	got := s.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(got))
	}
	if got[0].TTY != "/dev/ttys001" || got[1].TTY != "/dev/ttys002" {
		t.Errorf("Snapshot() order changed: %+v", got)
	}
	if s.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", s.Generation())
	}
}

func TestPublishReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{{TTY: "/dev/ttys001"}, {TTY: "/dev/ttys002"}})
	s.Publish([]Session{{TTY: "/dev/ttys003"}})

	got := s.Snapshot()
	if len(got) != 1 || got[0].TTY != "/dev/ttys003" {
		t.Errorf("Snapshot() after second publish = %+v", got)
	}
	if _, ok := s.Get("/dev/ttys001"); ok {
		t.Error("session from previous snapshot still visible")
	}
}

func TestPublishEmpty(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{{TTY: "/dev/ttys001"}})
	s.Publish(nil)

	got := s.Snapshot()
	if got == nil || len(got) != 0 {
		t.Errorf("Snapshot() after empty publish = %#v, want empty non-nil slice", got)
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{{TTY: "/dev/ttys001", Cwd: "/original"}})

	got := s.Snapshot()
	got[0].Cwd = "/mutated"

	again := s.Snapshot()
	if again[0].Cwd != "/original" {
		t.Error("Snapshot did not return a copy; mutation leaked into store")
	}
}

func TestGet(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{{TTY: "/dev/pts/3", PID: 99, Status: Pending}})

	got, ok := s.Get("/dev/pts/3")
	if !ok {
		t.Fatal("Get returned ok=false for published tty")
	}
	if got.PID != 99 || got.Status != Pending {
		t.Errorf("Get returned %+v", got)
	}
	if _, ok := s.Get("/dev/pts/4"); ok {
		t.Error("Get for missing tty returned ok=true")
	}
}

func TestCountByStatus(t *testing.T) {
	s := NewStore()
	s.Publish([]Session{
		{TTY: "a", Status: Active},
		{TTY: "b", Status: Pending},
		{TTY: "c", Status: Pending},
		{TTY: "d", Status: Idle},
	})
	counts := s.CountByStatus()
	if counts[Active] != 1 || counts[Pending] != 2 || counts[Idle] != 1 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

func TestPublishHook(t *testing.T) {
	s := NewStore()
	var got []Session
	calls := 0
	s.SetPublishHook(func(sessions []Session) {
		calls++
		got = sessions
		// Reading from the hook must not deadlock.
		_ = s.Snapshot()
	})

	s.Publish([]Session{{TTY: "/dev/ttys001"}})
	if calls != 1 {
		t.Fatalf("hook called %d times, want 1", calls)
	}
	if len(got) != 1 || got[0].TTY != "/dev/ttys001" {
		t.Errorf("hook received %+v", got)
	}

	s.SetPublishHook(nil)
	s.Publish(nil)
	if calls != 1 {
		t.Errorf("hook called after being cleared")
	}
}

func TestConcurrentPublishAndSnapshot(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			snap := make([]Session, n%5)
			for j := range snap {
				snap[j] = Session{TTY: fmt.Sprintf("/dev/ttys%03d", j), PID: n}
			}
			s.Publish(snap)
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			// Every snapshot comes from a single publish.
			for _, sess := range snap {
				if sess.PID != snap[0].PID {
					t.Errorf("snapshot mixes cycles: %+v", snap)
					return
				}
			}
		}()
	}
	wg.Wait()

	if s.Generation() != 20 {
		t.Errorf("Generation() = %d, want 20", s.Generation())
	}
}
