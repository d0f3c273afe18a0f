package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/claude-bar/claude-bar/internal/transcript"
)

func startWatcher(t *testing.T) (*ClaimsWatcher, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "claims")
	w, err := NewClaimsWatcher(root)
	if err != nil {
		t.Fatalf("NewClaimsWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give Run a moment to register the root watch.
	time.Sleep(50 * time.Millisecond)
	return w, root
}

func TestClaimsWatcherSignalsOnClaim(t *testing.T) {
	w, root := startWatcher(t)

	if _, err := transcript.WriteClaim(root, "/dev/ttys004", transcript.Claim{SessionID: "s", TranscriptPath: "/tmp/x.jsonl"}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.C():
	case <-time.After(2 * time.Second):
		t.Fatal("no signal after claim write")
	}
}

func TestClaimsWatcherIgnoresOtherFiles(t *testing.T) {
	w, root := startWatcher(t)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.C():
		t.Fatal("signalled for a non-claim file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsClaimEvent(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/c/-work/session-ttys001.json", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/c/-work/session-pts-3.json", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/c/-work/session-ttys001.json", Op: fsnotify.Remove}, false},
		{fsnotify.Event{Name: "/c/-work/.claim-123.tmp", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/c/-work/session-.json", Op: fsnotify.Create}, false},
	}
	for _, tt := range tests {
		if got := isClaimEvent(tt.event); got != tt.want {
			t.Errorf("isClaimEvent(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}
