package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/claude-bar/claude-bar/internal/transcript"
)

// claimDebounce coalesces the burst of events a single claim write makes.
const claimDebounce = 100 * time.Millisecond

// ClaimsWatcher signals when a claim file appears or changes anywhere under
// the claims root, so a new session is picked up before the next tick.
type ClaimsWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	notify  chan struct{}
}

func NewClaimsWatcher(root string) (*ClaimsWatcher, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating claims root: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &ClaimsWatcher{
		root:    root,
		watcher: w,
		notify:  make(chan struct{}, 1),
	}, nil
}

// C delivers at most one pending signal at a time.
func (w *ClaimsWatcher) C() <-chan struct{} {
	return w.notify
}

// Run watches until ctx is cancelled. The root and its project
// directories are watched; new project directories are added as they
// appear.
func (w *ClaimsWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	if entries, err := os.ReadDir(w.root); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				w.addDir(filepath.Join(w.root, e.Name()))
			}
		}
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addDir(event.Name)
					continue
				}
			}
			if !isClaimEvent(event) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(claimDebounce, w.signal)
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("claims_watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *ClaimsWatcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		log.Warn("claims_watcher_add_failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}

func (w *ClaimsWatcher) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// isClaimEvent reports whether event wrote a claim file. The atomic rename
// shows up as a Create of the final name.
func isClaimEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	return transcript.IsClaimFile(filepath.Base(event.Name))
}
