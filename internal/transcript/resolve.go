package transcript

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Resolve picks the transcript owned by the session on tty.
//
// The session's own claim wins when its transcript still exists. Otherwise
// the newest *.jsonl in logDir is chosen, skipping any file claimed by
// another live tty. Claims of ttys missing from live are ignored so their
// files can be picked up again. Equal modification times have no tie-break.
func Resolve(tty, claimsDir, logDir string, live map[string]bool) (string, bool) {
	own := ShortTTY(tty)

	if path, ok := liveTranscript(filepath.Join(claimsDir, ClaimFileName(tty))); ok {
		return path, true
	}

	liveKeys := make(map[string]bool, len(live))
	for t, ok := range live {
		if ok {
			liveKeys[ShortTTY(t)] = true
		}
	}

	claimed := make(map[string]bool)
	if entries, err := os.ReadDir(claimsDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			key, ok := claimKey(entry.Name())
			if !ok || key == own || !liveKeys[key] {
				continue
			}
			if path, ok := liveTranscript(filepath.Join(claimsDir, entry.Name())); ok {
				claimed[filepath.Clean(path)] = true
			}
		}
	}

	for _, c := range candidates(logDir) {
		if !claimed[c.path] {
			return c.path, true
		}
	}
	return "", false
}

type candidate struct {
	path    string
	modTime time.Time
}

// candidates lists the transcripts in dir, newest first.
func candidates(dir string) []candidate {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, candidate{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].modTime.After(out[j].modTime)
	})
	return out
}
