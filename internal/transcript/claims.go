package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	claimPrefix = "session-"
	claimSuffix = ".json"
)

// Claim binds a tty to the transcript its session owns. The session-start
// hook writes one per session; the resolver only reads them.
type Claim struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
}

// ShortTTY strips the /dev/ prefix and flattens any remaining separators so
// the result is usable as a file name component: /dev/ttys003 -> ttys003,
// /dev/pts/4 -> pts-4.
func ShortTTY(tty string) string {
	return strings.ReplaceAll(strings.TrimPrefix(tty, "/dev/"), "/", "-")
}

// ClaimFileName is the claim file name for a tty.
func ClaimFileName(tty string) string {
	return claimPrefix + ShortTTY(tty) + claimSuffix
}

// claimKey returns the short tty a claim file belongs to.
func claimKey(name string) (string, bool) {
	if !strings.HasPrefix(name, claimPrefix) || !strings.HasSuffix(name, claimSuffix) {
		return "", false
	}
	key := name[len(claimPrefix) : len(name)-len(claimSuffix)]
	return key, key != ""
}

// IsClaimFile reports whether name is a claim file name.
func IsClaimFile(name string) bool {
	_, ok := claimKey(name)
	return ok
}

// ProjectHash encodes a working directory the way the assistant names its
// per-project transcript directories.
func ProjectHash(cwd string) string {
	return strings.NewReplacer("/", "-", "_", "-").Replace(cwd)
}

// ClaimsDirFor is the claims directory of a project. An unknown cwd falls
// back to the claims root.
func ClaimsDirFor(root, cwd string) string {
	if cwd == "" {
		return root
	}
	return filepath.Join(root, ProjectHash(cwd))
}

// LogDirFor is the directory holding a project's transcripts.
func LogDirFor(projectsDir, cwd string) string {
	return filepath.Join(projectsDir, ProjectHash(cwd))
}

// ReadClaim loads and decodes a claim file.
func ReadClaim(path string) (Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Claim{}, err
	}
	var c Claim
	if err := json.Unmarshal(data, &c); err != nil {
		return Claim{}, fmt.Errorf("parsing claim %s: %w", path, err)
	}
	return c, nil
}

// liveTranscript returns the claimed transcript if the claim file is
// readable and the transcript is a regular file that still exists.
func liveTranscript(claimPath string) (string, bool) {
	c, err := ReadClaim(claimPath)
	if err != nil || c.TranscriptPath == "" {
		return "", false
	}
	if !isFile(c.TranscriptPath) {
		return "", false
	}
	return c.TranscriptPath, true
}

// WriteClaim atomically writes the claim for tty into dir, creating dir if
// needed, and returns the claim file path.
func WriteClaim(dir, tty string, c Claim) (string, error) {
	if ShortTTY(tty) == "" {
		return "", errors.New("empty tty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating claims dir: %w", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding claim: %w", err)
	}

	target := filepath.Join(dir, ClaimFileName(tty))
	tmp, err := os.CreateTemp(dir, ".claim-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("renaming claim file: %w", err)
	}
	committed = true

	return target, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
