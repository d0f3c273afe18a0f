package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude-bar/claude-bar/internal/daemon"
	"github.com/claude-bar/claude-bar/internal/session"
)

var (
	statusJSON    bool
	statusTimeout time.Duration
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the sessions reported by the running daemon",
		Long: `Connects to the status socket and prints the current snapshot.
Sessions needing input are listed first, then running, then idle.

Examples:
  claude-bar status
  claude-bar status --json`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw snapshot as JSON")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 2*time.Second, "Socket connect and read timeout")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sessions, err := daemon.Query(cmd.Context(), cfg.Paths.Socket, statusTimeout)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}
	return renderStatus(out, sessions)
}

// statusOrder lists sessions that need attention first.
var statusOrder = map[session.Status]int{
	session.Pending: 0,
	session.Active:  1,
	session.Idle:    2,
}

func renderStatus(w io.Writer, sessions []session.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "no sessions")
		return err
	}

	sorted := make([]session.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return statusOrder[sorted[i].Status] < statusOrder[sorted[j].Status]
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tTTY\tTERMINAL\tPID\tPROJECT")
	counts := make(map[session.Status]int)
	for _, s := range sorted {
		counts[s.Status]++
		project := "-"
		if s.Cwd != "" {
			project = filepath.Base(s.Cwd)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.Status.Label(), strings.TrimPrefix(s.TTY, "/dev/"), s.Terminal, s.PID, project)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d sessions: %d needs input, %d running, %d idle\n",
		len(sessions), counts[session.Pending], counts[session.Active], counts[session.Idle])
	return err
}
