package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/dittocore/pkg/config"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
	logsFile   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail server logs",
	Long: `Display and optionally follow the dittocore server logs.

Reads logging.output from the configuration, or the daemon log file when
the server logs to stdout/stderr and was started in the background.

Examples:
  # Show last 100 lines (default)
  dittocore logs

  # Follow logs in real-time
  dittocore logs -f -n 20

  # Show logs since a duration ago or a timestamp
  dittocore logs --since 15m
  dittocore logs --since 2026-01-15T10:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since a duration ago (15m) or an RFC3339 timestamp")
	logsCmd.Flags().StringVar(&logsFile, "file", "", "Log file to read (default: from configuration)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	path, err := resolveLogFile()
	if err != nil {
		return err
	}

	since, err := parseSince(logsSince, time.Now())
	if err != nil {
		return err
	}

	if err := showLogs(cmd.OutOrStdout(), path, logsLines, since); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", path)
	return followLogs(ctx, cmd.OutOrStdout(), path)
}

func resolveLogFile() (string, error) {
	if logsFile != "" {
		return logsFile, nil
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	path := cfg.Logging.Output
	if path == "stdout" || path == "stderr" {
		path = GetDefaultLogFile()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("log file not found: %s\nThe server may not have started yet, or logs to %s", path, cfg.Logging.Output)
	}
	return path, nil
}

// parseSince accepts a duration relative to now or an RFC3339 timestamp.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q (use a duration like 15m or RFC3339)", s)
	}
	return t, nil
}

// showLogs writes the last n lines of path not older than since.
func showLogs(w io.Writer, path string, n int, since time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts := extractTimestamp(line); !ts.IsZero() && ts.Before(since) {
				continue
			}
		}
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	for _, line := range ring {
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// followLogs prints lines appended to path until ctx is done. A rotation
// (rename or remove) reopens the new file.
func followLogs(ctx context.Context, w io.Writer, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Write):
				copyLines(w, reader)
			case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
				copyLines(w, reader)
				_ = file.Close()
				if file, reader, err = reopenLog(ctx, watcher, path); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func copyLines(w io.Writer, r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			_, _ = io.WriteString(w, line)
		}
		if err != nil {
			return
		}
	}
}

// reopenLog waits for a rotated log file to reappear.
func reopenLog(ctx context.Context, watcher *fsnotify.Watcher, path string) (*os.File, *bufio.Reader, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if f, err := os.Open(path); err == nil {
			_ = watcher.Add(path)
			return f, bufio.NewReader(f), nil
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// textTimeLayout is the bracketed local timestamp of text log lines.
const textTimeLayout = "[2006-01-02 15:04:05]"

// extractTimestamp finds the time of a log line: the "time" field of a
// JSON line, or the bracketed prefix of a text line.
func extractTimestamp(line string) time.Time {
	if strings.HasPrefix(line, "{") {
		var rec struct {
			Time time.Time `json:"time"`
		}
		if json.Unmarshal([]byte(line), &rec) == nil {
			return rec.Time
		}
		return time.Time{}
	}

	if len(line) >= len(textTimeLayout) {
		if t, err := time.ParseInLocation(textTimeLayout, line[:len(textTimeLayout)], time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
