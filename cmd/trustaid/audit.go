package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var auditFollow bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit event log",
	Long: `Prints the JSONL audit event log. With --follow the log is tailed
until interrupted, picking up events as they are appended.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVarP(&auditFollow, "follow", "f", false, "follow the log for new events")
}

func runAudit(cmd *cobra.Command, args []string) error {
	path := app.auditor.Path()
	if path == "" {
		return fmt.Errorf("audit sink is disabled in config")
	}

	if !auditFollow {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("(no audit events yet)")
				return nil
			}
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer f.Close()
		_, err = io.Copy(os.Stdout, f)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return tailFile(ctx, path, os.Stdout)
}

// tailFile copies the current contents of path to out, then follows appends
// until ctx is canceled. The file may not exist yet; it is picked up on
// creation.
func tailFile(ctx context.Context, path string, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: the file may not exist yet, and
	// appends arrive as write events on the path.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var f *os.File
	defer func() {
		if f != nil {
			f.Close()
		}
	}()

	drain := func() {
		if f == nil {
			file, err := os.Open(path)
			if err != nil {
				return
			}
			f = file
		}
		_, _ = io.Copy(out, f)
	}
	drain()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				drain()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
	}
}
