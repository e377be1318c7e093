package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background Dandi server",
		Long:  "Stop a Dandi server that was started with 'dandi serve'. Pending usage updates are flushed before it exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 35*time.Second, "How long to wait for the server to drain")

	return cmd
}

func runStop(timeout time.Duration) error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no running server found (missing PID file at %s)", pidFilePath())
	}

	if !isProcessRunning(pid) {
		removePID()
		return fmt.Errorf("server (PID %d) is not running (stale PID file removed)", pid)
	}

	fmt.Printf("Stopping Dandi server (PID %d)...\n", pid)

	if err := stopProcess(pid); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if !isProcessRunning(pid) {
			removePID()
			fmt.Println("Server stopped.")
			return nil
		}
	}

	return fmt.Errorf("server (PID %d) did not stop within %s; it may still be draining connections", pid, timeout)
}
