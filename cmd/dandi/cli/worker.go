package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Niamh518/Dandi-curser-project/internal/queue"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued usage updates",
		Long: `Run the background worker that applies API key last-used updates queued
in Redis by 'dandi serve'. Only needed when queue.redis_addr is set.`,
		Example: `  DANDI_QUEUE_REDIS_ADDR=localhost:6379 dandi worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of concurrent task handlers (default: queue.concurrency)")

	return cmd
}

func runWorker(concurrency int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.QueueEnabled() {
		return errors.New("queue.redis_addr is not set; the server records usage in-process")
	}
	if concurrency <= 0 {
		concurrency = cfg.Queue.Concurrency
	}

	logger := newLogger(cfg, os.Stderr, false)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	srv := queue.NewServer(redisConfig(cfg), concurrency, logger)
	logger.Info("worker starting", "redis", cfg.Queue.RedisAddr, "concurrency", concurrency)

	// Run blocks until SIGINT or SIGTERM, then waits for active tasks.
	return srv.Run(queue.NewServeMux(st, logger))
}
