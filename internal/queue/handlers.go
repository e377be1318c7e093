package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Toucher is the store capability the worker writes through.
type Toucher interface {
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// TouchHandler applies apikey:touch tasks to the store.
type TouchHandler struct {
	store  Toucher
	logger *slog.Logger
}

func NewTouchHandler(store Toucher, logger *slog.Logger) *TouchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TouchHandler{store: store, logger: logger}
}

// ProcessTask decodes the payload and advances the key's last-used time.
// Malformed payloads are not retried.
func (h *TouchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p APIKeyTouchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.KeyID == "" {
		return fmt.Errorf("missing key_id: %w", asynq.SkipRetry)
	}

	if err := h.store.TouchAPIKey(ctx, p.KeyID, p.UsedAt); err != nil {
		return fmt.Errorf("touch api key %s: %w", p.KeyID, err)
	}
	h.logger.Debug("recorded api key usage", "key_id", p.KeyID, "used_at", p.UsedAt)
	return nil
}

// NewServeMux routes every task type this package defines.
func NewServeMux(store Toucher, logger *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeAPIKeyTouch, asynq.HandlerFunc(NewTouchHandler(store, logger).ProcessTask))
	return mux
}

// NewServer builds the asynq server run by `dandi worker`.
func NewServer(cfg RedisConfig, concurrency int, logger *slog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return asynq.NewServer(
		cfg.clientOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: slogAdapter{logger},
		},
	)
}

// slogAdapter routes asynq's internal logging through slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
