// Package queue moves last-used updates through Redis with asynq so that a
// separate `dandi worker` process can apply them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// RedisConfig addresses the Redis instance backing the queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) clientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues usage tasks. It satisfies usage.Toucher and is meant to
// run behind a usage.Dispatcher, never on the request path.
type Client struct {
	client enqueuer
	logger *slog.Logger
}

func NewClient(cfg RedisConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: asynq.NewClient(cfg.clientOpt()),
		logger: logger,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// TouchAPIKey enqueues an apikey:touch task for the worker to apply.
func (c *Client) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	if err := c.EnqueueAPIKeyTouch(ctx, APIKeyTouchPayload{KeyID: id, UsedAt: at.UTC()}); err != nil {
		return err
	}
	c.logger.Debug("enqueued api key touch", "key_id", id)
	return nil
}

func (c *Client) EnqueueAPIKeyTouch(ctx context.Context, payload APIKeyTouchPayload) error {
	return c.enqueue(ctx, TypeAPIKeyTouch, payload, asynq.MaxRetry(3), asynq.Timeout(30*time.Second))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
