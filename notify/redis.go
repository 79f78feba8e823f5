package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the base pub/sub channel name. Every event also
// goes to the component-scoped channel <base>:<component> so a subscriber
// can watch only parser completions (the portal's cache refresh trigger)
// without filtering collector noise.
const DefaultRedisChannel = "estado:job_completed"

// redisPublishTimeout bounds one PUBLISH attempt.
const redisPublishTimeout = 5 * time.Second

// RedisConfig configures the Redis pub/sub notifier.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the base pub/sub channel (default DefaultRedisChannel).
	Channel string
	// Retries is the per-event retry budget (default DefaultRetries).
	Retries int
}

// Redis publishes job events via Redis PUBLISH, retrying connection
// failures on the shared schedule.
type Redis struct {
	config RedisConfig
	client *goredis.Client
}

// NewRedis creates a Redis pub/sub notifier from the given config.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis notifier requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis notifier: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Redis{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the event to the base channel and to the component-scoped
// channel. Both publishes share one attempt so subscribers of either see
// the event exactly as often.
func (r *Redis) Publish(ctx context.Context, event *JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	channels := []string{r.config.Channel}
	if event.Component != "" {
		channels = append(channels, r.config.Channel+":"+event.Component)
	}

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
		defer cancel()

		pipe := r.client.Pipeline()
		for _, ch := range channels {
			pipe.Publish(attemptCtx, ch, body)
		}
		_, err := pipe.Exec(attemptCtx)
		return err
	}
	if err := backoff.Retry(op, retryPolicy(ctx, r.config.Retries)); err != nil {
		return fmt.Errorf("redis: publish job %s: %w", event.JobID, err)
	}
	return nil
}

// Close releases the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Verify Redis implements Notifier.
var _ Notifier = (*Redis)(nil)
