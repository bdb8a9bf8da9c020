package mirror

import (
	"context"
	"fmt"
	"io"
	"time"

	"targetapi/pkg/models"
	"targetapi/pkg/utils/logger"

	"github.com/redis/go-redis/v9"
)

const (
	DEFAULT_CHANNEL = "targetapi:requests"
	DEFAULT_TIMEOUT = 250 * time.Millisecond
)

// RedisMirror fans rendered request dumps out over Redis pub/sub. Nothing is
// stored: subscribers that are not connected when a dump is published miss it.
type RedisMirror struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	logger  *logger.Logger
}

func NewRedisMirror(config *models.RedisConfig, logger *logger.Logger) *RedisMirror {
	channel := config.Channel
	if channel == "" {
		channel = DEFAULT_CHANNEL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisMirror{
		client:  client,
		channel: channel,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *RedisMirror) Channel() string {
	return r.channel
}

// Publish sends one block. The call is bounded by the configured timeout so a
// slow Redis never holds a request for long.
func (r *RedisMirror) Publish(ctx context.Context, block string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	receivers, err := r.client.Publish(ctx, r.channel, block).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	r.logger.Debug(fmt.Sprintf("Mirrored request dump to %d subscriber(s) on %s", receivers, r.channel))
	return nil
}

// Tail copies every mirrored block to w until ctx is cancelled.
func (r *RedisMirror) Tail(ctx context.Context, w io.Writer) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription confirmation so connection errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info(fmt.Sprintf("Tailing request dumps on %s", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := io.WriteString(w, msg.Payload); err != nil {
				return fmt.Errorf("write mirrored dump: %w", err)
			}
		}
	}
}

// Health pings Redis, bounded by the publish timeout.
func (r *RedisMirror) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisMirror) Close() error {
	return r.client.Close()
}
