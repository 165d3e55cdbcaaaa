// Package cache provides the optional Redis connection shared by API replicas.
//
// Rentwise uses Redis only for short-lived WebSocket tickets, so a ticket
// minted by one replica can be redeemed on another. When Redis is disabled
// the API falls back to an in-process ticket store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
	poolSize    = 10
)

// ErrDisabled is returned by Connect when Redis is turned off in config.
var ErrDisabled = errors.New("cache: redis disabled in configuration")

// Client wraps a go-redis client.
type Client struct {
	*redis.Client
}

// Connect dials Redis and verifies it with a PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolSize:     poolSize,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Client{Client: rdb}, nil
}

// HealthCheck pings Redis.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("closing redis: %w", err)
	}
	return nil
}
