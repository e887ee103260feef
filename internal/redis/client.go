package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ConnectTimeout bounds the startup ping.
const ConnectTimeout = 3 * time.Second

// Client wraps the shared Redis client used by the feed cache and the event stream.
type Client struct {
	*redis.Client
}

// Connect parses redisURL, opens a client and pings it.
// URL format: redis://[:password@]host:port[/db]
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.Client.Close()
		return nil, err
	}

	log.Infof("[Redis] Connected: addr=%s db=%d", opts.Addr, opts.DB)
	return c, nil
}

// Ping verifies the connection to Redis.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
