// Package redis implements the remote order mirror and the cart store on Redis.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "checkout"

// Config configures the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds each read and write.
	Timeout time.Duration
}

// NewClient creates a client and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		parsed, err := goredis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		parsed.DialTimeout, parsed.ReadTimeout, parsed.WriteTimeout = opts.DialTimeout, opts.ReadTimeout, opts.WriteTimeout
		opts = parsed
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// keyspace builds prefixed keys.
type keyspace string

func newKeyspace(prefix string) keyspace {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keyspace(prefix)
}

func (k keyspace) key(parts ...string) string {
	return string(k) + ":" + strings.Join(parts, ":")
}
