package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/storage/memory"
	"github.com/xenking/voucher-checkout/internal/storage/redis"
	"github.com/xenking/voucher-checkout/pkg/health"
)

// sessionStores are the stores that live in Redis when it is enabled.
type sessionStores struct {
	carts cart.Repository
	// mirror is nil when orders are kept in Postgres only.
	mirror order.Mirror
	close  func() error
}

func (s *sessionStores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openSessionStores connects to Redis and registers its readiness check.
// With Redis disabled carts are process-local and orders are not mirrored.
func openSessionStores(
	ctx context.Context,
	lg *zap.Logger,
	cfg RedisConfig,
	timeout time.Duration,
	hs *health.Health,
) (*sessionStores, error) {
	if !cfg.Enabled {
		lg.Warn("Redis disabled, carts are process-local and orders are not mirrored")
		return &sessionStores{carts: memory.NewCartStore()}, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}

	hs.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return &sessionStores{
		carts:  redis.NewCartStore(client, cfg.Prefix, cfg.CartTTL),
		mirror: redis.NewOrderMirror(client, cfg.Prefix, cfg.MirrorTTL),
		close:  client.Close,
	}, nil
}
