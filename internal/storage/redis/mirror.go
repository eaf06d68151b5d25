package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/voucher-checkout/internal/domain/order"
)

// recentOrders caps the per-customer order index.
const recentOrders = 100

var _ order.Mirror = (*OrderMirror)(nil)

// OrderMirror keeps a best-effort durable copy of committed orders.
// Each order is stored under its ID and indexed in a per-customer list.
type OrderMirror struct {
	client goredis.Cmdable
	keys   keyspace
	ttl    time.Duration
}

// NewOrderMirror creates an OrderMirror. A zero ttl keeps orders forever.
func NewOrderMirror(client goredis.Cmdable, prefix string, ttl time.Duration) *OrderMirror {
	return &OrderMirror{client: client, keys: newKeyspace(prefix), ttl: ttl}
}

// Mirror writes the order and its index entry in one transaction.
func (m *OrderMirror) Mirror(ctx context.Context, o *order.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}

	id := o.ID.String()
	index := m.keys.key("orders", o.CustomerID)
	_, err = m.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, m.keys.key("order", id), payload, m.ttl)
		p.LPush(ctx, index, id)
		p.LTrim(ctx, index, 0, recentOrders-1)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "mirror order %s", o.OrderCode)
	}
	return nil
}

// Get reads a mirrored order back by ID. ok is false if it is not mirrored.
func (m *OrderMirror) Get(ctx context.Context, id string) (_ *order.Order, ok bool, _ error) {
	raw, err := m.client.Get(ctx, m.keys.key("order", id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get order %s", id)
	}
	var o order.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false, errors.Wrapf(err, "decode order %s", id)
	}
	return &o, true, nil
}
