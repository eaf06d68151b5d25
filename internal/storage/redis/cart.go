package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
)

var _ cart.Repository = (*CartStore)(nil)

// CartStore keeps each customer's cart in three keys: a hash of lines, a
// sorted set that preserves insertion order, and the draft note.
type CartStore struct {
	client goredis.Cmdable
	keys   keyspace
	ttl    time.Duration
	now    func() time.Time
}

// NewCartStore creates a CartStore. Carts expire ttl after their last change;
// a zero ttl keeps them forever.
func NewCartStore(client goredis.Cmdable, prefix string, ttl time.Duration) *CartStore {
	return &CartStore{client: client, keys: newKeyspace(prefix), ttl: ttl, now: time.Now}
}

type cartItemRecord struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Quantity      int              `json:"quantity"`
	InStock       bool             `json:"in_stock"`
	MaxQuantity   int              `json:"max_quantity,omitempty"`
}

func (s *CartStore) linesKey(customerID string) string { return s.keys.key("cart", customerID, "lines") }
func (s *CartStore) orderKey(customerID string) string { return s.keys.key("cart", customerID, "order") }
func (s *CartStore) noteKey(customerID string) string  { return s.keys.key("cart", customerID, "note") }

// Items returns the lines in the order they were first added.
func (s *CartStore) Items(ctx context.Context, customerID string) ([]cart.Item, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(customerID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read cart order")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := s.client.HMGet(ctx, s.linesKey(customerID), ids...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read cart lines")
	}
	items := make([]cart.Item, 0, len(raw))
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			// Index entry without a line, left by an interrupted delete.
			continue
		}
		var rec cartItemRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, errors.Wrapf(err, "decode cart line %s", ids[i])
		}
		items = append(items, cart.Item{
			ID:            rec.ID,
			ProductID:     rec.ProductID,
			Name:          rec.Name,
			Price:         rec.Price,
			OriginalPrice: rec.OriginalPrice,
			Quantity:      rec.Quantity,
			InStock:       rec.InStock,
			MaxQuantity:   rec.MaxQuantity,
		})
	}
	return items, nil
}

// SaveItem inserts or replaces a line, keeping its original position.
func (s *CartStore) SaveItem(ctx context.Context, customerID string, item cart.Item) error {
	payload, err := json.Marshal(cartItemRecord{
		ID:            item.ID,
		ProductID:     item.ProductID,
		Name:          item.Name,
		Price:         item.Price,
		OriginalPrice: item.OriginalPrice,
		Quantity:      item.Quantity,
		InStock:       item.InStock,
		MaxQuantity:   item.MaxQuantity,
	})
	if err != nil {
		return errors.Wrap(err, "encode cart line")
	}

	lines, order := s.linesKey(customerID), s.orderKey(customerID)
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, lines, item.ID, payload)
		p.ZAddNX(ctx, order, goredis.Z{Score: float64(s.now().UnixNano()), Member: item.ID})
		s.touch(ctx, p, lines, order, s.noteKey(customerID))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "save cart line")
	}
	return nil
}

// DeleteItem removes a line. Missing lines yield cart.ErrItemNotFound.
func (s *CartStore) DeleteItem(ctx context.Context, customerID, itemID string) error {
	var removed *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		removed = p.HDel(ctx, s.linesKey(customerID), itemID)
		p.ZRem(ctx, s.orderKey(customerID), itemID)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	if removed.Val() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Clear drops the lines, their order and the note.
func (s *CartStore) Clear(ctx context.Context, customerID string) error {
	err := s.client.Del(ctx, s.linesKey(customerID), s.orderKey(customerID), s.noteKey(customerID)).Err()
	if err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// Note returns the draft note, empty if unset.
func (s *CartStore) Note(ctx context.Context, customerID string) (string, error) {
	note, err := s.client.Get(ctx, s.noteKey(customerID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read note")
	}
	return note, nil
}

// SetNote replaces the draft note.
func (s *CartStore) SetNote(ctx context.Context, customerID, note string) error {
	if err := s.client.Set(ctx, s.noteKey(customerID), note, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "save note")
	}
	return nil
}

// touch refreshes the TTL of every cart key. EXPIRE on a missing key is a
// no-op, so an unset note stays unset.
func (s *CartStore) touch(ctx context.Context, p goredis.Pipeliner, keys ...string) {
	if s.ttl <= 0 {
		return
	}
	for _, k := range keys {
		p.Expire(ctx, k, s.ttl)
	}
}
