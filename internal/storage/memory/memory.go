// Package memory provides in-process implementations of the domain stores.
// They back unit tests and local runs without Postgres or Redis.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

var (
	_ cart.Repository         = (*CartStore)(nil)
	_ voucher.ClaimRepository = (*ClaimLedger)(nil)
	_ voucher.ProgramCatalog  = (*ProgramCatalog)(nil)
	_ order.Repository        = (*OrderStore)(nil)
	_ order.Mirror            = (*OrderStore)(nil)
	_ order.History           = (*OrderStore)(nil)
	_ coupon.RedemptionLog    = (*OrderStore)(nil)
	_ order.SequenceStore     = (*Sequence)(nil)
)

// CartStore keeps carts and draft notes per customer.
type CartStore struct {
	mu    sync.Mutex
	items map[string][]cart.Item
	notes map[string]string
}

// NewCartStore creates an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{items: map[string][]cart.Item{}, notes: map[string]string{}}
}

func (s *CartStore) Items(_ context.Context, customerID string) ([]cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.items[customerID]
	out := make([]cart.Item, len(lines))
	for i := range lines {
		out[i] = lines[i].Clone()
	}
	return out, nil
}

func (s *CartStore) SaveItem(_ context.Context, customerID string, item cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.items[customerID]
	for i := range lines {
		if lines[i].ID == item.ID {
			lines[i] = item.Clone()
			return nil
		}
	}
	s.items[customerID] = append(lines, item.Clone())
	return nil
}

func (s *CartStore) DeleteItem(_ context.Context, customerID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.items[customerID]
	idx := slices.IndexFunc(lines, func(it cart.Item) bool { return it.ID == itemID })
	if idx < 0 {
		return cart.ErrItemNotFound
	}
	s.items[customerID] = slices.Delete(lines, idx, idx+1)
	return nil
}

func (s *CartStore) Clear(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, customerID)
	delete(s.notes, customerID)
	return nil
}

func (s *CartStore) Note(_ context.Context, customerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes[customerID], nil
}

func (s *CartStore) SetNote(_ context.Context, customerID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[customerID] = note
	return nil
}

type claimKey struct {
	customerID string
	programID  string
}

// ClaimLedger is a mutex-guarded claim ledger.
type ClaimLedger struct {
	mu     sync.Mutex
	claims map[claimKey]*coupon.Coupon
	codes  map[string]claimKey
	order  []claimKey
}

// NewClaimLedger creates an empty ClaimLedger.
func NewClaimLedger() *ClaimLedger {
	return &ClaimLedger{claims: map[claimKey]*coupon.Coupon{}, codes: map[string]claimKey{}}
}

func (l *ClaimLedger) FindByCode(_ context.Context, customerID, code string) (*coupon.Coupon, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.codes[code]
	if !ok || key.customerID != customerID {
		return nil, coupon.ErrInvalidCoupon
	}
	return l.claims[key].Clone(), nil
}

func (l *ClaimLedger) ListByCustomer(_ context.Context, customerID string) ([]coupon.Coupon, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []coupon.Coupon
	for _, key := range l.order {
		if key.customerID == customerID {
			out = append(out, *l.claims[key].Clone())
		}
	}
	return out, nil
}

func (l *ClaimLedger) FindClaim(_ context.Context, customerID, programID string) (*coupon.Coupon, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.claims[claimKey{customerID, programID}]
	if !ok {
		return nil, voucher.ErrClaimNotFound
	}
	return c.Clone(), nil
}

func (l *ClaimLedger) InsertIfAbsent(_ context.Context, c *coupon.Coupon) (*coupon.Coupon, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := claimKey{c.CustomerID, c.ProgramID}
	if existing, ok := l.claims[key]; ok {
		return existing.Clone(), false, nil
	}
	if _, ok := l.codes[c.Code]; ok {
		return nil, false, voucher.ErrCodeTaken
	}
	l.claims[key] = c.Clone()
	l.codes[c.Code] = key
	l.order = append(l.order, key)
	return c.Clone(), true, nil
}

func (l *ClaimLedger) CodeExists(_ context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.codes[code]
	return ok, nil
}

// ProgramCatalog is a static voucher program list.
type ProgramCatalog struct {
	mu       sync.RWMutex
	programs []voucher.Program
	now      func() time.Time
}

// NewProgramCatalog creates a catalog holding programs.
func NewProgramCatalog(programs ...voucher.Program) *ProgramCatalog {
	return &ProgramCatalog{programs: slices.Clone(programs), now: time.Now}
}

// Upsert adds or replaces a program.
func (c *ProgramCatalog) Upsert(p voucher.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.programs, func(q voucher.Program) bool { return q.ID == p.ID }); i >= 0 {
		c.programs[i] = p
		return
	}
	c.programs = append(c.programs, p)
}

func (c *ProgramCatalog) ListActive(_ context.Context, _ string) ([]voucher.Program, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	var out []voucher.Program
	for i := range c.programs {
		if c.programs[i].Active(now) {
			out = append(out, c.programs[i])
		}
	}
	return out, nil
}

func (c *ProgramCatalog) Get(_ context.Context, programID string) (*voucher.Program, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.programs {
		if c.programs[i].ID == programID {
			p := c.programs[i]
			return &p, nil
		}
	}
	return nil, voucher.ErrProgramNotFound
}

// OrderStore keeps committed orders and the coupons they redeemed. It also
// satisfies order.Mirror so a second instance can stand in for the remote
// store in tests.
type OrderStore struct {
	mu       sync.Mutex
	orders   []*order.Order
	redeemed map[string]string
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{redeemed: map[string]string{}}
}

// Append commits the order. An applied coupon that another order already
// redeemed rejects the whole append.
func (s *OrderStore) Append(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := o.AppliedCoupon; c != nil {
		if _, ok := s.redeemed[c.Code]; ok {
			return &coupon.ValidationError{Code: c.Code, Err: coupon.ErrCouponRedeemed}
		}
		s.redeemed[c.Code] = o.CustomerID
	}
	s.orders = append(s.orders, o.Clone())
	return nil
}

// Mirror stores a replica without redemption checks.
func (s *OrderStore) Mirror(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o.Clone())
	return nil
}

func (s *OrderStore) RedeemedCodes(_ context.Context, customerID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for code, owner := range s.redeemed {
		if owner == customerID {
			out[code] = struct{}{}
		}
	}
	return out, nil
}

func (s *OrderStore) ListByCustomer(_ context.Context, customerID string, limit int) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for i := len(s.orders) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.orders[i].CustomerID == customerID {
			out = append(out, *s.orders[i].Clone())
		}
	}
	return out, nil
}

// Orders returns copies of the stored orders, oldest first.
func (s *OrderStore) Orders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// Sequence is a process-local order counter.
type Sequence struct {
	mu    sync.Mutex
	value int
}

// NewSequence creates a counter starting at value.
func NewSequence(value int) *Sequence {
	return &Sequence{value: value}
}

func (s *Sequence) NextSequence(_ context.Context, wrap int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = s.value%wrap + 1
	return s.value, nil
}
