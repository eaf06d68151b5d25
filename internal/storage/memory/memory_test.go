package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

func TestSequence_DistinctWithinCycle(t *testing.T) {
	const n = 9998
	gen := order.NewCodeGenerator(NewSequence(0))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]struct{}, n)
	)
	for range n {
		wg.Go(func() {
			code, err := gen.Next(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			codes[code] = struct{}{}
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Len(t, codes, n)
}

func TestSequence_Wraps(t *testing.T) {
	seq := NewSequence(order.CodeWrap - 1)

	v, err := seq.NextSequence(context.Background(), order.CodeWrap)
	require.NoError(t, err)
	assert.Equal(t, order.CodeWrap, v)

	v, err = seq.NextSequence(context.Background(), order.CodeWrap)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestClaimLedger_ConcurrentClaims(t *testing.T) {
	ledger := NewClaimLedger()
	catalog := NewProgramCatalog(voucher.Program{ID: "summer", Title: "Giảm 10% tối đa 30k"})
	svc := voucher.NewClaimService(catalog, ledger, discountspec.NewTitleParser(), voucher.NewCodeGenerator())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]struct{}{}
	)
	for range 64 {
		wg.Go(func() {
			c, err := svc.Claim(context.Background(), "summer", "cust-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			codes[c.Code] = struct{}{}
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.Len(t, codes, 1)
	held, err := ledger.ListByCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestClaimLedger_CodeScopedToCustomer(t *testing.T) {
	ledger := NewClaimLedger()
	ctx := context.Background()

	_, inserted, err := ledger.InsertIfAbsent(ctx, &coupon.Coupon{Code: "ABCD2345", CustomerID: "cust-1", ProgramID: "p1"})
	require.NoError(t, err)
	require.True(t, inserted)

	_, err = ledger.FindByCode(ctx, "cust-2", "ABCD2345")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	_, _, err = ledger.InsertIfAbsent(ctx, &coupon.Coupon{Code: "ABCD2345", CustomerID: "cust-2", ProgramID: "p1"})
	require.ErrorIs(t, err, voucher.ErrCodeTaken)

	exists, err := ledger.CodeExists(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCartStore_ReturnsCopies(t *testing.T) {
	store := NewCartStore()
	ctx := context.Background()
	orig := decimal.NewFromInt(2000)

	require.NoError(t, store.SaveItem(ctx, "cust-1", cart.Item{ID: "a", ProductID: "p1", Price: decimal.NewFromInt(1000), OriginalPrice: &orig, Quantity: 1}))

	items, err := store.Items(ctx, "cust-1")
	require.NoError(t, err)
	items[0].Quantity = 50
	*items[0].OriginalPrice = decimal.NewFromInt(1)

	again, err := store.Items(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Quantity)
	assert.True(t, decimal.NewFromInt(2000).Equal(*again[0].OriginalPrice))

	require.ErrorIs(t, store.DeleteItem(ctx, "cust-1", "missing"), cart.ErrItemNotFound)
	require.NoError(t, store.DeleteItem(ctx, "cust-1", "a"))
}

func TestProgramCatalog_ListActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)
	catalog := NewProgramCatalog(
		voucher.Program{ID: "live", StartsAt: now.Add(-time.Hour)},
		voucher.Program{ID: "future", StartsAt: now.Add(time.Hour)},
		voucher.Program{ID: "ended", ExpiresAt: &ended},
	)
	catalog.now = func() time.Time { return now }

	active, err := catalog.ListActive(context.Background(), "cust-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].ID)

	_, err = catalog.Get(context.Background(), "nope")
	require.ErrorIs(t, err, voucher.ErrProgramNotFound)
}

func TestOrderStore_RedeemsCouponOnce(t *testing.T) {
	store := NewOrderStore()
	ctx := context.Background()
	flat := &coupon.Coupon{Code: "FLAT5000", CustomerID: "cust-1", Type: coupon.DiscountFixed, Discount: decimal.NewFromInt(50000)}

	require.NoError(t, store.Append(ctx, &order.Order{CustomerID: "cust-1", OrderCode: "Order#0001", AppliedCoupon: flat}))

	err := store.Append(ctx, &order.Order{CustomerID: "cust-1", OrderCode: "Order#0002", AppliedCoupon: flat})
	require.ErrorIs(t, err, coupon.ErrCouponRedeemed)
	var vErr *coupon.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, store.Orders(), 1, "rejected order is not stored")

	require.NoError(t, store.Append(ctx, &order.Order{CustomerID: "cust-1", OrderCode: "Order#0003"}))

	spent, err := store.RedeemedCodes(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"FLAT5000": {}}, spent)

	spent, err = store.RedeemedCodes(ctx, "cust-2")
	require.NoError(t, err)
	assert.Empty(t, spent)
}
