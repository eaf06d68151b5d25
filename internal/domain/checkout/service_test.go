package checkout_test

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/voucher-checkout/internal/discountspec"
	"github.com/xenking/voucher-checkout/internal/domain/cart"
	"github.com/xenking/voucher-checkout/internal/domain/checkout"
	"github.com/xenking/voucher-checkout/internal/domain/coupon"
	"github.com/xenking/voucher-checkout/internal/domain/order"
	"github.com/xenking/voucher-checkout/internal/domain/payment"
	"github.com/xenking/voucher-checkout/internal/domain/shipping"
	"github.com/xenking/voucher-checkout/internal/domain/voucher"
	"github.com/xenking/voucher-checkout/internal/storage/memory"
)

type fixture struct {
	carts    *cart.Service
	cartRepo *memory.CartStore
	claims   *voucher.ClaimService
	orders   *memory.OrderStore
	mirror   *memory.OrderStore
	asm      *order.Assembler
	svc      *checkout.Service
}

func newFixture(t *testing.T, orders order.Repository) *fixture {
	t.Helper()

	cartRepo := memory.NewCartStore()
	ledger := memory.NewClaimLedger()
	catalog := memory.NewProgramCatalog(
		voucher.Program{ID: "ten", Title: "Giảm 10%", MinOrder: decimal.NewFromInt(1000000)},
		voucher.Program{ID: "flat", Title: "Giảm 50.000đ"},
	)
	local := memory.NewOrderStore()
	if orders == nil {
		orders = local
	}
	mirror := memory.NewOrderStore()

	resolver := shipping.NewResolver(shipping.NewStaticCatalog(shipping.DefaultMethods()...), decimal.NewFromInt(500000))
	asm := order.NewAssembler(
		resolver,
		payment.NewStaticCatalog(payment.DefaultMethods()...),
		order.NewCodeGenerator(memory.NewSequence(0)),
		orders,
		mirror,
	)
	carts := cart.NewService(cartRepo)

	return &fixture{
		carts:    carts,
		cartRepo: cartRepo,
		claims:   voucher.NewClaimService(catalog, ledger, discountspec.NewTitleParser(), voucher.NewCodeGenerator()),
		orders:   local,
		mirror:   mirror,
		asm:      asm,
		svc:      checkout.NewService(carts, coupon.NewRepoValidator(ledger, local), resolver, asm),
	}
}

func (f *fixture) addItem(t *testing.T, productID string, price int64, qty int, inStock bool) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), "cust-1", cart.AddItemRequest{
		ProductID: productID,
		Name:      productID,
		Price:     decimal.NewFromInt(price),
		Quantity:  qty,
		InStock:   inStock,
	})
	require.NoError(t, err)
}

func (f *fixture) claim(t *testing.T, programID string) *coupon.Coupon {
	t.Helper()
	c, err := f.claims.Claim(context.Background(), programID, "cust-1")
	require.NoError(t, err)
	return c
}

func placeRequest(code string) checkout.PlaceOrderRequest {
	return checkout.PlaceOrderRequest{
		CustomerID:     "cust-1",
		CouponCode:     code,
		ShippingMethod: shipping.MethodStandard,
		PaymentMethod:  payment.MethodCOD,
		Contact:        order.Contact{Name: "Trần Thị B", Phone: "0912345678"},
		Address:        order.Address{Street: "12 Nguyễn Huệ", City: "Hồ Chí Minh"},
	}
}

func TestPlaceOrder_PercentageCouponAboveThreshold(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addItem(t, "p1", 600000, 2, true)
	c := f.claim(t, "ten")
	require.NoError(t, f.carts.SetNote(ctx, "cust-1", "gọi trước khi giao"))

	o, err := f.svc.PlaceOrder(ctx, placeRequest(c.Code))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1200000).Equal(o.Summary.Subtotal))
	assert.True(t, decimal.NewFromInt(120000).Equal(o.Summary.CouponDiscount))
	assert.True(t, o.Summary.ShippingFee.IsZero())
	assert.True(t, decimal.NewFromInt(1080000).Equal(o.Summary.Total))
	assert.Equal(t, "gọi trước khi giao", o.Note)
	require.NotNil(t, o.AppliedCoupon)
	assert.Equal(t, c.Code, o.AppliedCoupon.Code)

	items, err := f.carts.Items(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, items, "cart cleared after commit")
	note, err := f.carts.Note(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, note)

	require.NoError(t, f.asm.Drain(ctx))
	require.Len(t, f.mirror.Orders(), 1)
	assert.Equal(t, o.OrderCode, f.mirror.Orders()[0].OrderCode)
}

func TestPlaceOrder_CouponBelowMinimumIsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "p1", 400000, 2, true)
	c := f.claim(t, "ten")

	_, err := f.svc.ApplyCoupon(context.Background(), "cust-1", c.Code)
	require.ErrorIs(t, err, coupon.ErrMinOrderNotMet)

	o, err := f.svc.PlaceOrder(context.Background(), placeRequest(c.Code))
	require.NoError(t, err)
	assert.True(t, o.Summary.CouponDiscount.IsZero())
	assert.Nil(t, o.AppliedCoupon)
	assert.True(t, decimal.NewFromInt(800000).Equal(o.Summary.Total))
}

func TestPlaceOrder_CouponIsSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	flat := f.claim(t, "flat")

	f.addItem(t, "p1", 300000, 1, true)
	first, err := f.svc.PlaceOrder(ctx, placeRequest(flat.Code))
	require.NoError(t, err)
	require.NotNil(t, first.AppliedCoupon)

	f.addItem(t, "p2", 300000, 1, true)
	_, err = f.svc.ApplyCoupon(ctx, "cust-1", flat.Code)
	require.ErrorIs(t, err, coupon.ErrCouponRedeemed)

	_, err = f.svc.PlaceOrder(ctx, placeRequest(flat.Code))
	require.ErrorIs(t, err, coupon.ErrCouponRedeemed)
	var vErr *coupon.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, f.orders.Orders(), 1)

	items, err := f.carts.Items(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "cart survives a rejected coupon")

	_, ok, err := f.svc.BestCoupon(ctx, "cust-1")
	require.NoError(t, err)
	assert.False(t, ok, "spent coupon is not offered again")
}

// redeemRace lets a second order spend the coupon between lookup and commit.
type redeemRace struct {
	*memory.OrderStore
	rival *order.Order
}

func (r redeemRace) Append(ctx context.Context, o *order.Order) error {
	if r.rival != nil {
		if err := r.OrderStore.Append(ctx, r.rival); err != nil {
			return err
		}
	}
	return r.OrderStore.Append(ctx, o)
}

func TestPlaceOrder_ConcurrentRedemptionRejected(t *testing.T) {
	store := memory.NewOrderStore()
	race := redeemRace{OrderStore: store}
	f := newFixture(t, &race)
	flat := f.claim(t, "flat")
	race.rival = &order.Order{CustomerID: "cust-1", OrderCode: "Order#9000", AppliedCoupon: flat}

	f.addItem(t, "p1", 300000, 1, true)
	_, err := f.svc.PlaceOrder(context.Background(), placeRequest(flat.Code))
	require.ErrorIs(t, err, coupon.ErrCouponRedeemed)
	assert.Len(t, store.Orders(), 1, "only the rival order committed")
}

func TestPlaceOrder_UnknownCouponRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "p1", 1000, 1, true)

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest("NOPE1234"))
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)

	var vErr *coupon.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, f.orders.Orders())
}

func TestPlaceOrder_OutOfStockKeepsCart(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "p1", 1000, 1, true)
	f.addItem(t, "p2", 1000, 1, false)

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest(""))
	require.ErrorIs(t, err, order.ErrOutOfStock)

	items, err := f.carts.Items(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

type failingOrders struct{}

func (failingOrders) Append(context.Context, *order.Order) error {
	return errors.New("write failed")
}

func TestPlaceOrder_StorageErrorKeepsCart(t *testing.T) {
	f := newFixture(t, failingOrders{})
	f.addItem(t, "p1", 1000, 1, true)

	_, err := f.svc.PlaceOrder(context.Background(), placeRequest(""))
	var sErr *order.StorageError
	require.ErrorAs(t, err, &sErr)

	items, err := f.carts.Items(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "cart must survive a failed commit")

	require.NoError(t, f.asm.Drain(context.Background()))
	assert.Empty(t, f.mirror.Orders())
}

func TestPlaceOrder_NoteOverride(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "p1", 1000, 1, true)
	require.NoError(t, f.carts.SetNote(context.Background(), "cust-1", "draft"))

	req := placeRequest("")
	override := "final"
	req.Note = &override
	o, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "final", o.Note)
}

func TestBestCoupon(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.addItem(t, "p1", 600000, 2, true)
	ten := f.claim(t, "ten")
	f.claim(t, "flat")

	best, ok, err := f.svc.BestCoupon(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ten.Code, best.Coupon.Code)
	assert.True(t, decimal.NewFromInt(120000).Equal(best.Savings))

	_, err = f.carts.UpdateQuantity(ctx, "cust-1", mustItemID(t, f), 1)
	require.NoError(t, err)

	best, ok, err = f.svc.BestCoupon(ctx, "cust-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(50000).Equal(best.Savings), "percentage coupon no longer eligible")
}

func TestQuoteShipping(t *testing.T) {
	f := newFixture(t, nil)
	f.addItem(t, "p1", 100000, 1, true)

	q, subtotal, err := f.svc.QuoteShipping(context.Background(), "cust-1", shipping.MethodStandard)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100000).Equal(subtotal))
	assert.True(t, decimal.NewFromInt(30000).Equal(q.Fee))
	assert.Equal(t, "3-5 days", q.Method.Duration)

	_, _, err = f.svc.QuoteShipping(context.Background(), "cust-1", "teleport")
	require.ErrorIs(t, err, shipping.ErrUnknownMethod)
}

func mustItemID(t *testing.T, f *fixture) string {
	t.Helper()
	items, err := f.cartRepo.Items(context.Background(), "cust-1")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	return items[0].ID
}
