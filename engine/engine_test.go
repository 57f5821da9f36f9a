package engine

import (
	"context"
	"errors"
	"testing"

	"njmart/models"
	"njmart/persist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	couponResult models.CouponResult
	couponErr    error
	submitResult models.SubmitResult
	submitErr    error

	validateCalls int
	submitCalls   int
	lastSubmitted models.OrderRequest
}

func (m *mockBackend) ValidateCoupon(_ context.Context, _ string) (models.CouponResult, error) {
	m.validateCalls++
	return m.couponResult, m.couponErr
}

func (m *mockBackend) SubmitOrder(_ context.Context, req models.OrderRequest) (models.SubmitResult, error) {
	m.submitCalls++
	m.lastSubmitted = req
	return m.submitResult, m.submitErr
}

func newTestEngine(backend Backend) (*Engine, *persist.MemoryStore) {
	store := persist.NewMemoryStore()
	if backend == nil {
		backend = &mockBackend{}
	}
	e := New(store, backend, DefaultDeliveryPolicy, KeysFor("u1"))
	return e, store
}

func apple() models.Product {
	return models.Product{ProductID: "p1", Name: "Apples", Price: 100, Category: "fruit"}
}

func rice() models.Product {
	return models.Product{ProductID: "p2", Name: "Rice 5kg", Price: 350}
}

func TestGetCartStartsEmpty(t *testing.T) {
	e, _ := newTestEngine(nil)
	cart := e.GetCart(context.Background())
	assert.Empty(t, cart.Lines)
	assert.Zero(t, cart.Totals.GrandTotal)
	assert.Nil(t, cart.Coupon)
}

func TestGetCartIgnoresCorruptSnapshot(t *testing.T) {
	store := persist.NewMemoryStore()
	keys := KeysFor("u1")
	require.NoError(t, store.Save(context.Background(), keys.Cart, "{not json"))

	e := New(store, &mockBackend{}, DefaultDeliveryPolicy, keys)
	cart := e.GetCart(context.Background())
	assert.Empty(t, cart.Lines)
}

func TestAddItemMergesByProductID(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	e.AddItem(ctx, apple(), 2)
	cart := e.AddItem(ctx, apple(), 3)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p1", cart.Lines[0].ProductID)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 500.0, cart.Totals.Subtotal)
}

func TestAddItemCoercesQuantityToOne(t *testing.T) {
	e, _ := newTestEngine(nil)
	cart := e.AddItem(context.Background(), apple(), -3)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestAddItemPreservesInsertionOrder(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, rice(), 1)
	e.AddItem(ctx, apple(), 1)
	cart := e.AddItem(ctx, rice(), 1)

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "p2", cart.Lines[0].ProductID)
	assert.Equal(t, "p1", cart.Lines[1].ProductID)
}

func TestSubtotalIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)
	e.AddItem(ctx, rice(), 1)
	e.SetItemQuantity(ctx, "p1", 4)
	e.RemoveItem(ctx, "p2")

	first := e.GetCart(ctx)
	second := e.GetCart(ctx)
	assert.Equal(t, 400.0, first.Totals.Subtotal)
	assert.Equal(t, first.Totals, second.Totals)
}

func TestSetItemQuantityZeroRemovesLine(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)

	cart := e.SetItemQuantity(ctx, "p1", 0)
	assert.Empty(t, cart.Lines)
	assert.Zero(t, cart.Totals.Subtotal)
}

func TestSetItemQuantityUnknownProductIsNoOp(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)

	cart := e.SetItemQuantity(ctx, "missing", 7)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestRemoveItemUnknownProductIsNoOp(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)
	cart := e.RemoveItem(ctx, "missing")
	assert.Len(t, cart.Lines, 1)
}

func TestDeliveryFeeBoundary(t *testing.T) {
	cases := []struct {
		subtotal float64
		fee      float64
	}{
		{0, 0},
		{498, 20},
		{499, 0},
		{500, 0},
	}
	for _, tc := range cases {
		got := ComputeDeliveryFee(tc.subtotal, 499, 20)
		assert.Equalf(t, tc.fee, got, "subtotal %v", tc.subtotal)
	}
}

func TestCartPersistsAcrossEngines(t *testing.T) {
	store := persist.NewMemoryStore()
	keys := KeysFor("u1")
	ctx := context.Background()

	first := New(store, &mockBackend{}, DefaultDeliveryPolicy, keys)
	first.AddItem(ctx, apple(), 3)

	second := New(store, &mockBackend{}, DefaultDeliveryPolicy, keys)
	cart := second.GetCart(ctx)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, 300.0, cart.Totals.Subtotal)
}

func TestPersistenceFailureDoesNotAbortMutation(t *testing.T) {
	store := persist.NewMemoryStore()
	store.FailWrites = true
	e := New(store, &mockBackend{}, DefaultDeliveryPolicy, KeysFor("u1"))

	cart := e.AddItem(context.Background(), apple(), 2)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 200.0, cart.Totals.Subtotal)
}

func TestApplyCouponClampsToSubtotal(t *testing.T) {
	backend := &mockBackend{couponResult: models.CouponResult{Valid: true, DiscountAmount: 1000}}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, models.Product{ProductID: "p3", Name: "Tea", Price: 300}, 1)

	coupon, err := e.ApplyCoupon(ctx, "  SAVE1000 ")
	require.NoError(t, err)
	assert.Equal(t, "save1000", coupon.Code)

	cart := e.GetCart(ctx)
	assert.Equal(t, 300.0, cart.Totals.Discount)
	// below threshold so the 20 fee applies, then the floor at 0 wins:
	// 300 + 20 - 300 = 20
	assert.Equal(t, 20.0, cart.Totals.GrandTotal)
}

func TestApplyCouponGrandTotalFloorsAtZero(t *testing.T) {
	backend := &mockBackend{couponResult: models.CouponResult{Valid: true, DiscountAmount: 600}}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, models.Product{ProductID: "p4", Name: "Ghee", Price: 600}, 1)

	_, err := e.ApplyCoupon(ctx, "save600")
	require.NoError(t, err)

	cart := e.GetCart(ctx)
	// subtotal 600 is above threshold: no fee, full discount, floored total
	assert.Equal(t, 600.0, cart.Totals.Discount)
	assert.Equal(t, 0.0, cart.Totals.GrandTotal)
}

func TestApplyCouponEmptyCodeIsValidationError(t *testing.T) {
	backend := &mockBackend{}
	e, _ := newTestEngine(backend)

	_, err := e.ApplyCoupon(context.Background(), "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, backend.validateCalls, "no remote call for a local validation failure")
}

func TestApplyCouponRejectionLeavesCouponUntouched(t *testing.T) {
	backend := &mockBackend{couponResult: models.CouponResult{Valid: true, DiscountAmount: 50}}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)

	_, err := e.ApplyCoupon(ctx, "good")
	require.NoError(t, err)

	backend.couponResult = models.CouponResult{Valid: false, Reason: "expired"}
	_, err = e.ApplyCoupon(ctx, "bad")
	var rej *BusinessRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, KindInvalidCode, rej.Kind)

	cart := e.GetCart(ctx)
	require.NotNil(t, cart.Coupon)
	assert.Equal(t, "good", cart.Coupon.Code)
}

func TestApplyCouponTransportError(t *testing.T) {
	backend := &mockBackend{couponErr: errors.New("connection refused")}
	e, _ := newTestEngine(backend)

	_, err := e.ApplyCoupon(context.Background(), "save10")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindNetworkError, terr.ErrorKind())
}

func TestRemoveCoupon(t *testing.T) {
	backend := &mockBackend{couponResult: models.CouponResult{Valid: true, DiscountAmount: 50}}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)
	_, err := e.ApplyCoupon(ctx, "save50")
	require.NoError(t, err)

	cart := e.RemoveCoupon(ctx)
	assert.Nil(t, cart.Coupon)
	assert.Zero(t, cart.Totals.Discount)
}

func TestBuildOrderRequestEmptyCart(t *testing.T) {
	backend := &mockBackend{}
	e, _ := newTestEngine(backend)

	_, err := e.BuildOrderRequest(context.Background(), models.Customer{Ref: "9999", Address: "Main St"}, models.PaymentCOD)
	var serr *StateError
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, backend.submitCalls)
}

func TestBuildOrderRequestIncompleteProfile(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)

	_, err := e.BuildOrderRequest(ctx, models.Customer{Ref: "9999"}, models.PaymentCOD)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestBuildOrderRequestSnapshotIsolation(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)

	req, err := e.BuildOrderRequest(ctx, models.Customer{Ref: "9999", Address: "Main St"}, models.PaymentUPI)
	require.NoError(t, err)
	require.Len(t, req.Items, 1)
	assert.NotEmpty(t, req.ClientOrderID)

	e.AddItem(ctx, rice(), 5)
	e.SetItemQuantity(ctx, "p1", 9)

	assert.Len(t, req.Items, 1)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, 200.0, req.Subtotal)
}

func TestBuildOrderRequestMintsFreshClientOrderID(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)
	cust := models.Customer{Ref: "9999", Address: "Main St"}

	first, err := e.BuildOrderRequest(ctx, cust, models.PaymentCOD)
	require.NoError(t, err)
	second, err := e.BuildOrderRequest(ctx, cust, models.PaymentCOD)
	require.NoError(t, err)
	assert.NotEqual(t, first.ClientOrderID, second.ClientOrderID)
}

func TestSubmitOrderSuccessClearsCartOnce(t *testing.T) {
	backend := &mockBackend{
		couponResult: models.CouponResult{Valid: true, DiscountAmount: 10},
		submitResult: models.SubmitResult{Accepted: true, OrderID: "ORD123"},
	}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 1)
	_, err := e.ApplyCoupon(ctx, "save10")
	require.NoError(t, err)

	req, err := e.BuildOrderRequest(ctx, models.Customer{Ref: "9999", Address: "Main St"}, models.PaymentCOD)
	require.NoError(t, err)

	res, err := e.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ORD123", res.OrderID)
	assert.Equal(t, req.ClientOrderID, backend.lastSubmitted.ClientOrderID)

	cart := e.GetCart(ctx)
	assert.Empty(t, cart.Lines)
	assert.Nil(t, cart.Coupon)
}

func TestSubmitOrderRejectionLeavesCartUntouched(t *testing.T) {
	backend := &mockBackend{submitResult: models.SubmitResult{Accepted: false, Reason: "out of stock"}}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)
	before := e.GetCart(ctx)

	req, err := e.BuildOrderRequest(ctx, models.Customer{Ref: "9999", Address: "Main St"}, models.PaymentCOD)
	require.NoError(t, err)

	_, err = e.SubmitOrder(ctx, req)
	var rej *BusinessRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, KindOrderRefused, rej.Kind)
	assert.Equal(t, "out of stock", rej.Reason)

	assert.Equal(t, before, e.GetCart(ctx))
}

func TestSubmitOrderTransportErrorLeavesCartUntouched(t *testing.T) {
	backend := &mockBackend{submitErr: errors.New("timeout")}
	e, _ := newTestEngine(backend)
	ctx := context.Background()
	e.AddItem(ctx, apple(), 2)
	before := e.GetCart(ctx)

	req, err := e.BuildOrderRequest(ctx, models.Customer{Ref: "9999", Address: "Main St"}, models.PaymentCOD)
	require.NoError(t, err)

	_, err = e.SubmitOrder(ctx, req)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, KindTransportError, terr.ErrorKind())
	assert.Equal(t, before, e.GetCart(ctx))

	// retrying resubmits the same ClientOrderID
	backend.submitErr = nil
	backend.submitResult = models.SubmitResult{Accepted: true, OrderID: "ORD9"}
	_, err = e.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.ClientOrderID, backend.lastSubmitted.ClientOrderID)
}

func TestProfileRoundTrip(t *testing.T) {
	e, _ := newTestEngine(nil)
	ctx := context.Background()

	_, ok := e.Profile(ctx)
	assert.False(t, ok)

	e.SaveProfile(ctx, models.Customer{Ref: "9999", Name: "Asha", Address: "Main St"})
	got, ok := e.Profile(ctx)
	require.True(t, ok)
	assert.Equal(t, "Asha", got.Name)
}
