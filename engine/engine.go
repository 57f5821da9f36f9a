package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"njmart/models"
	"njmart/persist"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Backend is the remote catalog/order service as seen by the engine. A nil
// error with a negative verdict is a business rejection; a non-nil error is a
// transport fault.
type Backend interface {
	ValidateCoupon(ctx context.Context, code string) (models.CouponResult, error)
	SubmitOrder(ctx context.Context, req models.OrderRequest) (models.SubmitResult, error)
}

// Keys are the persistence keys for one customer session.
type Keys struct {
	Cart    string
	Coupon  string
	Profile string
}

// KeysFor returns the conventional keys for a user, matching the original
// client's nj_cart / nj_coupon / nj_profile storage keys.
func KeysFor(userID string) Keys {
	return Keys{
		Cart:    "nj_cart:" + userID,
		Coupon:  "nj_coupon:" + userID,
		Profile: "nj_profile:" + userID,
	}
}

// Engine owns the authoritative cart for one customer session. All mutations
// are serialized; the persisted mirror has no independent authority and a
// failed write never fails the mutation.
type Engine struct {
	mu      sync.Mutex
	store   persist.Store
	backend Backend
	policy  DeliveryPolicy
	keys    Keys
	cart    *models.Cart // nil until first access
}

func New(store persist.Store, backend Backend, policy DeliveryPolicy, keys Keys) *Engine {
	return &Engine{
		store:   store,
		backend: backend,
		policy:  policy,
		keys:    keys,
	}
}

// GetCart returns the current cart, loading the persisted snapshot on first
// access. Absent or unparseable data yields an empty cart; GetCart never fails.
func (e *Engine) GetCart(ctx context.Context) models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(ctx)
}

// AddItem merges quantity into an existing line for the product or appends a
// new line at the end. Quantities below 1 are coerced to 1.
func (e *Engine) AddItem(ctx context.Context, p models.Product, quantity int) models.Cart {
	if quantity < 1 {
		quantity = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)

	merged := false
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == p.ProductID {
			cart.Lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Lines = append(cart.Lines, models.CartLine{
			ProductID: p.ProductID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  quantity,
			ImageURL:  p.ImageURL,
			Category:  p.Category,
		})
	}

	recompute(cart, e.policy)
	e.persistLocked(ctx)
	return e.snapshotLocked(ctx)
}

// SetItemQuantity sets a line's quantity exactly. A quantity <= 0 removes the
// line; an unknown product is a benign no-op.
func (e *Engine) SetItemQuantity(ctx context.Context, productID string, quantity int) models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)

	for i := range cart.Lines {
		if cart.Lines[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		} else {
			cart.Lines[i].Quantity = quantity
		}
		recompute(cart, e.policy)
		e.persistLocked(ctx)
		break
	}
	return e.snapshotLocked(ctx)
}

// RemoveItem drops the line for productID if present; no-op otherwise.
func (e *Engine) RemoveItem(ctx context.Context, productID string) models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)

	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			recompute(cart, e.policy)
			e.persistLocked(ctx)
			break
		}
	}
	return e.snapshotLocked(ctx)
}

// ClearCart resets to an empty cart and drops any applied coupon.
func (e *Engine) ClearCart(ctx context.Context) models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked(ctx)
	return e.snapshotLocked(ctx)
}

// ApplyCoupon validates code with the backend and, on success, applies it to
// the cart. On any failure the existing coupon is left untouched.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) (models.Coupon, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return models.Coupon{}, &ValidationError{Field: "code", Reason: "coupon code is empty"}
	}

	res, err := e.backend.ValidateCoupon(ctx, code)
	if err != nil {
		return models.Coupon{}, &TransportError{Op: "validate coupon", Kind: KindNetworkError, Err: err}
	}
	if !res.Valid {
		kind := KindInvalidCode
		if res.ServiceRejected {
			kind = KindServiceRejected
		}
		return models.Coupon{}, &BusinessRejection{Kind: kind, Reason: res.Reason}
	}

	coupon := models.Coupon{
		Code:           code,
		DiscountAmount: res.DiscountAmount,
		ValidatedAt:    time.Now(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)
	cart.Coupon = &coupon
	recompute(cart, e.policy)
	e.persistLocked(ctx)
	return coupon, nil
}

// RemoveCoupon clears the applied coupon and recomputes the discount to zero.
func (e *Engine) RemoveCoupon(ctx context.Context) models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)
	if cart.Coupon != nil {
		cart.Coupon = nil
		recompute(cart, e.policy)
		e.persistLocked(ctx)
		if err := e.store.Remove(ctx, e.keys.Coupon); err != nil {
			log.Warnf("engine: remove coupon key: %v", err)
		}
	}
	return e.snapshotLocked(ctx)
}

// BuildOrderRequest freezes the cart into a submittable order. Preconditions
// in order: non-empty cart, then complete customer ref and address. The
// returned request owns copies of the items; later cart mutation does not
// touch it. Nothing is submitted here so callers can confirm first.
func (e *Engine) BuildOrderRequest(ctx context.Context, customer models.Customer, method models.PaymentMethod) (models.OrderRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cart := e.cartLocked(ctx)

	if cart.IsEmpty() {
		return models.OrderRequest{}, &StateError{Reason: "cart is empty"}
	}
	if strings.TrimSpace(customer.Ref) == "" || strings.TrimSpace(customer.Address) == "" {
		return models.OrderRequest{}, &ValidationError{Field: "customer", Reason: "incomplete profile"}
	}
	if !method.Valid() {
		return models.OrderRequest{}, &ValidationError{Field: "paymentMethod", Reason: "must be cod or upi"}
	}

	items := make([]models.OrderItem, len(cart.Lines))
	for i, ln := range cart.Lines {
		items[i] = models.OrderItem{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			UnitPrice: ln.UnitPrice,
			Quantity:  ln.Quantity,
		}
	}

	req := models.OrderRequest{
		ClientOrderID:   uuid.New().String(),
		CustomerRef:     customer.Ref,
		DeliveryAddress: customer.Address,
		PaymentMethod:   method,
		Items:           items,
		Subtotal:        cart.Totals.Subtotal,
		Discount:        cart.Totals.Discount,
		DeliveryFee:     cart.Totals.DeliveryFee,
		GrandTotal:      cart.Totals.GrandTotal,
		PlacedAt:        time.Now(),
	}
	if cart.Coupon != nil {
		req.CouponCode = cart.Coupon.Code
	}
	return req, nil
}

// SubmitOrder sends the request to the backend. The cart is cleared exactly
// once, and only on a confirmed acceptance; on rejection or transport fault it
// stays untouched so the caller may retry with the same request (and the same
// ClientOrderID, which the backend de-duplicates on).
func (e *Engine) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.SubmitResult, error) {
	res, err := e.backend.SubmitOrder(ctx, req)
	if err != nil {
		return models.SubmitResult{}, &TransportError{Op: "submit order", Kind: KindTransportError, Err: err}
	}
	if !res.Accepted {
		return models.SubmitResult{}, &BusinessRejection{Kind: KindOrderRefused, Reason: res.Reason}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked(ctx)
	return res, nil
}

// SaveProfile persists the customer profile snapshot under the profile key.
func (e *Engine) SaveProfile(ctx context.Context, c models.Customer) {
	raw, err := json.Marshal(c)
	if err != nil {
		log.Warnf("engine: marshal profile: %v", err)
		return
	}
	if err := e.store.Save(ctx, e.keys.Profile, string(raw)); err != nil {
		log.Warnf("engine: persist profile: %v", err)
	}
}

// Profile loads the persisted customer profile, if any.
func (e *Engine) Profile(ctx context.Context) (models.Customer, bool) {
	raw, ok, err := e.store.Load(ctx, e.keys.Profile)
	if err != nil || !ok {
		return models.Customer{}, false
	}
	var c models.Customer
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return models.Customer{}, false
	}
	return c, true
}

// --- internal state management ---

// cartLocked returns the mutable cart, loading it on first access.
// Callers must hold e.mu.
func (e *Engine) cartLocked(ctx context.Context) *models.Cart {
	if e.cart != nil {
		return e.cart
	}

	cart := &models.Cart{Lines: []models.CartLine{}}
	if raw, ok, err := e.store.Load(ctx, e.keys.Cart); err == nil && ok {
		var stored models.Cart
		if jsonErr := json.Unmarshal([]byte(raw), &stored); jsonErr == nil {
			cart.Lines = stored.Lines
			if cart.Lines == nil {
				cart.Lines = []models.CartLine{}
			}
		} else {
			log.Warnf("engine: discarding unparseable cart snapshot: %v", jsonErr)
		}
	}
	if raw, ok, err := e.store.Load(ctx, e.keys.Coupon); err == nil && ok {
		var coupon models.Coupon
		if jsonErr := json.Unmarshal([]byte(raw), &coupon); jsonErr == nil && coupon.Code != "" {
			cart.Coupon = &coupon
		}
	}

	recompute(cart, e.policy)
	e.cart = cart
	return e.cart
}

// persistLocked mirrors the in-memory cart and coupon to the store. A failed
// write is logged and otherwise ignored; memory stays authoritative.
func (e *Engine) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(e.cart)
	if err != nil {
		log.Warnf("engine: marshal cart: %v", err)
		return
	}
	if err := e.store.Save(ctx, e.keys.Cart, string(raw)); err != nil {
		log.Warnf("engine: persist cart: %v", err)
	}

	if e.cart.Coupon != nil {
		rawCoupon, err := json.Marshal(e.cart.Coupon)
		if err != nil {
			log.Warnf("engine: marshal coupon: %v", err)
			return
		}
		if err := e.store.Save(ctx, e.keys.Coupon, string(rawCoupon)); err != nil {
			log.Warnf("engine: persist coupon: %v", err)
		}
	}
}

func (e *Engine) clearLocked(ctx context.Context) {
	e.cart = &models.Cart{Lines: []models.CartLine{}}
	recompute(e.cart, e.policy)
	e.persistLocked(ctx)
	if err := e.store.Remove(ctx, e.keys.Coupon); err != nil {
		log.Warnf("engine: remove coupon key: %v", err)
	}
}

// snapshotLocked returns a deep copy so callers can't mutate engine state.
func (e *Engine) snapshotLocked(ctx context.Context) models.Cart {
	cart := e.cartLocked(ctx)
	out := models.Cart{
		Lines:  make([]models.CartLine, len(cart.Lines)),
		Totals: cart.Totals,
	}
	copy(out.Lines, cart.Lines)
	if cart.Coupon != nil {
		coupon := *cart.Coupon
		out.Coupon = &coupon
	}
	return out
}
