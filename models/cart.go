package models

import "time"

// CartLine is one product's presence in a cart. At most one line exists per
// ProductID; quantity is always >= 1 (a zero or negative quantity removes the
// line instead of being stored).
type CartLine struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unitPrice" bson:"unitPrice"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Category  string  `json:"category,omitempty" bson:"category,omitempty"`
}

// Coupon is a server-validated discount applied to a cart.
type Coupon struct {
	Code           string    `json:"code" bson:"code"`
	DiscountAmount float64   `json:"discountAmount" bson:"discountAmount"`
	ValidatedAt    time.Time `json:"validatedAt" bson:"validatedAt"`
}

// Totals are derived from the lines and the delivery policy on every read;
// the persisted copy is a mirror, never the authority.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	Discount    float64 `json:"discount"`
	GrandTotal  float64 `json:"grandTotal"`
}

// Cart is the aggregate owned by the engine. Lines keep insertion order.
type Cart struct {
	Lines  []CartLine `json:"lines"`
	Coupon *Coupon    `json:"coupon,omitempty"`
	Totals Totals     `json:"totals"`
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Customer is the checkout-relevant slice of a profile.
type Customer struct {
	Ref     string `json:"ref" bson:"ref"` // phone, email or user id
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Address string `json:"address" bson:"address"`
}
