package models

import "time"

type PaymentMethod string

const (
	PaymentCOD PaymentMethod = "cod"
	PaymentUPI PaymentMethod = "upi"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentUPI
}

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unitPrice" bson:"unitPrice"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// OrderRequest is one checkout attempt: an immutable snapshot of the cart and
// customer data. ClientOrderID is minted once per built request and reused on
// retries of the same request, so the backend can de-duplicate.
type OrderRequest struct {
	ClientOrderID   string        `json:"clientOrderId" bson:"clientOrderId"`
	CustomerRef     string        `json:"customerRef" bson:"customerRef"`
	DeliveryAddress string        `json:"deliveryAddress" bson:"deliveryAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	Items           []OrderItem   `json:"items" bson:"items"`
	Subtotal        float64       `json:"subtotal" bson:"subtotal"`
	Discount        float64       `json:"discount" bson:"discount"`
	DeliveryFee     float64       `json:"deliveryFee" bson:"deliveryFee"`
	GrandTotal      float64       `json:"grandTotal" bson:"grandTotal"`
	CouponCode      string        `json:"couponCode,omitempty" bson:"couponCode,omitempty"`
	PlacedAt        time.Time     `json:"placedAt" bson:"placedAt"`
}

// CouponResult is the backend's verdict on a coupon code.
type CouponResult struct {
	Valid           bool
	DiscountAmount  float64
	Reason          string
	ServiceRejected bool // backend refused the request itself, not just the code
}

// SubmitResult is the backend's verdict on an order submission.
type SubmitResult struct {
	Accepted bool
	OrderID  string
	Reason   string
}

// Order is the Mongo mirror of an accepted order, kept for history and
// receipts. The sheet backend remains the source of record.
type Order struct {
	OrderID    string       `json:"orderId" bson:"orderId"`
	UserID     string       `json:"userId" bson:"userId"`
	Request    OrderRequest `json:"request" bson:"request"`
	Status     string       `json:"status" bson:"status"` // "placed", "completed", ...
	CreatedAt  time.Time    `json:"createdAt" bson:"createdAt"`
	ApprovedBy []string     `json:"approvedBy" bson:"approvedBy"`
}
