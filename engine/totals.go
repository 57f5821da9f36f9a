package engine

import "njmart/models"

// DeliveryPolicy maps a subtotal to a delivery fee. Defaults match the
// storefront settings sheet.
type DeliveryPolicy struct {
	Threshold float64
	Charge    float64
}

var DefaultDeliveryPolicy = DeliveryPolicy{Threshold: 499, Charge: 20}

// ComputeDeliveryFee returns 0 for an empty cart (never charge delivery on
// nothing) and for subtotals at or above the free-delivery threshold.
// Only a subtotal strictly between 0 and the threshold incurs the charge.
func ComputeDeliveryFee(subtotal, threshold, charge float64) float64 {
	if subtotal == 0 || subtotal >= threshold {
		return 0
	}
	return charge
}

// recompute rebuilds the derived totals from the lines and coupon.
// The discount clamps to [0, subtotal]; the delivery fee does not participate
// in the clamp. The grand total is floored at 0.
func recompute(c *models.Cart, policy DeliveryPolicy) {
	var subtotal float64
	for _, ln := range c.Lines {
		subtotal += ln.UnitPrice * float64(ln.Quantity)
	}

	var discount float64
	if c.Coupon != nil {
		discount = c.Coupon.DiscountAmount
		if discount < 0 {
			discount = 0
		}
		if discount > subtotal {
			discount = subtotal
		}
	}

	fee := ComputeDeliveryFee(subtotal, policy.Threshold, policy.Charge)

	grand := subtotal + fee - discount
	if grand < 0 {
		grand = 0
	}

	c.Totals = models.Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Discount:    discount,
		GrandTotal:  grand,
	}
}
