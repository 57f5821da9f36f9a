package sheetapi

import (
	"strconv"
	"strings"

	"njmart/models"
)

// The sheet's header row drifts between deployments (ProductID, productid,
// "Product ID", id...). All of that tolerance lives here, at the boundary;
// the rest of the codebase only sees models.Product.

func NormalizeProduct(raw map[string]interface{}) models.Product {
	return models.Product{
		ProductID:    pickString(raw, "ProductID", "productid", "Product ID", "productId", "id"),
		Name:         pickString(raw, "Name", "name", "Product Name"),
		Price:        pickNumber(raw, "Price", "price", "MRP", "Amount"),
		Stock:        int(pickNumber(raw, "Stock", "stock", "Qty", "QuantityInStock")),
		Category:     pickString(raw, "Category", "category", "Cat"),
		ImageURL:     pickString(raw, "Image URL", "image", "Image", "img"),
		QuantityUnit: pickString(raw, "Quantity", "quantity", "Pack"),
	}
}

func NormalizeSettings(raw map[string]interface{}) models.StoreSettings {
	s := models.StoreSettings{
		DeliveryThreshold: 499,
		DeliveryCharge:    20,
		StoreOpen:         true,
	}
	if v := pickNumber(raw, "DeliveryThreshold", "deliveryThreshold", "FreeDeliveryAbove"); v > 0 {
		s.DeliveryThreshold = v
	}
	if v := pickNumber(raw, "DeliveryCharge", "deliveryCharge"); v > 0 {
		s.DeliveryCharge = v
	}
	if v, ok := raw["StoreOpen"]; ok {
		s.StoreOpen = toBool(v)
	}
	return s
}

func pickString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func pickNumber(raw map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func toBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true") || t == "1" || strings.EqualFold(t, "yes")
	case float64:
		return t != 0
	}
	return false
}
