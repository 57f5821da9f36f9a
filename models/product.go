package models

// Product is a normalized row from the catalog sheet. The sheet headers vary
// between deployments; sheetapi owns the mapping into this shape.
type Product struct {
	ProductID    string  `json:"productId" bson:"productId"`
	Name         string  `json:"name" bson:"name"`
	Price        float64 `json:"price" bson:"price"`
	Stock        int     `json:"stock" bson:"stock"`
	Category     string  `json:"category,omitempty" bson:"category,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	QuantityUnit string  `json:"quantityUnit,omitempty" bson:"quantityUnit,omitempty"` // pack size, e.g. "500g"
}

// StoreSettings are storefront knobs kept on the settings sheet.
type StoreSettings struct {
	DeliveryThreshold float64 `json:"deliveryThreshold"`
	DeliveryCharge    float64 `json:"deliveryCharge"`
	StoreOpen         bool    `json:"storeOpen"`
}
