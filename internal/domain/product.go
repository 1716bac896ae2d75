package domain

import "time"

// Product is a catalog entry resolved by barcode. Weight is the reference
// weight the unit price is quoted against; weight-proportional pricing scales
// the unit price by suppliedWeight/Weight.
type Product struct {
	ID        string    `json:"id"`
	Barcode   string    `json:"barcode"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Weight    float64   `json:"weight"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
