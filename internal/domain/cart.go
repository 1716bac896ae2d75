package domain

import "time"

// CartLine is one product entry in a principal's cart. The owner is held by
// username only; cart rows never reference principal rows across the service
// boundary.
type CartLine struct {
	ID        string    `json:"id"`
	Username  string    `json:"-"`
	Barcode   string    `json:"barcode"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Weight    float64   `json:"weight"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
}
