package orders

import "time"

type Item struct {
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Customer struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Address       string `json:"address,omitempty"`
	GoogleAddress string `json:"googleAddress,omitempty"`
}

// Order is the working-set entity. ID is the merge key; Status is the only
// field the console mutates after creation.
type Order struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	AmountPence int       `json:"amount"`
	OrderNote   string    `json:"orderNote,omitempty"`
	Items       []Item    `json:"items"`
	User        Customer  `json:"user"`
}

// Amount in pounds, for summaries and display.
func (o Order) Amount() float64 { return float64(o.AmountPence) / 100 }

// Age of the order at the given instant.
func (o Order) Age(now time.Time) time.Duration { return now.Sub(o.CreatedAt) }
