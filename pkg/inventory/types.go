package inventory

import "time"

// Item is one inventory line: a product the plant stocks, counted in Unit.
type Item struct {
	ID                string     `json:"id,omitempty"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Quantity          int        `json:"quantity"`
	Unit              string     `json:"unit,omitempty"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// ResourceID implements resource.Model.
func (i Item) ResourceID() string {
	return i.ID
}

// LowOnStock reports whether the item sits at or below its threshold.
func (i Item) LowOnStock() bool {
	return i.Quantity <= i.LowStockThreshold
}
