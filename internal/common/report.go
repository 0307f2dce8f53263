package common

import (
	"fmt"
	"time"

	"gungnir/internal/book"
)

// FillReport addresses one party's fill so the transport can deliver it to
// the owner of the filled order.
type FillReport struct {
	Owner     string
	AssetType AssetType
	Ticker    string
	Fill      book.Fill
	Timestamp time.Time
}

func (r FillReport) String() string {
	return fmt.Sprintf(
		`Owner:     %s
Ticker:    %s
Order:     %v
Quantity:  %s
Cost:      %s
Timestamp: %v`,
		r.Owner,
		r.Ticker,
		r.Fill.Order,
		r.Fill.Quantity,
		r.Fill.Cost,
		r.Timestamp.Format(time.RFC3339),
	)
}
