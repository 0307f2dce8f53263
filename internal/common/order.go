package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gungnir/internal/book"
)

type AssetType int

const (
	Equities AssetType = iota
)

type OrderType int

const (
	// Limit orders are an order to buy or sell a security at a specified
	// price or better. Limit orders may rest on the order book until
	// filled or cancelled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately at the
	// best available prices. They never rest: whatever cannot be filled
	// against resting liquidity is discarded.
	MarketOrder
)

// Order is an inbound order request as submitted by a client. The matching
// core only sees its id, side, price and quantity; the rest is routing and
// reporting metadata.
type Order struct {
	UUID          book.OrderID    // Order tracked uuid
	AssetType     AssetType       //
	OrderType     OrderType       //
	Ticker        string          // Specific asset identifier
	Side          book.Side       // Order side
	LimitPrice    decimal.Decimal // Limiting price, unused for market orders
	Quantity      decimal.Decimal // Requested quantity
	Timestamp     time.Time       // Time of arrival of order
	ExchTimestamp time.Time       // Time of arrival of order into the book
	Owner         string          // Who owns this order
}

func (order Order) String() string {
	return fmt.Sprintf(
		`UUID:          %v
AssetType:     %v
OrderType:     %v
Ticker:        %s
Side:          %v
LimitPrice:    %s
Quantity:      %s
Timestamp:     %v
ExchTimestamp: %v
Owner:         %s`,
		order.UUID,
		order.AssetType,
		order.OrderType,
		order.Ticker,
		order.Side,
		order.LimitPrice,
		order.Quantity,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
		order.ExchTimestamp.Format(time.RFC3339),
		order.Owner,
	)
}
