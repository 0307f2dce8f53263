package book

import (
	"github.com/shopspring/decimal"
)

// OrderID is a caller-supplied opaque identifier. The wire layer hands out
// UUIDs; the book only needs equality and map keying.
type OrderID = string

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	}
	return "Unknown"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a resting order. Quantity is the only field that changes after
// admission; Priority is assigned by the book when the order is admitted and
// never reused.
type Order struct {
	ID       OrderID         // Caller-chosen identifier
	Side     Side            // Resting side
	Price    decimal.Decimal // Limit price, may be zero or negative
	Quantity decimal.Decimal // Remaining quantity, positive while resting
	Priority uint64          // Arrival priority, lower matches first at equal price
}

// Fill describes one party's participation in a match. A matching call
// returns one Fill per maker consumed, in match order, then a single
// aggregate Fill for the taker if any quantity traded at all.
//
// Cost is signed from the filled party's point of view: positive when the
// party paid cash (bought), negative when it received cash (sold). Within
// one call the costs sum to zero.
type Fill struct {
	Order    OrderID
	Quantity decimal.Decimal
	Cost     decimal.Decimal
}
