package book

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderBook is a single-instrument limit order book matching under strict
// price-time priority. It is not safe for concurrent use; callers compose
// books behind their own synchronization.
//
// Every resting order is held by the order index AND exactly one of the two
// sides. Matching always crosses at the maker's resting price, so price
// improvement accrues to the taker.
type OrderBook struct {
	buys  *BookSide
	sells *BookSide

	// Every resting order is in index and (buys XOR sells).
	index map[OrderID]*Order

	// Increments on each admission, never reused.
	nextPriority uint64
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		buys:  NewBookSide(BestIsHighPrice),
		sells: NewBookSide(BestIsLowPrice),
		index: make(map[OrderID]*Order),
	}
}

// ProcessLimitOrder matches an incoming limit order against the opposing
// side and rests any residual quantity.
//
// The returned slice holds one Fill per maker consumed, in match order,
// terminated by a single aggregate Fill for the taker; it is empty when
// nothing traded. Errors leave the book untouched.
func (book *OrderBook) ProcessLimitOrder(id OrderID, side Side, price, quantity decimal.Decimal) ([]Fill, error) {
	if _, ok := book.index[id]; ok {
		return nil, ErrOrderAlreadyExists
	}
	if quantity.Sign() <= 0 {
		return nil, ErrNonPositiveQuantity
	}

	fills, remaining := book.match(id, side, price, quantity, false)

	if remaining.Sign() > 0 {
		order := &Order{
			ID:       id,
			Side:     side,
			Price:    price,
			Quantity: remaining,
			Priority: book.nextPriority,
		}
		book.nextPriority++

		book.index[id] = order
		book.sideOf(side).Insert(order)
	}

	return fills, nil
}

// ProcessMarketOrder matches an incoming market order against the opposing
// side until the quantity is exhausted or the side runs dry. The residual,
// if any, is discarded: a market order never rests and the id is not
// retained. Fill reporting and errors are as for ProcessLimitOrder.
func (book *OrderBook) ProcessMarketOrder(id OrderID, side Side, quantity decimal.Decimal) ([]Fill, error) {
	if _, ok := book.index[id]; ok {
		return nil, ErrOrderAlreadyExists
	}
	if quantity.Sign() <= 0 {
		return nil, ErrNonPositiveQuantity
	}

	fills, _ := book.match(id, side, decimal.Decimal{}, quantity, true)
	return fills, nil
}

// match consumes opposing liquidity for a taker and returns the fills plus
// the taker's unfilled remainder. Market takers skip the price-cross test.
// The cost sign convention lives here and nowhere else: a buyer's cost is
// positive (cash paid), a seller's negative (cash received), always at the
// maker's resting price.
func (book *OrderBook) match(id OrderID, side Side, price, quantity decimal.Decimal, market bool) ([]Fill, decimal.Decimal) {
	var fills []Fill
	taker := Fill{Order: id}
	opposing := book.sideOf(side.Opposite())

	for quantity.Sign() > 0 {
		maker, ok := opposing.Peek()
		if !ok {
			break
		}

		if !market {
			crossed := false
			switch side {
			case Buy:
				crossed = price.GreaterThanOrEqual(maker.Price)
			case Sell:
				crossed = price.LessThanOrEqual(maker.Price)
			}
			if !crossed {
				break
			}
		}

		fillQty := decimal.Min(quantity, maker.Quantity)
		quantity = quantity.Sub(fillQty)
		maker.Quantity = maker.Quantity.Sub(fillQty)

		taker.Quantity = taker.Quantity.Add(fillQty)

		// Cash the buyer hands the seller for this slice.
		buyCash := maker.Price.Mul(fillQty)

		makerFill := Fill{Order: maker.ID, Quantity: fillQty}
		switch side {
		case Buy:
			taker.Cost = taker.Cost.Add(buyCash)
			makerFill.Cost = buyCash.Neg()
		case Sell:
			taker.Cost = taker.Cost.Sub(buyCash)
			makerFill.Cost = buyCash
		}

		// A consumed maker leaves the index and its side together.
		if maker.Quantity.IsZero() {
			delete(book.index, maker.ID)
			opposing.Pop()
		}

		fills = append(fills, makerFill)
	}

	if !taker.Quantity.IsZero() {
		fills = append(fills, taker)
	}

	return fills, quantity
}

// CancelOrder removes a resting order. Cancelling an id that is not resting
// (including a second cancel of the same id) returns ErrOrderNotFound.
func (book *OrderBook) CancelOrder(id OrderID) error {
	order, ok := book.index[id]
	if !ok {
		return ErrOrderNotFound
	}

	delete(book.index, id)
	if !book.sideOf(order.Side).Remove(order.Price, order.Priority) {
		// The index and the sides disagree; the book is corrupt.
		panic(fmt.Sprintf("book: order %v indexed but not on %v side", id, order.Side))
	}
	return nil
}

// Resting reports whether id currently rests on the book.
func (book *OrderBook) Resting(id OrderID) bool {
	_, ok := book.index[id]
	return ok
}

// Len returns the number of orders resting on the given side.
func (book *OrderBook) Len(side Side) int {
	return book.sideOf(side).Len()
}

// BestOrderID returns the id of the front order on the given side.
func (book *OrderBook) BestOrderID(side Side) (OrderID, bool) {
	order, ok := book.sideOf(side).Peek()
	if !ok {
		return "", false
	}
	return order.ID, true
}

// BestPrice returns the price of the front order on the given side.
func (book *OrderBook) BestPrice(side Side) (decimal.Decimal, bool) {
	order, ok := book.sideOf(side).Peek()
	if !ok {
		return decimal.Decimal{}, false
	}
	return order.Price, true
}

// BestLevel returns the front price on the given side together with the
// total quantity resting at that price.
func (book *OrderBook) BestLevel(side Side) (price, quantity decimal.Decimal, ok bool) {
	book.sideOf(side).Scan(func(order *Order) bool {
		if !ok {
			price = order.Price
			ok = true
		} else if !order.Price.Equal(price) {
			return false
		}
		quantity = quantity.Add(order.Quantity)
		return true
	})
	return price, quantity, ok
}

// QuoteMarketCost is a read-only dry run of a market order: it walks the
// opposing side in priority order and returns the quantity that would fill
// and its signed cost under the same convention as matching. The book is
// not modified.
func (book *OrderBook) QuoteMarketCost(side Side, quantity decimal.Decimal) (filled, cost decimal.Decimal, err error) {
	if quantity.Sign() <= 0 {
		return decimal.Decimal{}, decimal.Decimal{}, ErrNonPositiveQuantity
	}

	remaining := quantity
	book.sideOf(side.Opposite()).Scan(func(maker *Order) bool {
		fillQty := decimal.Min(remaining, maker.Quantity)
		remaining = remaining.Sub(fillQty)
		filled = filled.Add(fillQty)

		buyCash := maker.Price.Mul(fillQty)
		if side == Buy {
			cost = cost.Add(buyCash)
		} else {
			cost = cost.Sub(buyCash)
		}
		return remaining.Sign() > 0
	})

	return filled, cost, nil
}

func (book *OrderBook) sideOf(side Side) *BookSide {
	if side == Buy {
		return book.buys
	}
	return book.sells
}

// String renders the book as a table, asks from worst to best above bids
// from best to worst, so the spread sits in the middle.
func (book *OrderBook) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%18s%18s%18s%18s\n", "ID", "SIDE", "PRICE", "QUANTITY")

	row := func(order *Order) bool {
		fmt.Fprintf(&sb, "%18v%18s%18s%18s\n",
			order.ID, order.Side, order.Price, order.Quantity)
		return true
	}
	book.sells.Reverse(row)
	book.buys.Scan(row)

	return sb.String()
}
