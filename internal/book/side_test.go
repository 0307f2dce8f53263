package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/book"
)

func order(id book.OrderID, side book.Side, price int64, quantity int64, priority uint64) *book.Order {
	return &book.Order{
		ID:       id,
		Side:     side,
		Price:    d(price),
		Quantity: d(quantity),
		Priority: priority,
	}
}

func scanIDs(side *book.BookSide) []book.OrderID {
	var ids []book.OrderID
	side.Scan(func(o *book.Order) bool {
		ids = append(ids, o.ID)
		return true
	})
	return ids
}

func TestBookSide_BuyOrdering(t *testing.T) {
	side := book.NewBookSide(book.BestIsHighPrice)

	side.Insert(order("low", book.Buy, 10, 1, 0))
	side.Insert(order("high", book.Buy, 30, 1, 1))
	side.Insert(order("mid-late", book.Buy, 20, 1, 3))
	side.Insert(order("mid-early", book.Buy, 20, 1, 2))
	side.Insert(order("negative", book.Buy, -5, 1, 4))

	// Highest price first; equal prices by arrival.
	assert.Equal(t, []book.OrderID{"high", "mid-early", "mid-late", "low", "negative"}, scanIDs(side))

	best, ok := side.Peek()
	require.True(t, ok)
	assert.Equal(t, "high", best.ID)
}

func TestBookSide_SellOrdering(t *testing.T) {
	side := book.NewBookSide(book.BestIsLowPrice)

	side.Insert(order("high", book.Sell, 30, 1, 0))
	side.Insert(order("low", book.Sell, 10, 1, 1))
	side.Insert(order("low-late", book.Sell, 10, 1, 2))
	side.Insert(order("negative", book.Sell, -5, 1, 3))

	// Lowest price first; equal prices by arrival.
	assert.Equal(t, []book.OrderID{"negative", "low", "low-late", "high"}, scanIDs(side))

	best, ok := side.Peek()
	require.True(t, ok)
	assert.Equal(t, "negative", best.ID)
}

func TestBookSide_PopAndRemove(t *testing.T) {
	side := book.NewBookSide(book.BestIsLowPrice)

	a := order("a", book.Sell, 10, 1, 0)
	b := order("b", book.Sell, 20, 1, 1)
	c := order("c", book.Sell, 30, 1, 2)
	side.Insert(a)
	side.Insert(b)
	side.Insert(c)
	require.Equal(t, 3, side.Len())

	side.Pop()
	assert.Equal(t, []book.OrderID{"b", "c"}, scanIDs(side))

	// Removal goes by exact composite key.
	assert.True(t, side.Remove(b.Price, b.Priority))
	assert.False(t, side.Remove(b.Price, b.Priority))
	assert.Equal(t, []book.OrderID{"c"}, scanIDs(side))

	// Popping the last order empties the side; popping again is a no-op.
	side.Pop()
	side.Pop()
	assert.Equal(t, 0, side.Len())
	_, ok := side.Peek()
	assert.False(t, ok)
}

func TestBookSide_Reverse(t *testing.T) {
	side := book.NewBookSide(book.BestIsHighPrice)

	side.Insert(order("best", book.Buy, 30, 1, 0))
	side.Insert(order("mid", book.Buy, 20, 1, 1))
	side.Insert(order("worst", book.Buy, 10, 1, 2))

	var ids []book.OrderID
	side.Reverse(func(o *book.Order) bool {
		ids = append(ids, o.ID)
		return true
	})
	assert.Equal(t, []book.OrderID{"worst", "mid", "best"}, ids)
}

func TestBookSide_ScanStopsEarly(t *testing.T) {
	side := book.NewBookSide(book.BestIsLowPrice)

	side.Insert(order("a", book.Sell, 10, 1, 0))
	side.Insert(order("b", book.Sell, 20, 1, 1))
	side.Insert(order("c", book.Sell, 30, 1, 2))

	var visited int
	side.Scan(func(o *book.Order) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}
