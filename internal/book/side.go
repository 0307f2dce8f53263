package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// Direction selects which price is best-to-match on a side.
type Direction int

const (
	BestIsHighPrice Direction = iota // buy side
	BestIsLowPrice                   // sell side
)

// BookSide holds one side's resting orders ordered by (price, priority).
// Priorities are unique across the whole book, so the composite key is
// unique and no per-level FIFO queue is needed: the key already encodes
// price-time order.
type BookSide struct {
	tree *btree.BTreeG[*Order]
}

func NewBookSide(dir Direction) *BookSide {
	// Price sorts best-first for the given direction. Equal prices fall
	// back to arrival priority, earliest first.
	less := func(a, b *Order) bool {
		if c := a.Price.Cmp(b.Price); c != 0 {
			if dir == BestIsHighPrice {
				return c > 0
			}
			return c < 0
		}
		return a.Priority < b.Priority
	}
	return &BookSide{tree: btree.NewBTreeG(less)}
}

// Insert places an order under its (price, priority) key. The caller
// guarantees key uniqueness.
func (s *BookSide) Insert(order *Order) {
	s.tree.Set(order)
}

// Remove deletes the order stored under the given key and reports whether
// anything was deleted. The comparator only reads price and priority, so a
// probe order carrying just those fields finds the resident one.
func (s *BookSide) Remove(price decimal.Decimal, priority uint64) bool {
	_, removed := s.tree.Delete(&Order{Price: price, Priority: priority})
	return removed
}

// Peek borrows the best resting order without removing it.
func (s *BookSide) Peek() (*Order, bool) {
	return s.tree.Min()
}

// Pop removes the best resting order. No-op on an empty side.
func (s *BookSide) Pop() {
	s.tree.PopMin()
}

// Scan visits resting orders best to worst while iter returns true.
func (s *BookSide) Scan(iter func(order *Order) bool) {
	s.tree.Scan(iter)
}

// Reverse visits resting orders worst to best while iter returns true.
func (s *BookSide) Reverse(iter func(order *Order) bool) {
	s.tree.Reverse(iter)
}

func (s *BookSide) Len() int {
	return s.tree.Len()
}
