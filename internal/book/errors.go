package book

import "errors"

var (
	// ErrNonPositiveQuantity rejects orders and quotes with quantity <= 0.
	ErrNonPositiveQuantity = errors.New("non-positive quantity")
	// ErrOrderAlreadyExists rejects placements reusing a resting order's id.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOrderNotFound rejects cancels of ids that are not resting.
	ErrOrderNotFound = errors.New("order not found")
)
