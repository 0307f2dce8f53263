package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/book"
	"gungnir/internal/common"
	"gungnir/internal/engine"
)

// recordingReporter captures reports instead of writing them to a socket.
type recordingReporter struct {
	reports []common.FillReport
}

func (r *recordingReporter) ReportFill(report common.FillReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func newTestEngine() (*engine.Engine, *recordingReporter) {
	eng := engine.New(common.Equities)
	reporter := &recordingReporter{}
	eng.SetReporter(reporter)
	return eng, reporter
}

func limitOrder(uuid, owner string, side book.Side, price, quantity int64) common.Order {
	return common.Order{
		UUID:       uuid,
		AssetType:  common.Equities,
		OrderType:  common.LimitOrder,
		Ticker:     "AAPL",
		Side:       side,
		LimitPrice: decimal.NewFromInt(price),
		Quantity:   decimal.NewFromInt(quantity),
		Owner:      owner,
	}
}

func TestPlaceOrder_ReportsFillsToOwners(t *testing.T) {
	eng, reporter := newTestEngine()

	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("s1", "alice", book.Sell, 10, 5)))
	require.Empty(t, reporter.reports)

	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("b1", "bob", book.Buy, 10, 5)))
	require.Len(t, reporter.reports, 2)

	// Maker report goes to the resting order's owner.
	maker := reporter.reports[0]
	assert.Equal(t, "alice", maker.Owner)
	assert.Equal(t, "s1", maker.Fill.Order)
	assert.True(t, maker.Fill.Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, maker.Fill.Cost.Equal(decimal.NewFromInt(-50)))

	// Taker report goes to the incoming order's owner.
	taker := reporter.reports[1]
	assert.Equal(t, "bob", taker.Owner)
	assert.Equal(t, "b1", taker.Fill.Order)
	assert.True(t, taker.Fill.Cost.Equal(decimal.NewFromInt(50)))
}

func TestPlaceOrder_PartialFillKeepsReporting(t *testing.T) {
	eng, reporter := newTestEngine()

	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("s1", "alice", book.Sell, 10, 10)))

	// Two takers chip away at alice's order; she gets a report each time.
	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("b1", "bob", book.Buy, 10, 4)))
	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("b2", "carol", book.Buy, 10, 6)))

	var aliceFills int
	for _, report := range reporter.reports {
		if report.Owner == "alice" {
			aliceFills++
		}
	}
	assert.Equal(t, 2, aliceFills)
}

func TestPlaceOrder_UnknownAsset(t *testing.T) {
	eng, _ := newTestEngine()

	err := eng.PlaceOrder(common.AssetType(99), limitOrder("x", "alice", book.Buy, 10, 1))
	assert.ErrorIs(t, err, engine.ErrUnknownAsset)
}

func TestPlaceOrder_BookErrorsPropagate(t *testing.T) {
	eng, reporter := newTestEngine()

	bad := limitOrder("x", "alice", book.Buy, 10, 0)
	assert.ErrorIs(t, eng.PlaceOrder(common.Equities, bad), book.ErrNonPositiveQuantity)
	assert.Empty(t, reporter.reports)
}

func TestCancelOrder(t *testing.T) {
	eng, _ := newTestEngine()

	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("s1", "alice", book.Sell, 10, 5)))
	assert.NoError(t, eng.CancelOrder(common.Equities, "s1"))
	assert.ErrorIs(t, eng.CancelOrder(common.Equities, "s1"), book.ErrOrderNotFound)
	assert.ErrorIs(t, eng.CancelOrder(common.AssetType(99), "s1"), engine.ErrUnknownAsset)
}

func TestMarketOrder_NeverRests(t *testing.T) {
	eng, reporter := newTestEngine()

	market := common.Order{
		UUID:      "m1",
		AssetType: common.Equities,
		OrderType: common.MarketOrder,
		Ticker:    "AAPL",
		Side:      book.Sell,
		Quantity:  decimal.NewFromInt(10),
		Owner:     "alice",
	}
	require.NoError(t, eng.PlaceOrder(common.Equities, market))
	assert.Empty(t, reporter.reports)
	assert.ErrorIs(t, eng.CancelOrder(common.Equities, "m1"), book.ErrOrderNotFound)
}

func TestQuoteMarketCost(t *testing.T) {
	eng, _ := newTestEngine()

	require.NoError(t, eng.PlaceOrder(common.Equities, limitOrder("s1", "alice", book.Sell, 30, 15)))

	filled, cost, err := eng.QuoteMarketCost(common.Equities, book.Buy, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, filled.Equal(decimal.NewFromInt(10)))
	assert.True(t, cost.Equal(decimal.NewFromInt(300)))

	_, _, err = eng.QuoteMarketCost(common.AssetType(99), book.Buy, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, engine.ErrUnknownAsset)
}
