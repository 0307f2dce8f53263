package net

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gungnir/internal/book"
	"gungnir/internal/common"
)

func TestParseMessage_NewOrder(t *testing.T) {
	msg := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		AssetType:   common.Equities,
		OrderType:   common.LimitOrder,
		Side:        book.Buy,
		Ticker:      "AAPL",
		LimitPrice:  decimal.RequireFromString("100.25"),
		Quantity:    decimal.RequireFromString("0.5"),
		Username:    "alice",
	}

	parsed, err := parseMessage(msg.Serialize())
	require.NoError(t, err)

	got, ok := parsed.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, book.Buy, got.Side)
	// Decimal exactness survives the wire.
	assert.True(t, got.LimitPrice.Equal(msg.LimitPrice))
	assert.True(t, got.Quantity.Equal(msg.Quantity))

	order := got.Order()
	assert.NotEmpty(t, order.UUID)
	assert.Equal(t, "alice", order.Owner)
}

func TestParseMessage_CancelAndQuote(t *testing.T) {
	cancel := CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		AssetType:   common.Equities,
		OrderUUID:   "11f9ad77-3a1c-4e6f-a1b8-b2922cfc9b1b",
	}
	parsed, err := parseMessage(cancel.Serialize())
	require.NoError(t, err)
	assert.Equal(t, cancel, parsed)

	quote := QuoteMarketMessage{
		BaseMessage: BaseMessage{TypeOf: QuoteMarket},
		AssetType:   common.Equities,
		Side:        book.Sell,
		Quantity:    decimal.RequireFromString("17"),
	}
	parsed, err = parseMessage(quote.Serialize())
	require.NoError(t, err)
	got, ok := parsed.(QuoteMarketMessage)
	require.True(t, ok)
	assert.Equal(t, book.Sell, got.Side)
	assert.True(t, got.Quantity.Equal(quote.Quantity))
}

func TestParseMessage_Truncated(t *testing.T) {
	full := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Ticker:      "AAPL",
		LimitPrice:  decimal.RequireFromString("1"),
		Quantity:    decimal.RequireFromString("1"),
		Username:    "alice",
	}.Serialize()

	_, err := parseMessage(full[:len(full)-3])
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage(nil)
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestReport_RoundTrip(t *testing.T) {
	report := Report{
		MessageType: ExecutionReport,
		AssetType:   common.Equities,
		Timestamp:   1700000000,
		Ticker:      "AAPL",
		OrderUUID:   "abc",
		Quantity:    "3",
		Cost:        "-6.25",
	}

	parsed, err := ParseReport(report.Serialize())
	require.NoError(t, err)
	assert.Equal(t, report, parsed)
}
