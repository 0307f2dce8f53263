package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gungnir/internal/book"
	"gungnir/internal/common"
)

var ErrUnknownAsset = errors.New("unknown asset type")

// Reporter delivers fill reports back to order owners. The TCP server
// implements it; the engine never touches a socket directly.
type Reporter interface {
	ReportFill(report common.FillReport) error
}

// ownerInfo is the reporting metadata kept per resting order.
type ownerInfo struct {
	owner     string
	ticker    string
	assetType common.AssetType
}

// Engine routes inbound orders to per-asset books and turns the books'
// fills into addressed reports. Like the books it owns, it expects
// serialized access; the server's session handler provides that.
type Engine struct {
	Books map[common.AssetType]*book.OrderBook

	reporter Reporter

	// owners tracks reporting metadata for every resting order, pruned
	// as orders leave the book.
	owners map[book.OrderID]ownerInfo
}

func New(supportedAssets ...common.AssetType) *Engine {
	eng := &Engine{
		Books:  make(map[common.AssetType]*book.OrderBook),
		owners: make(map[book.OrderID]ownerInfo),
	}

	for _, assetType := range supportedAssets {
		eng.Books[assetType] = book.NewOrderBook()
	}

	return eng
}

// SetReporter wires the transport in after construction. The server needs
// the engine to exist first, so the dependency cycle is broken here.
func (eng *Engine) SetReporter(reporter Reporter) {
	eng.reporter = reporter
}

// PlaceOrder hands an inbound order to its asset's book and reports every
// resulting fill to the owner of the filled order.
func (eng *Engine) PlaceOrder(assetType common.AssetType, order common.Order) error {
	bk, ok := eng.Books[assetType]
	if !ok {
		return ErrUnknownAsset
	}

	order.ExchTimestamp = time.Now()

	var fills []book.Fill
	var err error
	switch order.OrderType {
	case common.LimitOrder:
		fills, err = bk.ProcessLimitOrder(order.UUID, order.Side, order.LimitPrice, order.Quantity)
	case common.MarketOrder:
		fills, err = bk.ProcessMarketOrder(order.UUID, order.Side, order.Quantity)
	default:
		err = errors.New("unknown order type")
	}
	if err != nil {
		return err
	}

	// The taker rests only on the limit path; remember who owns it before
	// reporting so later fills against it resolve to the right owner.
	if bk.Resting(order.UUID) {
		eng.owners[order.UUID] = ownerInfo{
			owner:     order.Owner,
			ticker:    order.Ticker,
			assetType: assetType,
		}
	}

	eng.reportFills(bk, order, assetType, fills)

	log.Info().
		Str("uuid", string(order.UUID)).
		Str("ticker", order.Ticker).
		Stringer("side", order.Side).
		Str("quantity", order.Quantity.String()).
		Int("fills", len(fills)).
		Msg("order placed")

	return nil
}

// CancelOrder removes a resting order from its book.
func (eng *Engine) CancelOrder(assetType common.AssetType, uuid book.OrderID) error {
	bk, ok := eng.Books[assetType]
	if !ok {
		return ErrUnknownAsset
	}

	if err := bk.CancelOrder(uuid); err != nil {
		return err
	}
	delete(eng.owners, uuid)

	log.Info().Str("uuid", string(uuid)).Msg("order cancelled")
	return nil
}

// QuoteMarketCost answers a what-if market order against the asset's book
// without mutating it.
func (eng *Engine) QuoteMarketCost(assetType common.AssetType, side book.Side, quantity decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	bk, ok := eng.Books[assetType]
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, ErrUnknownAsset
	}
	return bk.QuoteMarketCost(side, quantity)
}

// LogBook dumps every book's resting state to the log.
func (eng *Engine) LogBook() {
	for assetType, bk := range eng.Books {
		log.Info().
			Int("assetType", int(assetType)).
			Int("bids", bk.Len(book.Buy)).
			Int("asks", bk.Len(book.Sell)).
			Msg("book state\n" + bk.String())
	}
}

// reportFills addresses each fill to its order's owner. Maker owners come
// from the resting-order metadata; the terminal fill belongs to the taker.
// Metadata for orders the match consumed is dropped on the way through.
func (eng *Engine) reportFills(bk *book.OrderBook, order common.Order, assetType common.AssetType, fills []book.Fill) {
	now := time.Now()
	for _, fill := range fills {
		info, ok := eng.owners[fill.Order]
		if !ok {
			// Not resting and not previously tracked: the taker.
			info = ownerInfo{owner: order.Owner, ticker: order.Ticker, assetType: assetType}
		}

		if eng.reporter != nil {
			report := common.FillReport{
				Owner:     info.owner,
				AssetType: info.assetType,
				Ticker:    info.ticker,
				Fill:      fill,
				Timestamp: now,
			}
			if err := eng.reporter.ReportFill(report); err != nil {
				log.Error().
					Err(err).
					Str("owner", info.owner).
					Str("uuid", string(fill.Order)).
					Msg("unable to report fill")
			}
		}

		if !bk.Resting(fill.Order) {
			delete(eng.owners, fill.Order)
		}
	}
}
