package net

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gungnir/internal/book"
	"gungnir/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidDecimal     = errors.New("invalid decimal field")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	QuoteMarket
	LogBook
)

type ReportMessageType int

const (
	ExecutionReport ReportMessageType = iota
	QuoteReport
	OrderAccepted
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

// Prices and quantities travel as length-prefixed decimal strings so
// exactness survives the wire; float bits would not round-trip the book's
// arithmetic.

// wireReader walks a received message, accumulating the first error.
type wireReader struct {
	buf []byte
	err error
}

func (r *wireReader) uint16() uint16 {
	if r.err != nil || len(r.buf) < 2 {
		if r.err == nil {
			r.err = ErrMessageTooShort
		}
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[:2])
	r.buf = r.buf[2:]
	return v
}

func (r *wireReader) uint64() uint64 {
	if r.err != nil || len(r.buf) < 8 {
		if r.err == nil {
			r.err = ErrMessageTooShort
		}
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return v
}

func (r *wireReader) byte() byte {
	if r.err != nil || len(r.buf) < 1 {
		if r.err == nil {
			r.err = ErrMessageTooShort
		}
		return 0
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

// lpString reads a 1-byte length prefix followed by that many bytes.
func (r *wireReader) lpString() string {
	n := int(r.byte())
	if r.err != nil || len(r.buf) < n {
		if r.err == nil {
			r.err = ErrMessageTooShort
		}
		return ""
	}
	s := string(r.buf[:n])
	r.buf = r.buf[n:]
	return s
}

func (r *wireReader) decimal() decimal.Decimal {
	s := r.lpString()
	if r.err != nil {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		r.err = ErrInvalidDecimal
		return decimal.Decimal{}
	}
	return d
}

// wireWriter builds an outbound message.
type wireWriter struct {
	buf []byte
}

func (w *wireWriter) uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *wireWriter) uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *wireWriter) byte(v byte) {
	w.buf = append(w.buf, v)
}

// lpString truncates at 255 bytes, the width of the length prefix.
func (w *wireWriter) lpString(s string) {
	if len(s) > 255 {
		s = s[:255]
	}
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *wireWriter) decimal(d decimal.Decimal) {
	w.lpString(d.String())
}

func parseMessage(msg []byte) (Message, error) {
	r := &wireReader{buf: msg}
	typeOf := MessageType(r.uint16())
	if r.err != nil {
		return BaseMessage{}, r.err
	}

	switch typeOf {
	case NewOrder:
		return parseNewOrder(r)
	case CancelOrder:
		return parseCancelOrder(r)
	case QuoteMarket:
		return parseQuoteMarket(r)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	AssetType  common.AssetType
	OrderType  common.OrderType
	Side       book.Side
	Ticker     string
	LimitPrice decimal.Decimal
	Quantity   decimal.Decimal
	Username   string
}

// Order stamps the message into an engine order with a fresh exchange
// UUID; the wire never carries ids for new orders.
func (o NewOrderMessage) Order() common.Order {
	return common.Order{
		UUID:       uuid.New().String(),
		AssetType:  o.AssetType,
		OrderType:  o.OrderType,
		Ticker:     o.Ticker,
		Side:       o.Side,
		LimitPrice: o.LimitPrice,
		Quantity:   o.Quantity,
		Timestamp:  time.Now(),
		Owner:      o.Username,
	}
}

func (o NewOrderMessage) Serialize() []byte {
	w := &wireWriter{}
	w.uint16(uint16(NewOrder))
	w.uint16(uint16(o.AssetType))
	w.uint16(uint16(o.OrderType))
	w.byte(byte(o.Side))
	w.lpString(o.Ticker)
	w.decimal(o.LimitPrice)
	w.decimal(o.Quantity)
	w.lpString(o.Username)
	return w.buf
}

func parseNewOrder(r *wireReader) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	m.AssetType = common.AssetType(r.uint16())
	m.OrderType = common.OrderType(r.uint16())
	m.Side = book.Side(r.byte())
	m.Ticker = r.lpString()
	m.LimitPrice = r.decimal()
	m.Quantity = r.decimal()
	m.Username = r.lpString()

	if r.err != nil {
		return NewOrderMessage{}, r.err
	}
	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	AssetType common.AssetType
	OrderUUID string
}

func (o CancelOrderMessage) Serialize() []byte {
	w := &wireWriter{}
	w.uint16(uint16(CancelOrder))
	w.uint16(uint16(o.AssetType))
	w.lpString(o.OrderUUID)
	return w.buf
}

func parseCancelOrder(r *wireReader) (CancelOrderMessage, error) {
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}

	m.AssetType = common.AssetType(r.uint16())
	m.OrderUUID = r.lpString()

	if r.err != nil {
		return CancelOrderMessage{}, r.err
	}
	return m, nil
}

type QuoteMarketMessage struct {
	BaseMessage
	AssetType common.AssetType
	Side      book.Side
	Quantity  decimal.Decimal
}

func (o QuoteMarketMessage) Serialize() []byte {
	w := &wireWriter{}
	w.uint16(uint16(QuoteMarket))
	w.uint16(uint16(o.AssetType))
	w.byte(byte(o.Side))
	w.decimal(o.Quantity)
	return w.buf
}

func parseQuoteMarket(r *wireReader) (QuoteMarketMessage, error) {
	m := QuoteMarketMessage{BaseMessage: BaseMessage{TypeOf: QuoteMarket}}

	m.AssetType = common.AssetType(r.uint16())
	m.Side = book.Side(r.byte())
	m.Quantity = r.decimal()

	if r.err != nil {
		return QuoteMarketMessage{}, r.err
	}
	return m, nil
}

// SerializeLogBook frames the argument-free book dump request.
func SerializeLogBook() []byte {
	w := &wireWriter{}
	w.uint16(uint16(LogBook))
	return w.buf
}

// Report is the single outbound frame. Execution reports carry a fill,
// quote reports the filled/cost pair, error reports just the error text.
type Report struct {
	MessageType ReportMessageType
	AssetType   common.AssetType
	Timestamp   uint64
	Ticker      string
	OrderUUID   string
	Quantity    string // decimal string, empty when unused
	Cost        string // decimal string, empty when unused
	Err         string
}

// Serialize converts the report to be sent on the wire.
func (r Report) Serialize() []byte {
	w := &wireWriter{}
	w.byte(byte(r.MessageType))
	w.uint16(uint16(r.AssetType))
	w.uint64(r.Timestamp)
	w.lpString(r.Ticker)
	w.lpString(r.OrderUUID)
	w.lpString(r.Quantity)
	w.lpString(r.Cost)
	w.lpString(r.Err)
	return w.buf
}

// ParseReport decodes a report frame; the client uses it to print what the
// exchange sent back.
func ParseReport(msg []byte) (Report, error) {
	r := &wireReader{buf: msg}

	report := Report{
		MessageType: ReportMessageType(r.byte()),
		AssetType:   common.AssetType(r.uint16()),
		Timestamp:   r.uint64(),
		Ticker:      r.lpString(),
		OrderUUID:   r.lpString(),
		Quantity:    r.lpString(),
		Cost:        r.lpString(),
		Err:         r.lpString(),
	}

	if r.err != nil {
		return Report{}, r.err
	}
	return report, nil
}

func fillReportFrame(report common.FillReport) []byte {
	return Report{
		MessageType: ExecutionReport,
		AssetType:   report.AssetType,
		Timestamp:   uint64(report.Timestamp.UnixNano()),
		Ticker:      report.Ticker,
		OrderUUID:   string(report.Fill.Order),
		Quantity:    report.Fill.Quantity.String(),
		Cost:        report.Fill.Cost.String(),
	}.Serialize()
}

func quoteReportFrame(assetType common.AssetType, filled, cost decimal.Decimal) []byte {
	return Report{
		MessageType: QuoteReport,
		AssetType:   assetType,
		Timestamp:   uint64(time.Now().UnixNano()),
		Quantity:    filled.String(),
		Cost:        cost.String(),
	}.Serialize()
}

func acceptedReportFrame(order common.Order) []byte {
	return Report{
		MessageType: OrderAccepted,
		AssetType:   order.AssetType,
		Timestamp:   uint64(order.Timestamp.UnixNano()),
		Ticker:      order.Ticker,
		OrderUUID:   string(order.UUID),
		Quantity:    order.Quantity.String(),
	}.Serialize()
}

func errorReportFrame(err error) []byte {
	return Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		Err:         err.Error(),
	}.Serialize()
}
