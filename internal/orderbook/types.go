package orderbook

import (
	"fmt"
	"math"
)

// Side is the resting side of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// SideFromIndicator maps the wire buy/sell indicator ('B'/'S') to a Side.
func SideFromIndicator(b byte) Side {
	if b == 'B' {
		return Buy
	}
	return Sell
}

// ExecType distinguishes limit orders from caller-injected market orders.
// The feed only ever produces Limit.
type ExecType uint8

const (
	Market ExecType = iota
	Limit
)

// TimeInForce is carried for observers; the book does not act on it.
type TimeInForce uint8

const (
	Day TimeInForce = iota
	GTC
	IOC
	FOK
)

// Price4 is a price in ten-thousandths of a currency unit. The wire carries
// IEEE-754 f32 prices; converting to a fixed-point integer at the boundary
// makes prices exact map keys and removes float comparison hazards from the
// book entirely.
type Price4 uint32

// PriceFromFloat converts a decimal price to its fixed-point form, rounding
// to the nearest ten-thousandth.
func PriceFromFloat(f float64) Price4 {
	return Price4(math.Round(f * 1e4))
}

// Float64 converts back to a decimal price for display and diagnostics.
func (p Price4) Float64() float64 { return float64(p) / 1e4 }

func (p Price4) String() string { return fmt.Sprintf("%.4f", p.Float64()) }

// Order is the authoritative record of one resting order. Every resting
// order has HasPrice set and Quantity > 0.
type Order struct {
	ID          uint64
	Side        Side
	Exec        ExecType
	TIF         TimeInForce
	Price       Price4
	Quantity    uint32
	TimestampNS uint64
	HasPrice    bool
}

func (o Order) String() string {
	price := "market"
	if o.HasPrice {
		price = o.Price.String()
	}
	return fmt.Sprintf("Order(id=%d, side=%s, price=%s, qty=%d, ts=%dns)",
		o.ID, o.Side, price, o.Quantity, o.TimestampNS)
}

// priceLevel is the FIFO queue of order ids resting at one price. A level
// exists iff its queue is non-empty.
type priceLevel struct {
	price Price4
	queue []uint64
}

func (l *priceLevel) push(id uint64) {
	l.queue = append(l.queue, id)
}

// remove erases id from the queue preserving arrival order of the rest.
// Linear over the level depth, which stays small in practice.
func (l *priceLevel) remove(id uint64) bool {
	for i, v := range l.queue {
		if v == id {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (l *priceLevel) empty() bool { return len(l.queue) == 0 }
