package orderbook

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"itchbook/internal/infra/metrics"
	"itchbook/internal/itch"
)

// Driver lifecycle. stop drains whatever is still queued before the driver
// goroutine exits, so stopping never loses applied state.
const (
	stateStopped int32 = iota
	stateRunning
	stateStopping
)

// localAdd is a caller-minted order injected through AddOrder. It rides the
// same queue as wire messages; the id is assigned on the driver goroutine so
// probing the order index stays single-threaded.
type localAdd struct {
	side  Side
	price Price4
	qty   uint32
	ts    uint64
}

// Type returns 0, which no wire record uses.
func (localAdd) Type() byte { return 0 }

// loop is the consumer goroutine: it dispatches while the state is RUNNING
// and drains the queue once Stop has moved the state to STOPPING.
func (b *Book) loop() {
	defer close(b.done)
	for b.run.Load() == stateRunning {
		msg, ok := b.queue.TryPop()
		if !ok {
			// Bounded busy-wait: a short sleep instead of a hot spin
			// while the producer is quiet.
			time.Sleep(b.idleSleep)
			continue
		}
		b.dispatch(msg)
	}
	// Quiescent drain: apply everything enqueued before the stop signal.
	for {
		msg, ok := b.queue.TryPop()
		if !ok {
			break
		}
		b.dispatch(msg)
	}
}

// Start spawns the consumer goroutine. It fails with ErrAlreadyRunning from
// any state but STOPPED.
func (b *Book) Start() error {
	if !b.run.CompareAndSwap(stateStopped, stateRunning) {
		return ErrAlreadyRunning
	}
	b.done = make(chan struct{})
	go b.loop()
	b.log.Debug().Str("symbol", b.symbol).Msg("book driver started")
	return nil
}

// Stop signals the driver, waits for the queue to drain, and joins the
// consumer goroutine. Stopping an already stopped book is a no-op.
func (b *Book) Stop() error {
	for {
		switch b.run.Load() {
		case stateStopped:
			return nil
		case stateRunning:
			if b.run.CompareAndSwap(stateRunning, stateStopping) {
				<-b.done
				b.run.Store(stateStopped)
				b.log.Debug().Str("symbol", b.symbol).Msg("book driver stopped")
				return nil
			}
		case stateStopping:
			// Another goroutine won the stop race; wait for the join.
			<-b.done
			return nil
		}
	}
}

// Running reports whether the driver is currently consuming.
func (b *Book) Running() bool { return b.run.Load() == stateRunning }

// dispatch applies one message to the book state. Apply errors are surfaced
// through the error observer and never terminate the driver.
func (b *Book) dispatch(msg itch.Message) {
	if b.onMessage != nil {
		b.onMessage(msg)
	}

	var err error
	op := "observe"
	switch m := msg.(type) {
	case itch.AddOrder:
		op = "add"
		err = b.applyAdd(m)
	case itch.AddOrderMPID:
		op = "add"
		err = b.applyAdd(m.AddOrder)
	case itch.OrderDelete:
		op = "delete"
		_, err = b.remove(m.OrderRef)
	case itch.OrderCancel:
		op = "cancel"
		err = b.reduce(m.OrderRef, m.Cancelled)
	case itch.OrderExecuted:
		// The match number identifies the trade for observers; it is
		// not an order id and no second order is touched.
		op = "execute"
		err = b.reduce(m.OrderRef, m.Executed)
	case itch.OrderExecutedWithPrice:
		op = "execute"
		err = b.reduce(m.OrderRef, m.Executed)
	case itch.OrderReplace:
		op = "replace"
		err = b.replaceOrder(m.OrigRef, m.NewRef, m.Shares, PriceFromFloat(float64(m.Price)), m.Timestamp)
	case localAdd:
		op = "add"
		b.applyLocalAdd(m)
	default:
		// Administrative and trade types ('S','R','H','Y','L','V','W',
		// 'K','J','h','P','Q','B','I','N') are observed, never applied.
	}

	if err != nil {
		metrics.BookApplyErrors.WithLabelValues(applyErrorReason(err)).Inc()
		b.onError(err, msg)
		return
	}
	metrics.MessagesApplied.WithLabelValues(op).Inc()
	if op != "observe" {
		b.publishGauges()
	}
}

// applyAdd checks the symbol and rests the order from a wire add.
func (b *Book) applyAdd(m itch.AddOrder) error {
	if itch.SymbolString(m.Stock) != b.symbol {
		return ErrSymbolMismatch
	}
	return b.insert(Order{
		ID:          m.OrderRef,
		Side:        SideFromIndicator(m.Side),
		Exec:        Limit,
		TIF:         GTC,
		Price:       PriceFromFloat(float64(m.Price)),
		Quantity:    m.Shares,
		TimestampNS: m.Timestamp,
		HasPrice:    true,
	})
}

// applyLocalAdd mints a fresh id by probing the counter past any ids the
// feed has already claimed, then rests the order.
func (b *Book) applyLocalAdd(m localAdd) {
	id := b.nextLocalID + 1
	for {
		if _, taken := b.orders[id]; !taken {
			break
		}
		id++
	}
	b.nextLocalID = id

	// insert cannot fail here: the id was just probed free.
	_ = b.insert(Order{
		ID:          id,
		Side:        m.side,
		Exec:        Limit,
		TIF:         GTC,
		Price:       m.price,
		Quantity:    m.qty,
		TimestampNS: m.ts,
		HasPrice:    true,
	})
}

func (b *Book) publishGauges() {
	if bid, ok := b.BestBid(); ok {
		metrics.BestBidPrice.Set(bid.Float64())
	} else {
		metrics.BestBidPrice.Set(0)
	}
	if ask, ok := b.BestAsk(); ok {
		metrics.BestAskPrice.Set(ask.Float64())
	} else {
		metrics.BestAskPrice.Set(0)
	}
	metrics.RestingOrders.Set(float64(len(b.orders)))
}

func applyErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownOrderID):
		return "unknown_order"
	case errors.Is(err, ErrDuplicateOrderID):
		return "duplicate_order"
	case errors.Is(err, ErrOverCancel):
		return "over_cancel"
	case errors.Is(err, ErrSymbolMismatch):
		return "symbol_mismatch"
	default:
		return "other"
	}
}

// defaultErrorObserver logs and continues, per the drop-with-log policy.
func defaultErrorObserver(log zerolog.Logger) func(error, itch.Message) {
	return func(err error, msg itch.Message) {
		log.Warn().Err(err).Uint8("type", msg.Type()).Msg("message dropped")
	}
}
