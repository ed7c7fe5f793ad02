package orderbook

import (
	"fmt"

	"github.com/tidwall/btree"
)

// The book state below is owned by the driver goroutine. None of it is
// synchronized; see Book for the threading contract.
//
// Three structures hold the state, tied together by invariants that every
// mutator restores before returning:
//   - orders: id → record, the authoritative copy
//   - bids/asks: price → FIFO of ids, bids iterated descending, asks ascending
//   - every resting id is in exactly one level queue, at its order's price,
//     on its order's side; empty levels are pruned immediately
type bookSide struct {
	levels *btree.Map[Price4, *priceLevel]
}

func newBookSide() bookSide {
	return bookSide{levels: btree.NewMap[Price4, *priceLevel](32)}
}

func (b *Book) sideOf(s Side) *bookSide {
	if s == Buy {
		return &b.bids
	}
	return &b.asks
}

// insert records a new resting order and appends it to the tail of its
// level, creating the level if absent.
func (b *Book) insert(o Order) error {
	if !o.HasPrice {
		// Market orders never rest; mirror the feed contract and drop.
		return nil
	}
	if _, ok := b.orders[o.ID]; ok {
		return fmt.Errorf("add order %d: %w", o.ID, ErrDuplicateOrderID)
	}
	b.orders[o.ID] = &o

	side := b.sideOf(o.Side)
	level, ok := side.levels.Get(o.Price)
	if !ok {
		level = &priceLevel{price: o.Price}
		side.levels.Set(o.Price, level)
	}
	level.push(o.ID)
	return nil
}

// remove deletes an order from its queue and the index, pruning the level
// if it became empty. Returns the removed record.
func (b *Book) remove(id uint64) (Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("remove order %d: %w", id, ErrUnknownOrderID)
	}

	side := b.sideOf(o.Side)
	if level, ok := side.levels.Get(o.Price); ok {
		level.remove(id)
		if level.empty() {
			side.levels.Delete(o.Price)
		}
	}
	delete(b.orders, id)
	return *o, nil
}

// reduce decreases an order's remaining quantity, deleting it when the
// remainder reaches zero. Cancels and executions share this path, so an
// oversized reduction surfaces ErrOverCancel for either.
func (b *Book) reduce(id uint64, qty uint32) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("reduce order %d: %w", id, ErrUnknownOrderID)
	}
	if qty > o.Quantity {
		return fmt.Errorf("reduce order %d by %d of %d: %w", id, qty, o.Quantity, ErrOverCancel)
	}
	o.Quantity -= qty
	if o.Quantity == 0 {
		_, err := b.remove(id)
		return err
	}
	return nil
}

// replaceOrder atomically removes the old order and adds a new one with the
// supplied id, price, and quantity, inheriting side, execution type, and
// time in force. The new timestamp comes from the driving message.
func (b *Book) replaceOrder(oldID, newID uint64, qty uint32, price Price4, ts uint64) error {
	if _, ok := b.orders[newID]; ok {
		return fmt.Errorf("replace %d -> %d: %w", oldID, newID, ErrDuplicateOrderID)
	}
	old, err := b.remove(oldID)
	if err != nil {
		return fmt.Errorf("replace %d -> %d: %w", oldID, newID, ErrUnknownOrderID)
	}
	if qty == 0 {
		// Nothing left to rest; the replace degenerates to a delete.
		return nil
	}
	return b.insert(Order{
		ID:          newID,
		Side:        old.Side,
		Exec:        old.Exec,
		TIF:         old.TIF,
		Price:       price,
		Quantity:    qty,
		TimestampNS: ts,
		HasPrice:    true,
	})
}

// BestBid returns the highest resting bid price, or false when the bid side
// is empty. Callers outside the driver goroutine get a diagnostic value
// only; see the Book threading contract.
func (b *Book) BestBid() (Price4, bool) {
	price, _, ok := b.bids.levels.Max()
	return price, ok
}

// BestAsk returns the lowest resting ask price, or false when the ask side
// is empty.
func (b *Book) BestAsk() (Price4, bool) {
	price, _, ok := b.asks.levels.Min()
	return price, ok
}

// Order returns a copy of the resting order record for id.
func (b *Book) Order(id uint64) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Depth returns the number of resting orders.
func (b *Book) Depth() int { return len(b.orders) }
