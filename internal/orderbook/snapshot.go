package orderbook

import (
	"fmt"
	"io"
	"os"
)

// Level is one aggregated price level in an L2 view.
type Level struct {
	Price  Price4
	Qty    uint64 // sum of remaining quantities at the level
	Orders int
}

// L2 is a depth snapshot of both sides.
type L2 struct {
	Bids []Level // sorted desc by price
	Asks []Level // sorted asc by price
}

// Snapshot aggregates up to depth levels per side. depth <= 0 means all
// levels. Subject to the same diagnostic-read caveat as BestBid.
func (b *Book) Snapshot(depth int) L2 {
	var out L2
	b.bids.levels.Reverse(func(price Price4, level *priceLevel) bool {
		out.Bids = append(out.Bids, b.aggregate(level))
		return depth <= 0 || len(out.Bids) < depth
	})
	b.asks.levels.Scan(func(price Price4, level *priceLevel) bool {
		out.Asks = append(out.Asks, b.aggregate(level))
		return depth <= 0 || len(out.Asks) < depth
	})
	return out
}

func (b *Book) aggregate(level *priceLevel) Level {
	var qty uint64
	for _, id := range level.queue {
		if o, ok := b.orders[id]; ok {
			qty += uint64(o.Quantity)
		}
	}
	return Level{Price: level.price, Qty: qty, Orders: len(level.queue)}
}

// Dump writes a human-readable rendering of the full book, best prices
// first on each side.
func (b *Book) Dump(w io.Writer) {
	fmt.Fprintln(w, "--- BIDS ---")
	b.bids.levels.Reverse(func(price Price4, level *priceLevel) bool {
		b.dumpLevel(w, level)
		return true
	})
	fmt.Fprintln(w, "--- ASKS ---")
	b.asks.levels.Scan(func(price Price4, level *priceLevel) bool {
		b.dumpLevel(w, level)
		return true
	})
}

func (b *Book) dumpLevel(w io.Writer, level *priceLevel) {
	fmt.Fprintf(w, "Price %s:\n", level.price)
	for _, id := range level.queue {
		if o, ok := b.orders[id]; ok {
			fmt.Fprintf(w, "  %s\n", o)
		}
	}
}

// Print dumps the book to stdout.
func (b *Book) Print() { b.Dump(os.Stdout) }
