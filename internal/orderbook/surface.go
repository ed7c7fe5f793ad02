package orderbook

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"itchbook/internal/infra/metrics"
	"itchbook/internal/itch"
	"itchbook/internal/spsc"
)

// DefaultQueueCapacity bounds the submit queue when no option overrides it.
const DefaultQueueCapacity = 10_000

// Book mirrors exchange state for a single symbol from an already-matched
// ITCH replay. It never matches orders itself.
//
// Threading contract: exactly one producer goroutine may call Submit,
// SubmitBytes, and AddOrder, concurrent with the one consumer goroutine the
// driver owns. All book mutation happens on the consumer. BestBid, BestAsk,
// Order, Depth, and Snapshot called from any other goroutine are unsynchronized
// diagnostic reads; after Stop returns they are exact.
type Book struct {
	symbol   string
	wireSym  [8]byte
	tickSize float64

	orders map[uint64]*Order
	bids   bookSide
	asks   bookSide

	queue     *spsc.Ring[itch.Message]
	run       atomic.Int32
	done      chan struct{}
	idleSleep time.Duration

	onMessage func(itch.Message)
	onError   func(error, itch.Message)
	log       zerolog.Logger

	nextLocalID uint64
}

// Option configures a Book at construction.
type Option func(*Book)

// WithTickSize records the instrument tick size. Metadata only; the book
// does not enforce tick conformance.
func WithTickSize(ts float64) Option {
	return func(b *Book) { b.tickSize = ts }
}

// WithQueueCapacity bounds the submit queue.
func WithQueueCapacity(n int) Option {
	return func(b *Book) { b.queue = spsc.New[itch.Message](n) }
}

// WithIdleSleep tunes the consumer's empty-queue sleep.
func WithIdleSleep(d time.Duration) Option {
	return func(b *Book) { b.idleSleep = d }
}

// WithLogger routes driver logging.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Book) { b.log = l }
}

// WithObserver registers a callback invoked on the driver goroutine for
// every message before it is applied. It must not block.
func WithObserver(fn func(itch.Message)) Option {
	return func(b *Book) { b.onMessage = fn }
}

// WithErrorObserver replaces the default log-and-continue apply-error
// handler. It runs on the driver goroutine.
func WithErrorObserver(fn func(error, itch.Message)) Option {
	return func(b *Book) { b.onError = fn }
}

// New constructs a stopped book for symbol. The symbol is canonicalized to
// the 8-byte space-padded wire form (longer names are truncated).
func New(symbol string, opts ...Option) *Book {
	wire := itch.PadSymbol(symbol)
	b := &Book{
		symbol:    itch.SymbolString(wire),
		wireSym:   wire,
		tickSize:  0.01,
		orders:    make(map[uint64]*Order),
		bids:      newBookSide(),
		asks:      newBookSide(),
		queue:     spsc.New[itch.Message](DefaultQueueCapacity),
		idleSleep: time.Microsecond,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.onError == nil {
		b.onError = defaultErrorObserver(b.log)
	}
	return b
}

// Symbol returns the canonical symbol string.
func (b *Book) Symbol() string { return b.symbol }

// WireSymbol returns the 8-byte padded form used on the wire.
func (b *Book) WireSymbol() [8]byte { return b.wireSym }

// TickSize returns the configured tick size.
func (b *Book) TickSize() float64 { return b.tickSize }

// Submit enqueues one typed message for the driver. It fails with
// ErrQueueFull instead of blocking; the caller chooses whether to drop,
// retry, or widen the queue.
func (b *Book) Submit(msg itch.Message) error {
	if !b.queue.TryPush(msg) {
		metrics.QueueFullTotal.Inc()
		return ErrQueueFull
	}
	metrics.QueueDepth.Set(float64(b.queue.Len()))
	return nil
}

// SubmitBytes decodes a buffer of concatenated wire records and enqueues
// each. It returns the number of bytes consumed; on error, parsing halted at
// that offset and everything before it was enqueued. An ErrTruncated return
// means the final record is incomplete; the caller may retry with the
// unconsumed tail plus more bytes.
func (b *Book) SubmitBytes(buf []byte) (int, error) {
	consumed := 0
	for consumed < len(buf) {
		msg, n, err := itch.Decode(buf[consumed:])
		if err != nil {
			return consumed, err
		}
		if err := b.Submit(msg); err != nil {
			return consumed, err
		}
		metrics.MessagesDecoded.WithLabelValues(string(msg.Type())).Inc()
		consumed += n
	}
	return consumed, nil
}

// AddOrder injects a limit GTC order outside the feed. The id is minted on
// the driver by probing a monotone counter past ids the feed has claimed;
// the timestamp is the host clock's nanoseconds since midnight.
func (b *Book) AddOrder(price float64, qty uint32, side Side) error {
	return b.Submit(localAdd{
		side:  side,
		price: PriceFromFloat(price),
		qty:   qty,
		ts:    nsSinceMidnight(),
	})
}

func nsSinceMidnight() uint64 {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return uint64(now.Sub(midnight))
}
