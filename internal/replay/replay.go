// Package replay streams a captured ITCH byte file into a book. Records are
// fed in capture order; a record that lands on a chunk boundary is carried
// over and retried once more bytes are read.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"itchbook/internal/config"
	"itchbook/internal/infra/metrics"
	"itchbook/internal/itch"
	"itchbook/internal/orderbook"
)

// Full-queue policies.
const (
	OnFullWait = "wait" // sleep briefly and retry the same record
	OnFullDrop = "drop" // count the record and move on
)

// backoff between submit retries under the wait policy.
const fullBackoff = 50 * time.Microsecond

type Player struct {
	book    *orderbook.Book
	log     zerolog.Logger
	file    string
	chunk   int
	onFull  string
	records uint64
	offset  int64 // absolute position of the next undecoded byte
}

func New(cfg config.Config, book *orderbook.Book, logger zerolog.Logger) *Player {
	return &Player{
		book:   book,
		log:    logger,
		file:   cfg.Replay.File,
		chunk:  cfg.Replay.ChunkBytes,
		onFull: cfg.Replay.OnFull,
	}
}

// Records returns how many records have been decoded and handed to the book
// so far, including any dropped on a full queue under the drop policy.
func (p *Player) Records() uint64 { return p.records }

// Run feeds the whole capture through the book's queue, honoring the
// configured full-queue policy, and returns once the file is exhausted or
// the context is cancelled. A capture ending mid-record is an error.
func (p *Player) Run(ctx context.Context) error {
	f, err := os.Open(p.file)
	if err != nil {
		return fmt.Errorf("replay: open capture: %w", err)
	}
	defer f.Close()

	p.log.Info().Str("file", p.file).Int("chunk_bytes", p.chunk).Str("on_full", p.onFull).Msg("replay started")

	pending := make([]byte, 0, 2*p.chunk)
	chunk := make([]byte, p.chunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := f.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			metrics.ReplayBytesTotal.Add(float64(n))

			start := time.Now()
			consumed, serr := p.submitAll(ctx, pending)
			metrics.ReplayChunkSeconds.Observe(time.Since(start).Seconds())

			p.offset += int64(consumed)
			pending = pending[:copy(pending, pending[consumed:])]
			if serr != nil && !errors.Is(serr, itch.ErrTruncated) {
				return fmt.Errorf("replay: offset %d: %w", p.offset, serr)
			}
		}
		if rerr == io.EOF {
			if len(pending) != 0 {
				return fmt.Errorf("replay: %d trailing bytes at offset %d: %w",
					len(pending), p.offset, itch.ErrTruncated)
			}
			p.log.Info().Uint64("records", p.records).Int64("bytes", p.offset).Msg("replay finished")
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("replay: read capture: %w", rerr)
		}
	}
}

// submitAll decodes and enqueues complete records from buf, returning how
// many bytes it consumed. ErrTruncated means the tail needs more bytes and
// is not a failure.
func (p *Player) submitAll(ctx context.Context, buf []byte) (int, error) {
	off := 0
	for off < len(buf) {
		msg, n, err := itch.Decode(buf[off:])
		if err != nil {
			return off, err
		}
		if err := p.submit(ctx, msg); err != nil {
			return off, err
		}
		metrics.MessagesDecoded.WithLabelValues(string(msg.Type())).Inc()
		metrics.ReplayRecordsTotal.Inc()
		p.records++
		off += n
	}
	return off, nil
}

func (p *Player) submit(ctx context.Context, msg itch.Message) error {
	for {
		err := p.book.Submit(msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, orderbook.ErrQueueFull) {
			return err
		}
		if p.onFull == OnFullDrop {
			metrics.ReplayDroppedTotal.Inc()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(fullBackoff)
	}
}
