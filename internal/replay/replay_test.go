package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"itchbook/internal/config"
	"itchbook/internal/itch"
	"itchbook/internal/orderbook"
)

func writeCapture(t *testing.T, msgs ...itch.Message) string {
	t.Helper()
	var buf []byte
	for _, m := range msgs {
		buf = itch.Append(buf, m)
	}
	path := filepath.Join(t.TempDir(), "capture.itch")
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(file string, chunk int) config.Config {
	cfg := config.Load()
	cfg.Replay.File = file
	cfg.Replay.ChunkBytes = chunk
	cfg.Replay.OnFull = OnFullWait
	return cfg
}

func addMsg(id uint64, shares uint32, price float32, ts uint64) itch.AddOrder {
	return itch.AddOrder{
		Header:   itch.Header{Timestamp: ts},
		OrderRef: id,
		Side:     'B',
		Shares:   shares,
		Stock:    itch.PadSymbol("TSLA"),
		Price:    price,
	}
}

func TestRunFeedsBook(t *testing.T) {
	path := writeCapture(t,
		addMsg(1, 100, 10.0, 1),
		itch.OrderCancel{Header: itch.Header{Timestamp: 2}, OrderRef: 1, Cancelled: 40},
		itch.OrderDelete{Header: itch.Header{Timestamp: 3}, OrderRef: 1},
	)
	book := orderbook.New("TSLA")
	if err := book.Start(); err != nil {
		t.Fatal(err)
	}

	p := New(testConfig(path, 64*1024), book, zerolog.Nop())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if err := book.Stop(); err != nil {
		t.Fatal(err)
	}

	if got := p.Records(); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}
	if book.Depth() != 0 {
		t.Fatalf("expected empty book after replay, depth=%d", book.Depth())
	}
}

// A tiny chunk size forces records to straddle chunk boundaries; the
// truncated tail must be carried into the next read.
func TestChunkBoundaryCarry(t *testing.T) {
	msgs := make([]itch.Message, 0, 64)
	for i := uint64(1); i <= 64; i++ {
		msgs = append(msgs, addMsg(i, 10, 10.0, i))
	}
	path := writeCapture(t, msgs...)

	book := orderbook.New("TSLA")
	if err := book.Start(); err != nil {
		t.Fatal(err)
	}
	p := New(testConfig(path, 7), book, zerolog.Nop())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if err := book.Stop(); err != nil {
		t.Fatal(err)
	}
	if book.Depth() != 64 {
		t.Fatalf("expected 64 resting orders, got %d", book.Depth())
	}
}

func TestTrailingGarbageFails(t *testing.T) {
	path := writeCapture(t, addMsg(1, 10, 10.0, 1))
	raw, _ := os.ReadFile(path)
	raw = append(raw, 0x00) // 0 is not a valid type byte
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	book := orderbook.New("TSLA")
	if err := book.Start(); err != nil {
		t.Fatal(err)
	}
	defer book.Stop()

	p := New(testConfig(path, 64*1024), book, zerolog.Nop())
	err := p.Run(context.Background())
	if !errors.Is(err, itch.ErrUnknownMessageType) {
		t.Fatalf("expected unknown message type error, got %v", err)
	}
}

func TestTruncatedCaptureFails(t *testing.T) {
	path := writeCapture(t, addMsg(1, 10, 10.0, 1))
	raw, _ := os.ReadFile(path)
	if err := os.WriteFile(path, raw[:len(raw)-3], 0o600); err != nil {
		t.Fatal(err)
	}

	book := orderbook.New("TSLA")
	if err := book.Start(); err != nil {
		t.Fatal(err)
	}
	defer book.Stop()

	p := New(testConfig(path, 64*1024), book, zerolog.Nop())
	err := p.Run(context.Background())
	if !errors.Is(err, itch.ErrTruncated) {
		t.Fatalf("expected truncated error, got %v", err)
	}
}

// With the wait policy and a stopped consumer, a full queue parks the
// producer until the context gives up.
func TestWaitPolicyHonorsContext(t *testing.T) {
	msgs := make([]itch.Message, 0, 32)
	for i := uint64(1); i <= 32; i++ {
		msgs = append(msgs, addMsg(i, 10, 10.0, i))
	}
	path := writeCapture(t, msgs...)

	// book never started: the queue accepts 8 records, then stays full
	book := orderbook.New("TSLA", orderbook.WithQueueCapacity(8))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	p := New(testConfig(path, 64*1024), book, zerolog.Nop())
	err := p.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDropPolicySkipsWhenFull(t *testing.T) {
	msgs := make([]itch.Message, 0, 32)
	for i := uint64(1); i <= 32; i++ {
		msgs = append(msgs, addMsg(i, 10, 10.0, i))
	}
	path := writeCapture(t, msgs...)

	book := orderbook.New("TSLA", orderbook.WithQueueCapacity(8))
	cfg := testConfig(path, 64*1024)
	cfg.Replay.OnFull = OnFullDrop

	p := New(cfg, book, zerolog.Nop())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("drop policy must not fail on a full queue: %v", err)
	}
	if got := p.Records(); got != 32 {
		t.Fatalf("all records should be accounted, got %d", got)
	}
	// consumer never ran; only the first 8 made it into the queue
	if err := book.Start(); err != nil {
		t.Fatal(err)
	}
	if err := book.Stop(); err != nil {
		t.Fatal(err)
	}
	if book.Depth() != 8 {
		t.Fatalf("expected 8 resting orders after drop replay, got %d", book.Depth())
	}
}
