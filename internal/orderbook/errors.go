package orderbook

import "errors"

var (
	ErrUnknownOrderID   = errors.New("orderbook: unknown order id")
	ErrDuplicateOrderID = errors.New("orderbook: duplicate order id")
	ErrOverCancel       = errors.New("orderbook: cancel exceeds remaining quantity")
	ErrSymbolMismatch   = errors.New("orderbook: message symbol does not match book")
	ErrQueueFull        = errors.New("orderbook: message queue full")
	ErrAlreadyRunning   = errors.New("orderbook: already running")
	ErrNotRunning       = errors.New("orderbook: not running")
)
