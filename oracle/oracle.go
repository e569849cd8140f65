// Package oracle defines the external unpredictable-randomness source consumed
// by the coordinator. The protocol is a single asynchronous round-trip: a
// request returns a handle immediately and the random words arrive later on
// the fulfillment channel.
package oracle

import (
	"context"
	"math/big"
)

// RequestID is the handle returned by the oracle for a pending request.
type RequestID uint64

// RequestConfig mirrors the oracle's request parameters. WordCount is fixed
// at 1 for circle payout ordering.
type RequestConfig struct {
	KeyHash              [32]byte
	SubscriptionID       uint64
	MinimumConfirmations uint16
	CallbackGasLimit     uint32
	WordCount            uint32
	NativePayment        bool
}

// Fulfillment carries the random words delivered for a previous request.
type Fulfillment struct {
	RequestID RequestID
	Words     []*big.Int
}

// Source issues randomness requests and delivers fulfillments asynchronously.
// There is exactly one consumer of the fulfillment channel: the coordinator.
type Source interface {
	// Request issues a randomness request and returns its handle. The
	// corresponding Fulfillment arrives later on Fulfillments.
	Request(ctx context.Context, cfg RequestConfig) (RequestID, error)
	// Fulfillments returns the channel on which fulfillments are delivered.
	Fulfillments() <-chan Fulfillment
}
