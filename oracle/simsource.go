package oracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// SimSource is a simulated randomness oracle: each request is fulfilled with
// keccak256(seed ‖ requestID), optionally after a fixed delay. It is
// deterministic for a given seed, which makes test runs reproducible.
type SimSource struct {
	mu     sync.Mutex
	seed   []byte
	next   RequestID
	delay  time.Duration
	out    chan Fulfillment
	closed bool
}

// NewSimSource creates a simulated oracle. Delay is how long after a request
// its fulfillment is delivered; zero means almost immediately.
func NewSimSource(seed []byte, delay time.Duration) *SimSource {
	return &SimSource{
		seed:  seed,
		next:  1,
		delay: delay,
		out:   make(chan Fulfillment, 16),
	}
}

func (s *SimSource) Request(ctx context.Context, cfg RequestConfig) (RequestID, error) {
	if cfg.WordCount == 0 {
		return 0, fmt.Errorf("sim oracle: zero word count")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, fmt.Errorf("sim oracle: closed")
	}
	id := s.next
	s.next++
	s.mu.Unlock()

	words := make([]*big.Int, cfg.WordCount)
	for i := range words {
		buf := make([]byte, 16)
		binary.BigEndian.PutUint64(buf[:8], uint64(id))
		binary.BigEndian.PutUint64(buf[8:], uint64(i))
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(s.seed, buf))
	}

	go func() {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return
			}
		}
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		select {
		case s.out <- Fulfillment{RequestID: id, Words: words}:
		case <-ctx.Done():
		}
	}()
	return id, nil
}

func (s *SimSource) Fulfillments() <-chan Fulfillment {
	return s.out
}

// Close stops the source. Pending fulfillments not yet delivered are dropped.
func (s *SimSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
