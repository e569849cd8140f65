package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/rondafi/ronda/coordinator"
	"github.com/rondafi/ronda/oracle"
)

// defaultRetryInterval is how often the stalled-request monitor runs.
const defaultRetryInterval = time.Minute

// CoordinatorService consumes oracle fulfillments and feeds them into the
// coordinator. It is the single consumer of the oracle's fulfillment channel;
// it also periodically re-issues randomness requests that passed their
// deadline without an answer.
type CoordinatorService struct {
	coord         *coordinator.Coordinator
	source        oracle.Source
	retryInterval time.Duration
	mu            sync.Mutex
	cancel        context.CancelFunc
}

// NewCoordinator creates a new CoordinatorService. A non-positive
// retryInterval falls back to the default of one minute.
func NewCoordinator(coord *coordinator.Coordinator, source oracle.Source, retryInterval time.Duration) *CoordinatorService {
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	return &CoordinatorService{
		coord:         coord,
		source:        source,
		retryInterval: retryInterval,
	}
}

// Start begins consuming fulfillments. It returns an error if the service is
// already running.
func (cs *CoordinatorService) Start(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	cs.cancel = cancel

	go cs.consume(ctx)
	return nil
}

// Stop halts the fulfillment consumer.
func (cs *CoordinatorService) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cancel != nil {
		cs.cancel()
		cs.cancel = nil
	}
}

func (cs *CoordinatorService) consume(ctx context.Context) {
	ticker := time.NewTicker(cs.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-cs.source.Fulfillments():
			if err := cs.coord.Fulfill(f.RequestID, f.Words); err != nil {
				log.Warnw("fulfillment rejected",
					"requestId", uint64(f.RequestID),
					"error", err.Error(),
				)
			}
		case <-ticker.C:
			cs.coord.RetryStalled()
		}
	}
}
