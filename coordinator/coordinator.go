// Package coordinator is the registry and factory for savings circles. It
// validates creation parameters, relays each circle's one-time randomness
// request to the external oracle, and on fulfillment replays the random seed
// into the originating circle's payout-order assignment. It is the only path
// by which a circle receives its payout order.
package coordinator

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/rondafi/ronda/circle"
	"github.com/rondafi/ronda/oracle"
	"github.com/rondafi/ronda/storage"
	"github.com/rondafi/ronda/token"
	"github.com/rondafi/ronda/types"
)

// Creation parameter bounds.
const (
	MinParticipants = 2
	MaxParticipants = 50
	MinInterval     = 24 * time.Hour
	MaxInterval     = 30 * 24 * time.Hour
	MinGracePeriod  = 24 * time.Hour
	MaxGracePeriod  = 7 * 24 * time.Hour
)

// DefaultRequestTimeout is how long the coordinator waits for an oracle
// fulfillment before re-issuing the request.
const DefaultRequestTimeout = 10 * time.Minute

var (
	// ErrCircleNotFound is returned by lookups for unregistered ids.
	ErrCircleNotFound = fmt.Errorf("%w: circle not found", circle.ErrValidation)
	// ErrUnknownRequest is returned when a fulfillment references no
	// pending randomness request.
	ErrUnknownRequest = fmt.Errorf("%w: unknown randomness request", circle.ErrValidation)
)

// Config holds the coordinator's own parameters: the minimum contribution it
// accepts at circle creation and the fixed oracle request configuration
// (word count is always forced to 1).
type Config struct {
	MinContribution *big.Int
	Oracle          oracle.RequestConfig
	RequestTimeout  time.Duration
}

// CreateParams are the caller-supplied circle creation parameters.
type CreateParams struct {
	Contribution    *big.Int
	PayoutInterval  time.Duration
	GracePeriod     time.Duration
	MaxParticipants int
}

// Coordinator owns the circle registry. Registry operations are linearized
// under its mutex; the circles themselves each carry their own lock and are
// never called with the registry mutex held.
type Coordinator struct {
	cfg    Config
	ledger token.Ledger
	source oracle.Source
	store  *storage.Storage

	mu        sync.Mutex
	circles   map[types.CircleID]*circle.Circle
	active    map[types.CircleID]bool
	pending   map[oracle.RequestID]types.CircleID
	deadlines map[types.CircleID]time.Time

	now func() time.Time
}

// New creates a coordinator and restores any previously persisted circles and
// pending randomness requests from storage.
func New(cfg Config, ledger token.Ledger, source oracle.Source, store *storage.Storage) (*Coordinator, error) {
	if cfg.MinContribution == nil || cfg.MinContribution.Sign() <= 0 {
		return nil, fmt.Errorf("%w: minimum contribution must be positive", circle.ErrValidation)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	co := &Coordinator{
		cfg:       cfg,
		ledger:    ledger,
		source:    source,
		store:     store,
		circles:   make(map[types.CircleID]*circle.Circle),
		active:    make(map[types.CircleID]bool),
		pending:   make(map[oracle.RequestID]types.CircleID),
		deadlines: make(map[types.CircleID]time.Time),
		now:       time.Now,
	}
	if err := co.load(); err != nil {
		return nil, err
	}
	return co, nil
}

// load restores the registry from storage after a restart.
func (co *Coordinator) load() error {
	snaps, err := co.store.ListCircles()
	if err != nil {
		return fmt.Errorf("load circles: %w", err)
	}
	for _, snap := range snaps {
		c := circle.FromSnapshot(snap, co.ledger, co)
		c.SetEventSink(co.handleEvent)
		id := snap.Config.ID
		co.circles[id] = c
		co.active[id] = snap.State != types.CircleCompleted
		// An active circle without an order was waiting for a
		// fulfillment when we went down; re-arm the retry clock.
		if snap.State == types.CircleActive && !snap.OrderAssigned {
			co.deadlines[id] = co.now()
		}
	}
	reqs, err := co.store.PendingRequests()
	if err != nil {
		return fmt.Errorf("load pending requests: %w", err)
	}
	for _, req := range reqs {
		if _, ok := co.circles[req.CircleID]; !ok {
			log.Warnw("dropping pending request for unknown circle",
				"circleId", req.CircleID.String(), "requestId", req.RequestID)
			if err := co.store.DeletePendingRequest(req.RequestID); err != nil {
				log.Warnw("failed to delete orphaned request", "requestId", req.RequestID, "error", err.Error())
			}
			continue
		}
		co.pending[oracle.RequestID(req.RequestID)] = req.CircleID
		co.deadlines[req.CircleID] = req.Deadline
	}
	if len(snaps) > 0 {
		log.Infow("restored circle registry", "circles", len(snaps), "pendingRequests", len(reqs))
	}
	return nil
}

// CreateCircle validates the creation parameters, instantiates a circle with
// a fresh sequential id, and registers it active. No circle is created on a
// validation failure.
func (co *Coordinator) CreateCircle(creator common.Address, p CreateParams) (types.CircleID, error) {
	if creator == (common.Address{}) {
		return 0, fmt.Errorf("%w: missing creator address", circle.ErrValidation)
	}
	if p.Contribution == nil || p.Contribution.Cmp(co.cfg.MinContribution) < 0 {
		return 0, fmt.Errorf("%w: contribution below minimum %s", circle.ErrValidation, co.cfg.MinContribution)
	}
	if p.PayoutInterval < MinInterval || p.PayoutInterval > MaxInterval {
		return 0, fmt.Errorf("%w: payout interval %s outside [%s, %s]", circle.ErrValidation, p.PayoutInterval, MinInterval, MaxInterval)
	}
	if p.MaxParticipants < MinParticipants || p.MaxParticipants > MaxParticipants {
		return 0, fmt.Errorf("%w: participant count %d outside [%d, %d]", circle.ErrValidation, p.MaxParticipants, MinParticipants, MaxParticipants)
	}
	if p.GracePeriod < MinGracePeriod || p.GracePeriod > MaxGracePeriod {
		return 0, fmt.Errorf("%w: grace period %s outside [%s, %s]", circle.ErrValidation, p.GracePeriod, MinGracePeriod, MaxGracePeriod)
	}

	co.mu.Lock()
	id, err := co.store.NextCircleID()
	if err != nil {
		co.mu.Unlock()
		return 0, fmt.Errorf("assign circle id: %w", err)
	}
	cfg := types.CircleConfig{
		ID:              id,
		Creator:         creator,
		Contribution:    (*types.BigInt)(new(big.Int).Set(p.Contribution)),
		PayoutInterval:  p.PayoutInterval,
		GracePeriod:     p.GracePeriod,
		MaxParticipants: p.MaxParticipants,
	}
	c := circle.New(cfg, co.ledger, co)
	c.SetEventSink(co.handleEvent)
	co.circles[id] = c
	co.active[id] = true
	co.mu.Unlock()

	if err := co.store.SetCircle(c.Snapshot()); err != nil {
		log.Warnw("failed to persist new circle", "circleId", id.String(), "error", err.Error())
	}
	log.Infow("circle created",
		"circleId", id.String(),
		"creator", creator.Hex(),
		"contribution", p.Contribution.String(),
		"participants", p.MaxParticipants,
		"interval", p.PayoutInterval.String(),
	)
	return id, nil
}

// RequestRandomness issues the one-time randomness request for a circle's
// payout order. Only the circle registered under the given id may request;
// the handle passed by the circle is compared against the registry.
func (co *Coordinator) RequestRandomness(id types.CircleID, c *circle.Circle) error {
	co.mu.Lock()
	registered, ok := co.circles[id]
	if !ok || registered != c {
		co.mu.Unlock()
		return fmt.Errorf("%w: randomness request from unregistered circle %s", circle.ErrAuthorization, id)
	}
	if !co.active[id] {
		co.mu.Unlock()
		return fmt.Errorf("%w: circle %s is not active in the registry", circle.ErrAuthorization, id)
	}
	// Record the waiting state before calling out, so a failed oracle
	// request is picked up by RetryStalled.
	co.deadlines[id] = co.now()
	co.mu.Unlock()

	return co.issueRequest(id)
}

// issueRequest sends one oracle request for the given circle and records the
// returned handle in the pending table, in memory and in storage.
func (co *Coordinator) issueRequest(id types.CircleID) error {
	cfg := co.cfg.Oracle
	cfg.WordCount = 1
	reqID, err := co.source.Request(context.Background(), cfg)
	if err != nil {
		log.Warnw("randomness request failed", "circleId", id.String(), "error", err.Error())
		return fmt.Errorf("randomness request for circle %s: %w", id, err)
	}
	deadline := co.now().Add(co.cfg.RequestTimeout)
	co.mu.Lock()
	co.pending[reqID] = id
	co.deadlines[id] = deadline
	co.mu.Unlock()

	if err := co.store.SetPendingRequest(storage.PendingRequest{
		RequestID: uint64(reqID),
		CircleID:  id,
		Deadline:  deadline,
	}); err != nil {
		log.Warnw("failed to persist pending request", "requestId", uint64(reqID), "error", err.Error())
	}
	log.Debugw("randomness requested", "circleId", id.String(), "requestId", uint64(reqID))
	return nil
}

// Fulfill delivers the oracle's random words for a pending request to the
// originating circle. Each request handle is consumed exactly once.
func (co *Coordinator) Fulfill(requestID oracle.RequestID, words []*big.Int) error {
	co.mu.Lock()
	id, ok := co.pending[requestID]
	if !ok {
		co.mu.Unlock()
		return ErrUnknownRequest
	}
	// A malformed fulfillment must not consume the request: the pending
	// entry and its deadline stay put so RetryStalled re-issues it.
	if len(words) == 0 {
		co.mu.Unlock()
		return fmt.Errorf("%w: fulfillment carries no words", circle.ErrValidation)
	}
	delete(co.pending, requestID)
	delete(co.deadlines, id)
	c := co.circles[id]
	co.mu.Unlock()

	if err := co.store.DeletePendingRequest(uint64(requestID)); err != nil {
		log.Warnw("failed to delete pending request", "requestId", uint64(requestID), "error", err.Error())
	}
	if c == nil {
		// A pending entry can outlive its circle if the snapshot was
		// never persisted before a restart.
		log.Warnw("fulfillment for unregistered circle", "circleId", id.String(), "requestId", uint64(requestID))
		return ErrUnknownRequest
	}
	if err := c.AssignPayoutOrder(words[0]); err != nil {
		return fmt.Errorf("assign payout order for circle %s: %w", id, err)
	}
	log.Infow("payout order assigned", "circleId", id.String(), "requestId", uint64(requestID))
	return nil
}

// RetryStalled re-issues the randomness request for every circle whose
// pending request passed its deadline without a fulfillment. Without it a
// silent oracle leaves the circle stuck in the waiting state forever.
func (co *Coordinator) RetryStalled() {
	now := co.now()
	var stalled []types.CircleID
	co.mu.Lock()
	for id, deadline := range co.deadlines {
		if !now.Before(deadline) {
			stalled = append(stalled, id)
		}
	}
	co.mu.Unlock()

	for _, id := range stalled {
		log.Warnw("randomness request stalled, retrying", "circleId", id.String())
		if err := co.issueRequest(id); err != nil {
			log.Warnw("randomness retry failed", "circleId", id.String(), "error", err.Error())
		}
	}
}

// Circle returns the registered circle handle for an id.
func (co *Coordinator) Circle(id types.CircleID) (*circle.Circle, error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	c, ok := co.circles[id]
	if !ok {
		return nil, ErrCircleNotFound
	}
	return c, nil
}

// ActiveCircleIDs lists the ids currently flagged active, in ascending order.
func (co *Coordinator) ActiveCircleIDs() []types.CircleID {
	co.mu.Lock()
	ids := make([]types.CircleID, 0, len(co.active))
	for id, active := range co.active {
		if active {
			ids = append(ids, id)
		}
	}
	co.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CircleInfo assembles the combined read model for a circle.
func (co *Coordinator) CircleInfo(id types.CircleID) (*types.CircleInfo, error) {
	c, err := co.Circle(id)
	if err != nil {
		return nil, err
	}
	return c.Info(), nil
}

// Events returns a circle's append-only event log.
func (co *Coordinator) Events(id types.CircleID) ([]types.Event, error) {
	if _, err := co.Circle(id); err != nil {
		return nil, err
	}
	return co.store.Events(id)
}

// handleEvent is the sink wired into every registered circle: it logs the
// event, appends it to the durable log, keeps the registry's active flag in
// step with the circle lifecycle, and persists a fresh snapshot.
func (co *Coordinator) handleEvent(ev types.Event) {
	log.Debugw("circle event",
		"type", string(ev.Type),
		"circleId", ev.CircleID.String(),
		"participant", ev.Participant.Hex(),
		"cycle", ev.Cycle,
	)
	if err := co.store.AppendEvent(ev); err != nil {
		log.Warnw("failed to append event", "circleId", ev.CircleID.String(), "error", err.Error())
	}

	co.mu.Lock()
	c := co.circles[ev.CircleID]
	switch ev.Type {
	case types.EventCircleCompleted:
		co.active[ev.CircleID] = false
	case types.EventCircleStarted, types.EventCircleRestarted:
		co.active[ev.CircleID] = true
	}
	co.mu.Unlock()

	if c != nil {
		if err := co.store.SetCircle(c.Snapshot()); err != nil {
			log.Warnw("failed to persist circle snapshot", "circleId", ev.CircleID.String(), "error", err.Error())
		}
	}
}
