// Package circle implements the state machine for a single rotating savings
// circle: enrollment, per-cycle contribution accounting, payout disbursement,
// default handling, and restart. A circle depends only on the token-transfer
// interface and on receiving a randomness result through the coordinator.
package circle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rondafi/ronda/token"
	"github.com/rondafi/ronda/types"
)

// RandomnessRequester relays a circle's one-time randomness request to the
// external oracle. The coordinator implements it; the circle handle is passed
// along so the coordinator can verify the request comes from the circle
// registered under that id.
type RandomnessRequester interface {
	RequestRandomness(id types.CircleID, c *Circle) error
}

// participant is one roster slot.
type participant struct {
	addr           common.Address
	paid           bool
	paidUntilCycle uint64
	active         bool
	payoutRank     int
	joinedAt       time.Time
}

// Circle is one savings pool. Every exported operation runs under the
// circle's mutex, so operations on the same circle never interleave; distinct
// circles are independent. Operations touching the token interface stage
// their ledger effects first and restore the previous state if the external
// transfer fails, so a failed operation leaves no residue.
type Circle struct {
	cfg    types.CircleConfig
	ledger token.Ledger
	coord  RandomnessRequester

	mu            sync.Mutex
	state         types.CircleState
	startTime     time.Time
	currentCycle  uint64
	payoutsMade   uint64
	pooledFunds   *big.Int
	participants  []*participant
	index         map[common.Address]int
	orderAssigned bool
	payoutOrder   []int

	now  func() time.Time
	sink func(types.Event)
}

// New creates a circle in the Open state. Parameter validation is the
// coordinator's job; cfg is trusted here.
func New(cfg types.CircleConfig, ledger token.Ledger, coord RandomnessRequester) *Circle {
	return &Circle{
		cfg:         cfg,
		ledger:      ledger,
		coord:       coord,
		state:       types.CircleOpen,
		pooledFunds: new(big.Int),
		index:       make(map[common.Address]int),
		now:         time.Now,
	}
}

// FromSnapshot rebuilds a circle from its persisted state.
func FromSnapshot(snap *types.CircleSnapshot, ledger token.Ledger, coord RandomnessRequester) *Circle {
	c := New(snap.Config, ledger, coord)
	c.restoreLocked(snap)
	return c
}

// SetEventSink registers the callback receiving events after each committed
// state change. The sink is invoked outside the circle's mutex.
func (c *Circle) SetEventSink(sink func(types.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// Config returns the immutable creation parameters.
func (c *Circle) Config() types.CircleConfig {
	return c.cfg
}

// ID returns the circle id.
func (c *Circle) ID() types.CircleID {
	return c.cfg.ID
}

// Join enrolls the caller, pulling exactly one contribution which covers
// cycle 1. When the roster reaches the configured size the circle starts:
// the current cycle becomes 1 and a randomness request for the payout order
// is relayed to the coordinator.
func (c *Circle) Join(ctx context.Context, caller common.Address) error {
	events, started, err := c.join(ctx, caller)
	if err != nil {
		return err
	}
	c.emit(events)
	if started {
		// The circle is active and waiting for an order; the
		// coordinator retries stalled requests, so a failed relay does
		// not fail the join itself.
		_ = c.coord.RequestRandomness(c.cfg.ID, c)
	}
	return nil
}

func (c *Circle) join(ctx context.Context, caller common.Address) ([]types.Event, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != types.CircleOpen {
		return nil, false, ErrNotOpen
	}
	if len(c.participants) >= c.cfg.MaxParticipants {
		return nil, false, ErrRosterFull
	}
	if _, ok := c.index[caller]; ok {
		return nil, false, ErrAlreadyJoined
	}

	snap := c.snapshotLocked()
	now := c.now()
	c.index[caller] = len(c.participants)
	c.participants = append(c.participants, &participant{
		addr:           caller,
		paid:           true,
		paidUntilCycle: 1,
		active:         true,
		payoutRank:     -1,
		joinedAt:       now,
	})
	c.pooledFunds.Add(c.pooledFunds, c.contribution())

	started := false
	if len(c.participants) == c.cfg.MaxParticipants {
		c.startLocked(now)
		started = true
	}

	if err := c.ledger.PullFunds(ctx, caller, c.contribution()); err != nil {
		c.restoreLocked(snap)
		return nil, false, fmt.Errorf("%w: join contribution: %v", ErrTransfer, err)
	}

	events := []types.Event{{
		Type:        types.EventParticipantJoined,
		CircleID:    c.cfg.ID,
		Participant: caller,
		Amount:      (*types.BigInt)(c.contribution()),
		Timestamp:   now,
	}}
	if started {
		events = append(events, types.Event{
			Type:      types.EventCircleStarted,
			CircleID:  c.cfg.ID,
			Cycle:     c.currentCycle,
			Timestamp: now,
		})
	}
	return events, started, nil
}

// startLocked performs the Open→Active transition.
func (c *Circle) startLocked(now time.Time) {
	c.state = types.CircleActive
	c.startTime = now
	c.currentCycle = 1
	c.payoutsMade = 0
}

// Start re-arms a restarted circle. After a restart the roster is already at
// the target size, so the automatic join-time trigger never fires again; the
// creator starts the new run explicitly. A fresh randomness request is issued
// for the new run's payout order.
func (c *Circle) Start(caller common.Address) error {
	c.mu.Lock()
	if caller != c.cfg.Creator {
		c.mu.Unlock()
		return ErrNotCreator
	}
	if c.state != types.CircleOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if len(c.participants) < c.cfg.MaxParticipants {
		c.mu.Unlock()
		return ErrRosterNotFull
	}
	now := c.now()
	c.startLocked(now)
	ev := types.Event{
		Type:      types.EventCircleStarted,
		CircleID:  c.cfg.ID,
		Cycle:     c.currentCycle,
		Timestamp: now,
	}
	c.mu.Unlock()

	c.emit([]types.Event{ev})
	_ = c.coord.RequestRandomness(c.cfg.ID, c) // retried by the coordinator
	return nil
}

// MakePayment pulls contribution×cycles from the caller and advances their
// paid-through counter. Prepaying past the run's total cycle count is
// rejected.
func (c *Circle) MakePayment(ctx context.Context, caller common.Address, cycles uint64) error {
	events, err := c.makePayment(ctx, caller, cycles)
	if err != nil {
		return err
	}
	c.emit(events)
	return nil
}

func (c *Circle) makePayment(ctx context.Context, caller common.Address, cycles uint64) ([]types.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != types.CircleActive {
		return nil, ErrNotActive
	}
	if cycles < 1 {
		return nil, fmt.Errorf("%w: cycles must be at least 1", ErrValidation)
	}
	slot, ok := c.index[caller]
	if !ok || !c.participants[slot].active {
		return nil, ErrNotParticipant
	}
	p := c.participants[slot]
	// paidUntilCycle never exceeds MaxParticipants, so the subtraction
	// cannot underflow; comparing this way around cannot overflow either.
	if cycles > uint64(c.cfg.MaxParticipants)-p.paidUntilCycle {
		return nil, ErrOverpayment
	}

	total := new(big.Int).Mul(c.contribution(), new(big.Int).SetUint64(cycles))

	snap := c.snapshotLocked()
	p.paidUntilCycle += cycles
	p.paid = p.paidUntilCycle >= c.currentCycle
	c.pooledFunds.Add(c.pooledFunds, total)

	if err := c.ledger.PullFunds(ctx, caller, total); err != nil {
		c.restoreLocked(snap)
		return nil, fmt.Errorf("%w: payment: %v", ErrTransfer, err)
	}

	return []types.Event{{
		Type:        types.EventPaymentMade,
		CircleID:    c.cfg.ID,
		Participant: caller,
		Amount:      (*types.BigInt)(total),
		Cycle:       c.currentCycle,
		Timestamp:   c.now(),
	}}, nil
}

// TriggerPayout disburses the current cycle's pool to the participant at
// payout-order slot currentCycle−1 and advances the cycle. Anyone may call
// it once the interval has elapsed, the order is assigned, and every active
// participant has paid through the current cycle. All ledger bookkeeping is
// committed before the outbound transfer; if the transfer fails the staged
// state is restored and the whole call fails.
//
// If the scheduled recipient was removed for default, no funds move for that
// cycle: the forfeited share stays in the pool and the cycle still advances.
func (c *Circle) TriggerPayout(ctx context.Context) error {
	events, err := c.triggerPayout(ctx)
	if err != nil {
		return err
	}
	c.emit(events)
	return nil
}

func (c *Circle) triggerPayout(ctx context.Context) ([]types.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != types.CircleActive {
		return nil, ErrNotActive
	}
	if !c.orderAssigned {
		return nil, ErrOrderNotAssigned
	}
	now := c.now()
	due := c.startTime.Add(time.Duration(c.currentCycle) * c.cfg.PayoutInterval)
	if now.Before(due) {
		return nil, ErrIntervalNotElapsed
	}
	for _, p := range c.participants {
		if p.active && p.paidUntilCycle < c.currentCycle {
			return nil, ErrUnpaidParticipants
		}
	}

	recipient := c.participants[c.payoutOrder[c.currentCycle-1]]
	amount := new(big.Int).Mul(c.contribution(), big.NewInt(int64(c.cfg.MaxParticipants)))
	if recipient.active && c.pooledFunds.Cmp(amount) < 0 {
		return nil, ErrInsufficientPool
	}

	snap := c.snapshotLocked()
	cycle := c.currentCycle
	if recipient.active {
		c.pooledFunds.Sub(c.pooledFunds, amount)
	}
	c.payoutsMade++
	completed := c.payoutsMade == uint64(c.cfg.MaxParticipants)
	if completed {
		c.state = types.CircleCompleted
	} else {
		c.currentCycle++
		for _, p := range c.participants {
			p.paid = p.paidUntilCycle >= c.currentCycle
		}
	}

	// For a removed recipient nothing is transferred and the logged
	// amount is zero: the share was forfeited, not sent.
	sent := new(big.Int)
	if recipient.active {
		if err := c.ledger.PushFunds(ctx, recipient.addr, amount); err != nil {
			c.restoreLocked(snap)
			return nil, fmt.Errorf("%w: payout to %s: %v", ErrTransfer, recipient.addr.Hex(), err)
		}
		sent = amount
	}

	events := []types.Event{{
		Type:        types.EventPayoutSent,
		CircleID:    c.cfg.ID,
		Participant: recipient.addr,
		Amount:      (*types.BigInt)(sent),
		Cycle:       cycle,
		Timestamp:   now,
	}}
	if completed {
		events = append(events, types.Event{
			Type:      types.EventCircleCompleted,
			CircleID:  c.cfg.ID,
			Cycle:     cycle,
			Timestamp: now,
		})
	}
	return events, nil
}

// EnterGracePeriod records that a defaulted participant has been put on
// notice. It changes no state; it exists to make the default visible before
// removal.
func (c *Circle) EnterGracePeriod(caller, target common.Address) error {
	c.mu.Lock()
	p, err := c.defaultedLocked(caller, target)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ev := types.Event{
		Type:        types.EventGracePeriodEntered,
		CircleID:    c.cfg.ID,
		Participant: p.addr,
		Cycle:       c.currentCycle,
		Timestamp:   c.now(),
	}
	c.mu.Unlock()

	c.emit([]types.Event{ev})
	return nil
}

// RemoveDefaulted marks a defaulted participant inactive. They are excluded
// from the all-paid check and from future payouts; their payout slot is not
// reassigned and their past contributions stay in the pool.
func (c *Circle) RemoveDefaulted(caller, target common.Address) error {
	c.mu.Lock()
	p, err := c.defaultedLocked(caller, target)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	p.active = false
	ev := types.Event{
		Type:        types.EventParticipantRemoved,
		CircleID:    c.cfg.ID,
		Participant: p.addr,
		Cycle:       c.currentCycle,
		Timestamp:   c.now(),
	}
	c.mu.Unlock()

	c.emit([]types.Event{ev})
	return nil
}

// defaultedLocked validates a creator action against a defaulted target.
func (c *Circle) defaultedLocked(caller, target common.Address) (*participant, error) {
	if caller != c.cfg.Creator {
		return nil, ErrNotCreator
	}
	if c.state != types.CircleActive {
		return nil, ErrNotActive
	}
	slot, ok := c.index[target]
	if !ok || !c.participants[slot].active {
		return nil, ErrNotParticipant
	}
	p := c.participants[slot]
	if p.paidUntilCycle >= c.currentCycle {
		return nil, ErrNotInDefault
	}
	return p, nil
}

// AssignPayoutOrder fixes the payout order for the current run from a single
// random seed. It is invoked by the coordinator when the oracle fulfills the
// circle's randomness request, exactly once per run.
func (c *Circle) AssignPayoutOrder(seed *big.Int) error {
	c.mu.Lock()
	if seed == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: nil random seed", ErrValidation)
	}
	if c.orderAssigned {
		c.mu.Unlock()
		return ErrOrderAlreadyAssigned
	}
	if len(c.participants) < c.cfg.MaxParticipants {
		c.mu.Unlock()
		return ErrRosterNotFull
	}
	if c.state != types.CircleActive {
		c.mu.Unlock()
		return ErrNotActive
	}

	c.payoutOrder = PayoutOrder(seed, c.cfg.MaxParticipants)
	for rank, slot := range c.payoutOrder {
		c.participants[slot].payoutRank = rank
	}
	c.orderAssigned = true
	// The seed is recorded in the event log so the order derivation can be
	// audited against the oracle fulfillment.
	ev := types.Event{
		Type:      types.EventOrderAssigned,
		CircleID:  c.cfg.ID,
		Seed:      seed.Bytes(),
		Cycle:     c.currentCycle,
		Timestamp: c.now(),
	}
	c.mu.Unlock()

	c.emit([]types.Event{ev})
	return nil
}

// Restart resets a completed circle to Open for a new run, keeping the roster
// membership and each participant's active flag but clearing all payment,
// cycle, funds, and order state. The creator re-arms the run with Start.
func (c *Circle) Restart(caller common.Address) error {
	c.mu.Lock()
	if caller != c.cfg.Creator {
		c.mu.Unlock()
		return ErrNotCreator
	}
	if c.state != types.CircleCompleted {
		c.mu.Unlock()
		return ErrNotCompleted
	}
	c.state = types.CircleOpen
	c.startTime = time.Time{}
	c.currentCycle = 0
	c.payoutsMade = 0
	c.pooledFunds = new(big.Int)
	c.orderAssigned = false
	c.payoutOrder = nil
	for _, p := range c.participants {
		p.paid = false
		p.paidUntilCycle = 0
		p.payoutRank = -1
	}
	ev := types.Event{
		Type:      types.EventCircleRestarted,
		CircleID:  c.cfg.ID,
		Timestamp: c.now(),
	}
	c.mu.Unlock()

	c.emit([]types.Event{ev})
	return nil
}

// Status returns the dynamic part of the circle's read model.
func (c *Circle) Status() types.CircleStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Circle) statusLocked() types.CircleStatus {
	st := types.CircleStatus{
		State:            c.state,
		StartTime:        c.startTime,
		CurrentCycle:     c.currentCycle,
		PayoutsMade:      c.payoutsMade,
		ParticipantCount: len(c.participants),
		PooledFunds:      (*types.BigInt)(new(big.Int).Set(c.pooledFunds)),
		OrderAssigned:    c.orderAssigned,
	}
	if c.state == types.CircleActive {
		st.NextPayoutTime = c.startTime.Add(time.Duration(c.currentCycle) * c.cfg.PayoutInterval)
	}
	return st
}

// Participants returns the roster read model in join order.
func (c *Circle) Participants() []types.ParticipantInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantsLocked()
}

func (c *Circle) participantsLocked() []types.ParticipantInfo {
	infos := make([]types.ParticipantInfo, len(c.participants))
	for i, p := range c.participants {
		infos[i] = types.ParticipantInfo{
			Address:        p.addr,
			Paid:           p.paid,
			PaidUntilCycle: p.paidUntilCycle,
			Active:         p.active,
			PayoutRank:     p.payoutRank,
			JoinedAt:       p.joinedAt,
		}
	}
	return infos
}

// Order returns the payout order, or ErrOrderNotAssigned before the oracle
// round-trip completes.
func (c *Circle) Order() ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.orderAssigned {
		return nil, ErrOrderNotAssigned
	}
	order := make([]int, len(c.payoutOrder))
	copy(order, c.payoutOrder)
	return order, nil
}

// CycleSummary describes the current cycle: the next recipient, the amount
// they receive, and when the payout unlocks.
func (c *Circle) CycleSummary() (*types.CycleSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != types.CircleActive {
		return nil, ErrNotActive
	}
	if !c.orderAssigned {
		return nil, ErrOrderNotAssigned
	}
	recipient := c.participants[c.payoutOrder[c.currentCycle-1]]
	amount := new(big.Int).Mul(c.contribution(), big.NewInt(int64(c.cfg.MaxParticipants)))
	return &types.CycleSummary{
		Cycle:          c.currentCycle,
		NextRecipient:  recipient.addr,
		NextAmount:     (*types.BigInt)(amount),
		NextPayoutTime: c.startTime.Add(time.Duration(c.currentCycle) * c.cfg.PayoutInterval),
	}, nil
}

// Info assembles the combined read model.
func (c *Circle) Info() *types.CircleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := &types.CircleInfo{
		Config:       c.cfg,
		Status:       c.statusLocked(),
		Participants: c.participantsLocked(),
	}
	if c.orderAssigned {
		info.PayoutOrder = make([]int, len(c.payoutOrder))
		copy(info.PayoutOrder, c.payoutOrder)
	}
	return info
}

// Snapshot returns the full persisted form of the circle.
func (c *Circle) Snapshot() *types.CircleSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Circle) snapshotLocked() *types.CircleSnapshot {
	snap := &types.CircleSnapshot{
		Config:        c.cfg,
		State:         c.state,
		StartTime:     c.startTime,
		CurrentCycle:  c.currentCycle,
		PayoutsMade:   c.payoutsMade,
		PooledFunds:   (*types.BigInt)(new(big.Int).Set(c.pooledFunds)),
		OrderAssigned: c.orderAssigned,
	}
	snap.Participants = make([]types.ParticipantSnapshot, len(c.participants))
	for i, p := range c.participants {
		snap.Participants[i] = types.ParticipantSnapshot{
			Address:        p.addr,
			Paid:           p.paid,
			PaidUntilCycle: p.paidUntilCycle,
			Active:         p.active,
			PayoutRank:     p.payoutRank,
			JoinedAt:       p.joinedAt,
		}
	}
	if c.orderAssigned {
		snap.PayoutOrder = make([]int, len(c.payoutOrder))
		copy(snap.PayoutOrder, c.payoutOrder)
	}
	return snap
}

func (c *Circle) restoreLocked(snap *types.CircleSnapshot) {
	c.state = snap.State
	c.startTime = snap.StartTime
	c.currentCycle = snap.CurrentCycle
	c.payoutsMade = snap.PayoutsMade
	c.pooledFunds = new(big.Int)
	if snap.PooledFunds != nil {
		c.pooledFunds.Set(snap.PooledFunds.MathBigInt())
	}
	c.participants = make([]*participant, len(snap.Participants))
	c.index = make(map[common.Address]int, len(snap.Participants))
	for i, ps := range snap.Participants {
		c.participants[i] = &participant{
			addr:           ps.Address,
			paid:           ps.Paid,
			paidUntilCycle: ps.PaidUntilCycle,
			active:         ps.Active,
			payoutRank:     ps.PayoutRank,
			joinedAt:       ps.JoinedAt,
		}
		c.index[ps.Address] = i
	}
	c.orderAssigned = snap.OrderAssigned
	c.payoutOrder = nil
	if snap.OrderAssigned {
		c.payoutOrder = make([]int, len(snap.PayoutOrder))
		copy(c.payoutOrder, snap.PayoutOrder)
	}
}

func (c *Circle) contribution() *big.Int {
	return c.cfg.Contribution.MathBigInt()
}

// emit delivers events to the sink, outside the mutex.
func (c *Circle) emit(events []types.Event) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}
	for _, ev := range events {
		sink(ev)
	}
}
