package circle

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/rondafi/ronda/token"
	"github.com/rondafi/ronda/types"
)

var creatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// bigIntEquals compares *big.Int by value; go-cmp cannot descend into
// big.Int's unexported fields.
var bigIntEquals = qt.CmpEquals(cmp.Comparer(func(a, b *big.Int) bool {
	return a.Cmp(b) == 0
}))

type stubCoordinator struct {
	mu       sync.Mutex
	requests []types.CircleID
}

func (s *stubCoordinator) RequestRandomness(id types.CircleID, _ *Circle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, id)
	return nil
}

func (s *stubCoordinator) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// failingLedger wraps a MemLedger and fails pushes on demand.
type failingLedger struct {
	*token.MemLedger
	failPush bool
}

func (l *failingLedger) PushFunds(ctx context.Context, to common.Address, amount *big.Int) error {
	if l.failPush {
		return fmt.Errorf("recipient rejected transfer")
	}
	return l.MemLedger.PushFunds(ctx, to, amount)
}

type testEnv struct {
	c      *Circle
	ledger *token.MemLedger
	coord  *stubCoordinator
	clock  *fakeClock
	addrs  []common.Address
}

func newTestEnv(n int) *testEnv {
	ledger := token.NewMemLedger()
	coord := &stubCoordinator{}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cfg := types.CircleConfig{
		ID:              1,
		Creator:         creatorAddr,
		Contribution:    types.NewBigInt(10),
		PayoutInterval:  24 * time.Hour,
		GracePeriod:     48 * time.Hour,
		MaxParticipants: n,
	}
	c := New(cfg, ledger, coord)
	c.now = clock.Now

	addrs := make([]common.Address, n)
	for i := range addrs {
		addrs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
		ledger.Mint(addrs[i], big.NewInt(1000))
	}
	return &testEnv{c: c, ledger: ledger, coord: coord, clock: clock, addrs: addrs}
}

// joinAll enrolls every address, which auto-starts the circle.
func (e *testEnv) joinAll(c *qt.C) {
	for _, addr := range e.addrs {
		c.Assert(e.c.Join(context.Background(), addr), qt.IsNil)
	}
}

// pooledFunds reads the tracked pool balance.
func (e *testEnv) pooledFunds() *big.Int {
	return e.c.Status().PooledFunds.MathBigInt()
}

func TestJoinLifecycle(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	for i, addr := range e.addrs {
		c.Assert(e.c.Join(ctx, addr), qt.IsNil)
		c.Assert(e.c.Status().ParticipantCount, qt.Equals, i+1)
		if i < 3 {
			c.Assert(e.c.Status().State, qt.Equals, types.CircleOpen)
		}
	}

	// The 4th join auto-starts the run and triggers exactly one
	// randomness request.
	st := e.c.Status()
	c.Assert(st.State, qt.Equals, types.CircleActive)
	c.Assert(st.CurrentCycle, qt.Equals, uint64(1))
	c.Assert(e.coord.requestCount(), qt.Equals, 1)
	c.Assert(e.pooledFunds().Int64(), qt.Equals, int64(40))

	// Joins after the transition are state errors, not capacity errors.
	err := e.c.Join(ctx, common.BigToAddress(big.NewInt(99)))
	c.Assert(err, qt.ErrorIs, ErrNotOpen)
	c.Assert(err, qt.ErrorIs, ErrState)

	// Every participant is paid through cycle 1 by their join pull.
	for _, p := range e.c.Participants() {
		c.Assert(p.Paid, qt.IsTrue)
		c.Assert(p.PaidUntilCycle, qt.Equals, uint64(1))
		c.Assert(p.Active, qt.IsTrue)
	}
}

func TestJoinDuplicate(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	c.Assert(e.c.Join(ctx, e.addrs[0]), qt.IsNil)
	err := e.c.Join(ctx, e.addrs[0])
	c.Assert(err, qt.ErrorIs, ErrAlreadyJoined)
	c.Assert(err, qt.ErrorIs, ErrValidation)
	c.Assert(e.c.Status().ParticipantCount, qt.Equals, 1)
}

func TestJoinPullFailure(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	broke := common.BigToAddress(big.NewInt(77)) // never minted
	err := e.c.Join(ctx, broke)
	c.Assert(err, qt.ErrorIs, ErrTransfer)

	// The failed join leaves no residue.
	st := e.c.Status()
	c.Assert(st.ParticipantCount, qt.Equals, 0)
	c.Assert(st.PooledFunds.MathBigInt().Sign(), qt.Equals, 0)
	c.Assert(e.c.Join(ctx, e.addrs[0]), qt.IsNil)
}

func TestAssignPayoutOrder(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	seed := big.NewInt(12345)

	// Before the roster is full the order cannot be assigned.
	c.Assert(e.c.Join(context.Background(), e.addrs[0]), qt.IsNil)
	c.Assert(e.c.AssignPayoutOrder(seed), qt.ErrorIs, ErrRosterNotFull)

	for _, addr := range e.addrs[1:] {
		c.Assert(e.c.Join(context.Background(), addr), qt.IsNil)
	}
	c.Assert(e.c.AssignPayoutOrder(seed), qt.IsNil)

	order, err := e.c.Order()
	c.Assert(err, qt.IsNil)
	c.Assert(order, qt.DeepEquals, PayoutOrder(seed, 4))

	// Ranks mirror the order: participant at order[k] has rank k.
	parts := e.c.Participants()
	for rank, slot := range order {
		c.Assert(parts[slot].PayoutRank, qt.Equals, rank)
	}

	// A second assignment for the same run is rejected.
	err = e.c.AssignPayoutOrder(big.NewInt(999))
	c.Assert(err, qt.ErrorIs, ErrOrderAlreadyAssigned)
	c.Assert(err, qt.ErrorIs, ErrState)
}

func TestTriggerPayoutGuards(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	c.Assert(e.c.TriggerPayout(ctx), qt.ErrorIs, ErrNotActive)

	e.joinAll(c)

	// Waiting for the oracle round-trip.
	c.Assert(e.c.TriggerPayout(ctx), qt.ErrorIs, ErrOrderNotAssigned)

	c.Assert(e.c.AssignPayoutOrder(big.NewInt(12345)), qt.IsNil)

	// The first interval has not elapsed yet.
	c.Assert(e.c.TriggerPayout(ctx), qt.ErrorIs, ErrIntervalNotElapsed)

	// After one interval, cycle 1 pays out (everyone paid it by joining).
	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
	c.Assert(e.c.Status().CurrentCycle, qt.Equals, uint64(2))

	// Cycle 2 is due but nobody has paid it.
	e.clock.Advance(24 * time.Hour)
	err := e.c.TriggerPayout(ctx)
	c.Assert(err, qt.ErrorIs, ErrUnpaidParticipants)
	c.Assert(err, qt.ErrorIs, ErrTiming)
}

func TestFullRun(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()
	seed := big.NewInt(12345)

	e.joinAll(c)
	c.Assert(e.c.AssignPayoutOrder(seed), qt.IsNil)
	order, err := e.c.Order()
	c.Assert(err, qt.IsNil)

	contributed := int64(40) // four join pulls
	disbursed := int64(0)

	for cycle := uint64(1); cycle <= 4; cycle++ {
		if cycle > 1 {
			for _, addr := range e.addrs {
				c.Assert(e.c.MakePayment(ctx, addr, 1), qt.IsNil)
				contributed += 10
				c.Assert(e.pooledFunds().Int64(), qt.Equals, contributed-disbursed)
			}
		}
		e.clock.Advance(24 * time.Hour)

		recipient := e.addrs[order[cycle-1]]
		before := e.ledger.BalanceOf(recipient)
		c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
		disbursed += 40

		// The recipient received contribution × participant count.
		diff := new(big.Int).Sub(e.ledger.BalanceOf(recipient), before)
		c.Assert(diff.Int64(), qt.Equals, int64(40))

		// Pool invariant: contributions received minus payouts disbursed.
		c.Assert(e.pooledFunds().Int64(), qt.Equals, contributed-disbursed)
	}

	// Four payouts, one per cycle: the run is complete and settled.
	st := e.c.Status()
	c.Assert(st.State, qt.Equals, types.CircleCompleted)
	c.Assert(st.PayoutsMade, qt.Equals, uint64(4))
	c.Assert(e.pooledFunds().Sign(), qt.Equals, 0)

	// Everyone contributed 40 and received 40 exactly once.
	for _, addr := range e.addrs {
		c.Assert(e.ledger.BalanceOf(addr).Int64(), qt.Equals, int64(1000))
	}

	c.Assert(e.c.TriggerPayout(ctx), qt.ErrorIs, ErrNotActive)
}

func TestMakePayment(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	err := e.c.MakePayment(ctx, e.addrs[0], 1)
	c.Assert(err, qt.ErrorIs, ErrNotActive)

	e.joinAll(c)

	// Zero cycles is a validation error.
	c.Assert(e.c.MakePayment(ctx, e.addrs[0], 0), qt.ErrorIs, ErrValidation)

	// Strangers cannot pay into the pool.
	err = e.c.MakePayment(ctx, common.BigToAddress(big.NewInt(99)), 1)
	c.Assert(err, qt.ErrorIs, ErrNotParticipant)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)

	// Paid through cycle 1 by joining; 5 more cycles overshoots a 4-cycle
	// run, 3 reaches exactly the maximum.
	err = e.c.MakePayment(ctx, e.addrs[0], 5)
	c.Assert(err, qt.ErrorIs, ErrOverpayment)
	c.Assert(err, qt.ErrorIs, ErrCapacity)

	// A cycle count near the uint64 ceiling must not wrap past the guard:
	// it is rejected and the paid-through counter is untouched.
	err = e.c.MakePayment(ctx, e.addrs[0], math.MaxUint64)
	c.Assert(err, qt.ErrorIs, ErrOverpayment)
	err = e.c.MakePayment(ctx, e.addrs[0], math.MaxUint64-1)
	c.Assert(err, qt.ErrorIs, ErrOverpayment)
	c.Assert(e.c.Participants()[0].PaidUntilCycle, qt.Equals, uint64(1))
	c.Assert(e.pooledFunds().Int64(), qt.Equals, int64(40))

	c.Assert(e.c.MakePayment(ctx, e.addrs[0], 3), qt.IsNil)
	parts := e.c.Participants()
	c.Assert(parts[0].PaidUntilCycle, qt.Equals, uint64(4))
	c.Assert(e.pooledFunds().Int64(), qt.Equals, int64(70))

	// Fully prepaid: not even one more cycle fits.
	c.Assert(e.c.MakePayment(ctx, e.addrs[0], 1), qt.ErrorIs, ErrOverpayment)
}

func TestMakePaymentPullFailure(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(2)
	ctx := context.Background()

	e.joinAll(c)

	// Drain the payer so the pull fails, then verify nothing changed.
	payer := e.addrs[0]
	c.Assert(e.ledger.PullFunds(ctx, payer, e.ledger.BalanceOf(payer)), qt.IsNil)
	poolBefore := e.pooledFunds()

	err := e.c.MakePayment(ctx, payer, 1)
	c.Assert(err, qt.ErrorIs, ErrTransfer)
	c.Assert(e.pooledFunds(), bigIntEquals, poolBefore)
	c.Assert(e.c.Participants()[0].PaidUntilCycle, qt.Equals, uint64(1))
}

func TestDefaultHandling(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()
	seed := big.NewInt(42)

	e.joinAll(c)
	c.Assert(e.c.AssignPayoutOrder(seed), qt.IsNil)

	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil) // cycle 1 → 2

	order, err := e.c.Order()
	c.Assert(err, qt.IsNil)
	defaulter := e.addrs[order[1]] // cycle 2's scheduled recipient

	// Everyone but the defaulter pays cycle 2.
	for _, addr := range e.addrs {
		if addr != defaulter {
			c.Assert(e.c.MakePayment(ctx, addr, 1), qt.IsNil)
		}
	}

	// Grace and removal are creator-only.
	err = e.c.EnterGracePeriod(e.addrs[0], defaulter)
	c.Assert(err, qt.ErrorIs, ErrNotCreator)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)

	// A paid-up participant is not in default.
	var paidUp common.Address
	for _, addr := range e.addrs {
		if addr != defaulter {
			paidUp = addr
			break
		}
	}
	err = e.c.EnterGracePeriod(creatorAddr, paidUp)
	c.Assert(err, qt.ErrorIs, ErrNotInDefault)
	c.Assert(err, qt.ErrorIs, ErrDefault)

	// Grace entry is observational: the payout is still blocked.
	c.Assert(e.c.EnterGracePeriod(creatorAddr, defaulter), qt.IsNil)
	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.ErrorIs, ErrUnpaidParticipants)

	// Removal deactivates the defaulter and unblocks the cycle.
	c.Assert(e.c.RemoveDefaulted(creatorAddr, defaulter), qt.IsNil)
	for _, p := range e.c.Participants() {
		if p.Address == defaulter {
			c.Assert(p.Active, qt.IsFalse)
		}
	}
	c.Assert(e.c.MakePayment(ctx, defaulter, 1), qt.ErrorIs, ErrNotParticipant)

	// The removed participant was cycle 2's recipient: no funds move,
	// their forfeited share stays pooled, and the cycle still advances.
	// The logged payout amount is zero, not the pot.
	var events []types.Event
	e.c.SetEventSink(func(ev types.Event) {
		events = append(events, ev)
	})
	poolBefore := e.pooledFunds()
	before := e.ledger.BalanceOf(defaulter)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
	c.Assert(e.ledger.BalanceOf(defaulter), bigIntEquals, before)
	c.Assert(e.pooledFunds(), bigIntEquals, poolBefore)
	c.Assert(events, qt.HasLen, 1)
	c.Assert(events[0].Type, qt.Equals, types.EventPayoutSent)
	c.Assert(events[0].Participant, qt.Equals, defaulter)
	c.Assert(events[0].Amount.MathBigInt().Sign(), qt.Equals, 0)
	e.c.SetEventSink(nil)
	c.Assert(e.c.Status().CurrentCycle, qt.Equals, uint64(3))

	// Removing an already-removed participant fails.
	c.Assert(e.c.RemoveDefaulted(creatorAddr, defaulter), qt.ErrorIs, ErrNotParticipant)
}

func TestPayoutTransferFailure(t *testing.T) {
	c := qt.New(t)

	ledger := &failingLedger{MemLedger: token.NewMemLedger()}
	coord := &stubCoordinator{}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cfg := types.CircleConfig{
		ID:              1,
		Creator:         creatorAddr,
		Contribution:    types.NewBigInt(10),
		PayoutInterval:  24 * time.Hour,
		GracePeriod:     48 * time.Hour,
		MaxParticipants: 2,
	}
	cir := New(cfg, ledger, coord)
	cir.now = clock.Now

	ctx := context.Background()
	addrs := []common.Address{common.BigToAddress(big.NewInt(1)), common.BigToAddress(big.NewInt(2))}
	for _, addr := range addrs {
		ledger.Mint(addr, big.NewInt(100))
		c.Assert(cir.Join(ctx, addr), qt.IsNil)
	}
	c.Assert(cir.AssignPayoutOrder(big.NewInt(7)), qt.IsNil)
	clock.Advance(24 * time.Hour)

	ledger.failPush = true
	err := cir.TriggerPayout(ctx)
	c.Assert(err, qt.ErrorIs, ErrTransfer)

	// The staged state was rolled back in full.
	st := cir.Status()
	c.Assert(st.State, qt.Equals, types.CircleActive)
	c.Assert(st.CurrentCycle, qt.Equals, uint64(1))
	c.Assert(st.PayoutsMade, qt.Equals, uint64(0))
	c.Assert(st.PooledFunds.MathBigInt().Int64(), qt.Equals, int64(20))

	// The same call succeeds once the transfer goes through.
	ledger.failPush = false
	c.Assert(cir.TriggerPayout(ctx), qt.IsNil)
	c.Assert(cir.Status().CurrentCycle, qt.Equals, uint64(2))
}

func TestRestart(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(2)
	ctx := context.Background()

	e.joinAll(c)

	c.Assert(e.c.Restart(creatorAddr), qt.ErrorIs, ErrNotCompleted)

	c.Assert(e.c.AssignPayoutOrder(big.NewInt(5)), qt.IsNil)
	for cycle := 1; cycle <= 2; cycle++ {
		if cycle > 1 {
			for _, addr := range e.addrs {
				c.Assert(e.c.MakePayment(ctx, addr, 1), qt.IsNil)
			}
		}
		e.clock.Advance(24 * time.Hour)
		c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
	}
	c.Assert(e.c.Status().State, qt.Equals, types.CircleCompleted)

	c.Assert(e.c.Restart(e.addrs[0]), qt.ErrorIs, ErrNotCreator)
	c.Assert(e.c.Restart(creatorAddr), qt.IsNil)

	// Membership survives; cycle, funds, and order state do not.
	st := e.c.Status()
	c.Assert(st.State, qt.Equals, types.CircleOpen)
	c.Assert(st.CurrentCycle, qt.Equals, uint64(0))
	c.Assert(st.PooledFunds.MathBigInt().Sign(), qt.Equals, 0)
	c.Assert(st.ParticipantCount, qt.Equals, 2)
	c.Assert(st.OrderAssigned, qt.IsFalse)
	_, err := e.c.Order()
	c.Assert(err, qt.ErrorIs, ErrOrderNotAssigned)
	for i, p := range e.c.Participants() {
		c.Assert(p.Address, qt.Equals, e.addrs[i])
		c.Assert(p.PaidUntilCycle, qt.Equals, uint64(0))
		c.Assert(p.Paid, qt.IsFalse)
		c.Assert(p.Active, qt.IsTrue)
	}

	// The roster is already full, so nobody new can squeeze in.
	err = e.c.Join(ctx, common.BigToAddress(big.NewInt(99)))
	c.Assert(err, qt.ErrorIs, ErrRosterFull)

	// The creator re-arms the second run, which requests fresh randomness.
	c.Assert(e.c.Start(e.addrs[0]), qt.ErrorIs, ErrNotCreator)
	c.Assert(e.c.Start(creatorAddr), qt.IsNil)
	st = e.c.Status()
	c.Assert(st.State, qt.Equals, types.CircleActive)
	c.Assert(st.CurrentCycle, qt.Equals, uint64(1))
	c.Assert(e.coord.requestCount(), qt.Equals, 2)

	// In the new run contributions arrive through payments, not joins.
	for _, addr := range e.addrs {
		c.Assert(e.c.MakePayment(ctx, addr, 1), qt.IsNil)
	}
	c.Assert(e.c.AssignPayoutOrder(big.NewInt(99)), qt.IsNil)
	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
}

func TestCycleSummaryAndInfo(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	seed := big.NewInt(12345)

	_, err := e.c.CycleSummary()
	c.Assert(err, qt.ErrorIs, ErrNotActive)

	e.joinAll(c)
	_, err = e.c.CycleSummary()
	c.Assert(err, qt.ErrorIs, ErrOrderNotAssigned)

	c.Assert(e.c.AssignPayoutOrder(seed), qt.IsNil)
	order, err := e.c.Order()
	c.Assert(err, qt.IsNil)

	sum, err := e.c.CycleSummary()
	c.Assert(err, qt.IsNil)
	c.Assert(sum.Cycle, qt.Equals, uint64(1))
	c.Assert(sum.NextRecipient, qt.Equals, e.addrs[order[0]])
	c.Assert(sum.NextAmount.MathBigInt().Int64(), qt.Equals, int64(40))
	c.Assert(sum.NextPayoutTime, qt.Equals, e.c.Status().StartTime.Add(24*time.Hour))

	info := e.c.Info()
	c.Assert(info.Config.ID, qt.Equals, types.CircleID(1))
	c.Assert(info.Status.State, qt.Equals, types.CircleActive)
	c.Assert(info.PayoutOrder, qt.DeepEquals, order)
	c.Assert(info.Participants, qt.HasLen, 4)
}

func TestSnapshotRestore(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(4)
	ctx := context.Background()

	e.joinAll(c)
	c.Assert(e.c.AssignPayoutOrder(big.NewInt(12345)), qt.IsNil)
	c.Assert(e.c.MakePayment(ctx, e.addrs[1], 2), qt.IsNil)

	snap := e.c.Snapshot()
	restored := FromSnapshot(snap, e.ledger, e.coord)
	restored.now = e.clock.Now

	c.Assert(restored.Status(), qt.DeepEquals, e.c.Status())
	c.Assert(restored.Participants(), qt.DeepEquals, e.c.Participants())
	wantOrder, err := e.c.Order()
	c.Assert(err, qt.IsNil)
	gotOrder, err := restored.Order()
	c.Assert(err, qt.IsNil)
	c.Assert(gotOrder, qt.DeepEquals, wantOrder)

	// The restored machine keeps running where the old one stopped.
	e.clock.Advance(24 * time.Hour)
	c.Assert(restored.TriggerPayout(ctx), qt.IsNil)
	c.Assert(restored.Status().CurrentCycle, qt.Equals, uint64(2))
}

func TestEventLog(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(2)
	ctx := context.Background()

	var events []types.Event
	e.c.SetEventSink(func(ev types.Event) {
		events = append(events, ev)
	})

	e.joinAll(c)
	c.Assert(e.c.AssignPayoutOrder(big.NewInt(3)), qt.IsNil)
	for _, addr := range e.addrs {
		c.Assert(e.c.MakePayment(ctx, addr, 1), qt.IsNil)
	}
	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
	e.clock.Advance(24 * time.Hour)
	c.Assert(e.c.TriggerPayout(ctx), qt.IsNil)
	c.Assert(e.c.Restart(creatorAddr), qt.IsNil)

	var got []types.EventType
	for _, ev := range events {
		c.Assert(ev.CircleID, qt.Equals, types.CircleID(1))
		got = append(got, ev.Type)
	}
	c.Assert(got, qt.DeepEquals, []types.EventType{
		types.EventParticipantJoined,
		types.EventParticipantJoined,
		types.EventCircleStarted,
		types.EventOrderAssigned,
		types.EventPaymentMade,
		types.EventPaymentMade,
		types.EventPayoutSent,
		types.EventPayoutSent,
		types.EventCircleCompleted,
		types.EventCircleRestarted,
	})
}
