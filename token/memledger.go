package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemLedger implements Ledger with in-memory balances. It backs tests and the
// daemon's simulation mode.
type MemLedger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	pool     *big.Int
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances: make(map[common.Address]*big.Int),
		pool:     new(big.Int),
	}
}

// Mint credits amount to the given account out of thin air.
func (l *MemLedger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(addr).Add(l.balance(addr), amount)
}

// BalanceOf returns the current balance of the given account.
func (l *MemLedger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(addr))
}

// PoolBalance returns the funds currently held by the pool account.
func (l *MemLedger) PoolBalance() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.pool)
}

func (l *MemLedger) PullFunds(_ context.Context, from common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("pull funds: non-positive amount %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.balance(from)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("pull funds: insufficient balance for %s: have %s, need %s", from.Hex(), b, amount)
	}
	b.Sub(b, amount)
	l.pool.Add(l.pool, amount)
	return nil
}

func (l *MemLedger) PushFunds(_ context.Context, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("push funds: non-positive amount %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool.Cmp(amount) < 0 {
		return fmt.Errorf("push funds: pool underflow: have %s, need %s", l.pool, amount)
	}
	l.pool.Sub(l.pool, amount)
	l.balance(to).Add(l.balance(to), amount)
	return nil
}

// balance must be called with the mutex held.
func (l *MemLedger) balance(addr common.Address) *big.Int {
	b, ok := l.balances[addr]
	if !ok {
		b = new(big.Int)
		l.balances[addr] = b
	}
	return b
}
