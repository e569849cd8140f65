// Package token defines the fungible-token ledger interface consumed by the
// circle state machine. The real medium of value transfer is external to this
// service; circles only require atomic pull/push semantics with an error on
// failure.
package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger moves funds between accounts and the pool. Both operations are
// all-or-nothing: a returned error means no funds moved at all.
type Ledger interface {
	// PullFunds debits amount from the given account into the pool. It
	// fails if the account lacks balance or authorization.
	PullFunds(ctx context.Context, from common.Address, amount *big.Int) error
	// PushFunds credits amount from the pool to the given account.
	PushFunds(ctx context.Context, to common.Address, amount *big.Int) error
}
