package circle

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PayoutOrder derives a permutation of the slot indices [0..n) from a single
// random seed using a Fisher–Yates shuffle: for i from n-1 down to 1,
// j = keccak256(seed ‖ i) mod (i+1), then slots i and j swap. Given a uniform
// seed the result is uniform over the n! permutations, and anyone holding the
// seed can replay the draw to audit the assignment.
//
// The seed is left-padded to 32 bytes and the step counter is encoded as
// 8 big-endian bytes, so the hash input is unambiguous.
func PayoutOrder(seed *big.Int, n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	seedBytes := common.LeftPadBytes(seed.Bytes(), 32)
	step := make([]byte, 8)
	for i := n - 1; i >= 1; i-- {
		binary.BigEndian.PutUint64(step, uint64(i))
		h := new(big.Int).SetBytes(crypto.Keccak256(seedBytes, step))
		j := h.Mod(h, big.NewInt(int64(i+1))).Int64()
		order[i], order[j] = order[j], order[i]
	}
	return order
}
