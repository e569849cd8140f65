package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt wraps big.Int to provide JSON (decimal string) and CBOR (big-endian
// bytes) encodings for amounts expressed in the token's smallest unit.
type BigInt big.Int

// NewBigInt returns a BigInt holding x.
func NewBigInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// MathBigInt converts b to a *big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

// Equal reports whether b and x hold the same value. It makes BigInt values
// comparable by go-cmp despite big.Int's unexported fields.
func (b *BigInt) Equal(x *BigInt) bool {
	if b == nil || x == nil {
		return b == x
	}
	return b.MathBigInt().Cmp(x.MathBigInt()) == 0
}

func (b *BigInt) String() string {
	return b.MathBigInt().String()
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := b.MathBigInt().SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer %q", s)
	}
	return nil
}

func (b *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.MathBigInt().Bytes())
}

func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	b.MathBigInt().SetBytes(buf)
	return nil
}
