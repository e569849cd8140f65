package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestBigMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	jsonBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := json.Marshal(jsonBigInt)
	c.Assert(err, qt.IsNil)
	c.Assert(string(bBigInt), qt.Equals, `{"bi":"1234567890"}`)

	var unmarshaled map[string]*BigInt
	c.Assert(json.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)

	c.Assert(json.Unmarshal([]byte(`{"bi":"not a number"}`), &unmarshaled), qt.IsNotNil)
}

func TestBigMarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	bi := (*BigInt)(big.NewInt(1234567890))
	cborBigInt := map[string]*BigInt{
		"bi": bi,
	}
	bBigInt, err := cbor.Marshal(cborBigInt)
	c.Assert(err, qt.IsNil)

	var unmarshaled map[string]*BigInt
	c.Assert(cbor.Unmarshal(bBigInt, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled["bi"], qt.DeepEquals, bi)
}

func TestBigEqual(t *testing.T) {
	c := qt.New(t)
	c.Assert(NewBigInt(7).Equal(NewBigInt(7)), qt.IsTrue)
	c.Assert(NewBigInt(7).Equal(NewBigInt(8)), qt.IsFalse)
	c.Assert(NewBigInt(7).Equal(nil), qt.IsFalse)
	c.Assert((*BigInt)(nil).Equal(nil), qt.IsTrue)
}
