package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// CircleID identifies a savings circle. IDs are assigned sequentially by the
// coordinator, starting at 1; zero is never a valid id.
type CircleID uint64

// Marshal encodes the id as 8 big-endian bytes, the form used as a storage key.
func (id CircleID) Marshal() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Unmarshal decodes an id previously encoded with Marshal.
func (id *CircleID) Unmarshal(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("invalid CircleID length: %d", len(data))
	}
	*id = CircleID(binary.BigEndian.Uint64(data))
	return nil
}

func (id CircleID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id CircleID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CircleID) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid CircleID %q: %w", text, err)
	}
	*id = CircleID(v)
	return nil
}
