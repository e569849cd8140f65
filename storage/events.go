package storage

import (
	"encoding/binary"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/rondafi/ronda/types"
)

// eventKey builds the sequence-ordered key for the n-th event of a circle:
// 8 bytes of circle id followed by 8 bytes of sequence number, both
// big-endian, so iteration yields events in append order.
func eventKey(id types.CircleID, seq uint64) []byte {
	key := make([]byte, 16)
	copy(key, id.Marshal())
	binary.BigEndian.PutUint64(key[8:], seq)
	return key
}

// AppendEvent appends an event to its circle's log. The log is append-only;
// events are never rewritten or removed.
func (s *Storage) AppendEvent(ev types.Event) error {
	data, err := encodeArtifact(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	// The next sequence number is one past the last stored event.
	var seq uint64
	pr := prefixeddb.NewPrefixedReader(s.db, eventPrefix)
	if err := pr.Iterate(ev.CircleID.Marshal(), func(k, _ []byte) bool {
		if len(k) == 8 {
			if n := binary.BigEndian.Uint64(k); n >= seq {
				seq = n + 1
			}
		}
		return true
	}); err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), eventPrefix)
	if err := wTx.Set(eventKey(ev.CircleID, seq), data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// Events returns a circle's event log in append order.
func (s *Storage) Events(id types.CircleID) ([]types.Event, error) {
	var events []types.Event
	pr := prefixeddb.NewPrefixedReader(s.db, eventPrefix)
	var iterErr error
	if err := pr.Iterate(id.Marshal(), func(_, v []byte) bool {
		var ev types.Event
		if err := decodeArtifact(v, &ev); err != nil {
			iterErr = fmt.Errorf("decode event: %w", err)
			return false
		}
		events = append(events, ev)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return events, nil
}
