package storage

import (
	"encoding/binary"
	"fmt"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/rondafi/ronda/types"
)

// circleIDCounterKey holds the last assigned circle id under the metadata
// prefix.
var circleIDCounterKey = []byte("circle-id-counter")

// SetCircle stores a circle snapshot, replacing any previous one.
func (s *Storage) SetCircle(snap *types.CircleSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil circle snapshot")
	}
	return s.setArtifact(circlePrefix, snap.Config.ID.Marshal(), snap)
}

// Circle retrieves a circle snapshot. It returns ErrNotFound if no circle is
// stored under that id.
func (s *Storage) Circle(id types.CircleID) (*types.CircleSnapshot, error) {
	snap := &types.CircleSnapshot{}
	if err := s.getArtifact(circlePrefix, id.Marshal(), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListCircles returns every stored circle snapshot, ordered by id.
func (s *Storage) ListCircles() ([]*types.CircleSnapshot, error) {
	var snaps []*types.CircleSnapshot
	pr := prefixeddb.NewPrefixedReader(s.db, circlePrefix)
	var iterErr error
	if err := pr.Iterate(nil, func(_, v []byte) bool {
		snap := &types.CircleSnapshot{}
		if err := decodeArtifact(v, snap); err != nil {
			iterErr = fmt.Errorf("decode circle snapshot: %w", err)
			return false
		}
		snaps = append(snaps, snap)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate circles: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return snaps, nil
}

// NextCircleID increments and persists the registry's sequential id counter,
// returning the freshly assigned id. The first id is 1. The caller is
// responsible for linearizing calls.
func (s *Storage) NextCircleID() (types.CircleID, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, metadataPrefix)
	var last uint64
	if data, err := rTx.Get(circleIDCounterKey); err == nil && len(data) == 8 {
		last = binary.BigEndian.Uint64(data)
	}
	next := last + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), metadataPrefix)
	if err := wTx.Set(circleIDCounterKey, buf); err != nil {
		wTx.Discard()
		return 0, err
	}
	if err := wTx.Commit(); err != nil {
		return 0, err
	}
	return types.CircleID(next), nil
}
