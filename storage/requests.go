package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/rondafi/ronda/types"
)

// PendingRequest is one outstanding randomness request: the oracle handle,
// the circle that is waiting for it, and the deadline after which the
// coordinator re-issues the request.
type PendingRequest struct {
	RequestID uint64         `json:"requestId"`
	CircleID  types.CircleID `json:"circleId"`
	Deadline  time.Time      `json:"deadline"`
}

func requestKey(requestID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, requestID)
	return key
}

// SetPendingRequest records an outstanding randomness request.
func (s *Storage) SetPendingRequest(req PendingRequest) error {
	return s.setArtifact(requestPrefix, requestKey(req.RequestID), req)
}

// DeletePendingRequest removes a fulfilled or superseded request.
func (s *Storage) DeletePendingRequest(requestID uint64) error {
	return s.deleteArtifact(requestPrefix, requestKey(requestID))
}

// PendingRequests returns every outstanding randomness request.
func (s *Storage) PendingRequests() ([]PendingRequest, error) {
	var reqs []PendingRequest
	pr := prefixeddb.NewPrefixedReader(s.db, requestPrefix)
	var iterErr error
	if err := pr.Iterate(nil, func(_, v []byte) bool {
		var req PendingRequest
		if err := decodeArtifact(v, &req); err != nil {
			iterErr = fmt.Errorf("decode pending request: %w", err)
			return false
		}
		reqs = append(reqs, req)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return reqs, nil
}
