package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rondafi/ronda/types"
)

// CreateCircleRequest is the body of POST /circles. Durations are expressed
// in seconds.
type CreateCircleRequest struct {
	Creator               common.Address `json:"creator"`
	Contribution          *types.BigInt  `json:"contribution"`
	PayoutIntervalSeconds uint64         `json:"payoutIntervalSeconds"`
	GracePeriodSeconds    uint64         `json:"gracePeriodSeconds"`
	MaxParticipants       int            `json:"maxParticipants"`
}

// CreateCircleResponse carries the id assigned to a freshly created circle.
type CreateCircleResponse struct {
	CircleID types.CircleID `json:"circleId"`
}

// CircleListResponse lists the active circle ids.
type CircleListResponse struct {
	Circles []types.CircleID `json:"circles"`
}

// ParticipantsResponse is the roster read model of one circle.
type ParticipantsResponse struct {
	CircleID     types.CircleID          `json:"circleId"`
	Participants []types.ParticipantInfo `json:"participants"`
}

// OrderResponse is the payout order of one circle, available once assigned.
type OrderResponse struct {
	CircleID    types.CircleID `json:"circleId"`
	PayoutOrder []int          `json:"payoutOrder"`
}

// EventsResponse is the append-only event log of one circle.
type EventsResponse struct {
	CircleID types.CircleID `json:"circleId"`
	Events   []types.Event  `json:"events"`
}
