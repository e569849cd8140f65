package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CircleState is the lifecycle state of a circle.
type CircleState uint8

const (
	// CircleOpen accepts new participants until the roster is full.
	CircleOpen CircleState = iota
	// CircleActive runs contribution/payout cycles.
	CircleActive
	// CircleCompleted has disbursed one payout per participant. Terminal
	// until the creator restarts the circle.
	CircleCompleted
)

func (s CircleState) String() string {
	switch s {
	case CircleOpen:
		return "open"
	case CircleActive:
		return "active"
	case CircleCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s CircleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CircleState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "open":
		*s = CircleOpen
	case "active":
		*s = CircleActive
	case "completed":
		*s = CircleCompleted
	default:
		return fmt.Errorf("unknown circle state %q", text)
	}
	return nil
}

// CircleConfig holds the immutable parameters fixed at circle creation.
type CircleConfig struct {
	ID              CircleID       `json:"id"`
	Creator         common.Address `json:"creator"`
	Contribution    *BigInt        `json:"contribution"`
	PayoutInterval  time.Duration  `json:"payoutInterval"`
	GracePeriod     time.Duration  `json:"gracePeriod"`
	MaxParticipants int            `json:"maxParticipants"`
}

// ParticipantInfo is the per-participant read model.
type ParticipantInfo struct {
	Address        common.Address `json:"address"`
	Paid           bool           `json:"paid"`
	PaidUntilCycle uint64         `json:"paidUntilCycle"`
	Active         bool           `json:"active"`
	PayoutRank     int            `json:"payoutRank"`
	JoinedAt       time.Time      `json:"joinedAt"`
}

// CircleStatus is the dynamic part of a circle's read model.
type CircleStatus struct {
	State            CircleState `json:"state"`
	StartTime        time.Time   `json:"startTime,omitempty"`
	CurrentCycle     uint64      `json:"currentCycle"`
	PayoutsMade      uint64      `json:"payoutsMade"`
	ParticipantCount int         `json:"participantCount"`
	PooledFunds      *BigInt     `json:"pooledFunds"`
	OrderAssigned    bool        `json:"orderAssigned"`
	NextPayoutTime   time.Time   `json:"nextPayoutTime,omitempty"`
}

// CycleSummary describes the current cycle: who receives next, how much, and
// the earliest time the payout can be triggered.
type CycleSummary struct {
	Cycle          uint64         `json:"cycle"`
	NextRecipient  common.Address `json:"nextRecipient"`
	NextAmount     *BigInt        `json:"nextAmount"`
	NextPayoutTime time.Time      `json:"nextPayoutTime"`
}

// CircleInfo is the combined read model served to external consumers:
// static configuration, dynamic status, the roster, and the payout order once
// assigned.
type CircleInfo struct {
	Config       CircleConfig      `json:"config"`
	Status       CircleStatus      `json:"status"`
	Participants []ParticipantInfo `json:"participants"`
	PayoutOrder  []int             `json:"payoutOrder,omitempty"`
}

// ParticipantSnapshot is the stored form of a participant slot.
type ParticipantSnapshot struct {
	Address        common.Address `json:"address"`
	Paid           bool           `json:"paid"`
	PaidUntilCycle uint64         `json:"paidUntilCycle"`
	Active         bool           `json:"active"`
	PayoutRank     int            `json:"payoutRank"`
	JoinedAt       time.Time      `json:"joinedAt"`
}

// CircleSnapshot is the full persisted state of a circle, sufficient to
// restore the state machine after a restart.
type CircleSnapshot struct {
	Config        CircleConfig          `json:"config"`
	State         CircleState           `json:"state"`
	StartTime     time.Time             `json:"startTime"`
	CurrentCycle  uint64                `json:"currentCycle"`
	PayoutsMade   uint64                `json:"payoutsMade"`
	PooledFunds   *BigInt               `json:"pooledFunds"`
	Participants  []ParticipantSnapshot `json:"participants"`
	OrderAssigned bool                  `json:"orderAssigned"`
	PayoutOrder   []int                 `json:"payoutOrder,omitempty"`
}
