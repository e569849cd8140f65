package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType tags an entry in a circle's append-only event log.
type EventType string

const (
	EventParticipantJoined  EventType = "participant-joined"
	EventPaymentMade        EventType = "payment-made"
	EventPayoutSent         EventType = "payout-sent"
	EventGracePeriodEntered EventType = "grace-period-entered"
	EventParticipantRemoved EventType = "participant-removed"
	EventCircleStarted      EventType = "circle-started"
	EventOrderAssigned      EventType = "order-assigned"
	EventCircleCompleted    EventType = "circle-completed"
	EventCircleRestarted    EventType = "circle-restarted"
)

// Event is a notification emitted by a circle after a state change commits.
// The event log is append-only and exposed to external observers.
type Event struct {
	Type        EventType      `json:"type"`
	CircleID    CircleID       `json:"circleId"`
	Participant common.Address `json:"participant,omitempty"`
	Amount      *BigInt        `json:"amount,omitempty"`
	Seed        HexBytes       `json:"seed,omitempty"`
	Cycle       uint64         `json:"cycle,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
