package models

import (
	"time"
)

// SwapStatus represents the lifecycle state of a swap request.
type SwapStatus string

const (
	// SwapStatusPending is the initial state of every swap request.
	SwapStatusPending SwapStatus = "pending"
	// SwapStatusAccepted indicates the recipient agreed to the exchange.
	SwapStatusAccepted SwapStatus = "accepted"
	// SwapStatusRejected indicates the recipient declined the exchange.
	SwapStatusRejected SwapStatus = "rejected"
	// SwapStatusCancelled indicates the requester withdrew the request.
	SwapStatusCancelled SwapStatus = "cancelled"
	// SwapStatusCompleted indicates both sides finished the exchange.
	SwapStatusCompleted SwapStatus = "completed"
)

// SwapAction is an operation attempted against a swap request.
type SwapAction string

const (
	SwapActionAccept   SwapAction = "accept"
	SwapActionReject   SwapAction = "reject"
	SwapActionCancel   SwapAction = "cancel"
	SwapActionComplete SwapAction = "complete"
)

// swapTransitions is the exhaustive transition table for the swap lifecycle.
// A (status, action) pair absent from the table is rejected. rejected,
// cancelled and completed are terminal.
var swapTransitions = map[SwapStatus]map[SwapAction]SwapStatus{
	SwapStatusPending: {
		SwapActionAccept: SwapStatusAccepted,
		SwapActionReject: SwapStatusRejected,
		SwapActionCancel: SwapStatusCancelled,
	},
	SwapStatusAccepted: {
		SwapActionComplete: SwapStatusCompleted,
	},
}

// NextStatus returns the status reached by applying action in the given
// status, or false when the transition is not allowed.
func NextStatus(status SwapStatus, action SwapAction) (SwapStatus, bool) {
	next, ok := swapTransitions[status][action]
	return next, ok
}

// CanTransition reports whether action is allowed in the given status.
func CanTransition(status SwapStatus, action SwapAction) bool {
	_, ok := NextStatus(status, action)
	return ok
}

// IsTerminal reports whether no further transition is possible from status.
func (s SwapStatus) IsTerminal() bool {
	return len(swapTransitions[s]) == 0
}

// SwapRequest is a proposed skill exchange between two users. Records are
// never deleted; they are transitioned and kept as the audit trail of the
// exchange.
type SwapRequest struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	RequesterID uint `gorm:"not null;index:idx_swaps_requester" json:"requester_id"`
	RecipientID uint `gorm:"not null;index:idx_swaps_recipient" json:"recipient_id"`

	// RequesterSkill is what the requester offers to teach; RecipientSkill is
	// what they want from the recipient.
	RequesterSkill string `gorm:"not null" json:"requester_skill"`
	RecipientSkill string `gorm:"not null" json:"recipient_skill"`

	Message string `gorm:"type:text" json:"message"`
	Notes   string `gorm:"type:text" json:"notes"`

	Status SwapStatus `gorm:"type:varchar(20);default:'pending';index:idx_swaps_status" json:"status"`

	AcceptedAt  *time.Time `json:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Requester User `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

// TableName specifies the table name for GORM
func (SwapRequest) TableName() string {
	return "swap_requests"
}
