package domain

import "time"

// DonationItem is an item listed in the content store.
type DonationItem struct {
	ID          string
	Title       string
	PersonName  string
	Description string
	ImageURL    string
	// DonationID is the linked DonationEvent, empty while unclaimed.
	DonationID string
}

// Claimed reports whether a DonationEvent is already linked.
func (i DonationItem) Claimed() bool {
	return i.DonationID != ""
}

// DonationEvent records a donor's intent.
type DonationEvent struct {
	ID         string
	Name       string
	DonorName  string
	DonorEmail string
	DonatedBy  string
}

// ItemType is a schema type definition of the content store.
type ItemType struct {
	ID     string
	APIKey string
	Name   string
}

// Email is a single transactional message.
type Email struct {
	To       string
	Subject  string
	HTML     string
	Text     string
	FromName string
}

type AttemptOutcome string

const (
	OutcomeReserved AttemptOutcome = "reserved"
	OutcomeRejected AttemptOutcome = "rejected"
	OutcomeOrphaned AttemptOutcome = "orphaned"
	OutcomeFailed   AttemptOutcome = "failed"
)

// ReservationAttempt is an audit entry for one call of Reserve.
type ReservationAttempt struct {
	ID           string         `json:"id"`
	ItemID       string         `json:"itemId"`
	DonationCode string         `json:"donationCode"`
	DonorEmail   string         `json:"donorEmail"`
	EventID      string         `json:"eventId,omitempty"`
	Outcome      AttemptOutcome `json:"outcome"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ReservationSignal is published after a successful reservation.
type ReservationSignal struct {
	ItemID     string    `json:"itemId"`
	EventID    string    `json:"eventId"`
	ReservedAt time.Time `json:"reservedAt"`
}
