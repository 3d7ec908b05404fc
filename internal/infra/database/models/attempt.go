package models

import (
	"time"
)

type ReservationAttempt struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	ItemID       string    `json:"itemId" gorm:"type:text;index"`
	DonationCode string    `json:"donationCode" gorm:"type:text"`
	DonorEmail   string    `json:"donorEmail" gorm:"type:text"`
	EventID      string    `json:"eventId" gorm:"type:text;index"`
	Outcome      string    `json:"outcome" gorm:"type:text;not null;index"`
	Reason       string    `json:"reason" gorm:"type:text"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
