package donatale

import (
	"regexp"
	"strings"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s has a basic local@domain.tld shape.
func IsEmail(s string) bool {
	return emailShape.MatchString(s)
}

// Normalize trims every field and defaults DonatedBy to DonorName.
func (r ReservationRequest) Normalize() ReservationRequest {
	r.ItemID = strings.TrimSpace(r.ItemID)
	r.DonationCode = strings.TrimSpace(r.DonationCode)
	r.DonorName = strings.TrimSpace(r.DonorName)
	r.DonorEmail = strings.TrimSpace(r.DonorEmail)
	r.DonatedBy = strings.TrimSpace(r.DonatedBy)
	if r.DonatedBy == "" {
		r.DonatedBy = r.DonorName
	}
	return r
}
