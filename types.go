package donatale

// ReservationRequest is the body accepted by the reservation endpoint.
type ReservationRequest struct {
	ItemID       string `json:"itemId" validate:"required"`
	DonationCode string `json:"donationCode" validate:"required"`
	DonorName    string `json:"donorName" validate:"required"`
	DonorEmail   string `json:"donorEmail" validate:"required"`
	DonatedBy    string `json:"donatedBy" validate:"required"`
}

// ReservationResponse is returned by the reservation endpoint. DonationEventID is set on success only.
type ReservationResponse struct {
	Message         string `json:"message"`
	DonationEventID string `json:"donationEventId,omitempty"`
}

type Image struct {
	URL string `json:"url"`
}

// DonationItemView is a single entry of the public item listing.
type DonationItemView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PersonName  string `json:"personName"`
	Description string `json:"description"`
	Image       Image  `json:"image"`
	Donated     bool   `json:"donated"`
}

type ItemListResponse struct {
	Items []DonationItemView `json:"items"`
}

// DonationItemData is what a listing card carries for the reservation modal.
type DonationItemData struct {
	ID           string
	Title        string
	PersonName   string
	Description  string
	ImageURL     string
	DonationCode string
}
