package usecase

import (
	"context"

	"github.com/donatale/donatale/internal/domain"
)

// ContentStore is the external record store. It offers no transactions or locks.
type ContentStore interface {
	FindItem(ctx context.Context, id string) (domain.DonationItem, error)
	ListItemTypes(ctx context.Context) ([]domain.ItemType, error)
	CreateItem(ctx context.Context, itemTypeID string, fields map[string]any) (string, error)
	UpdateItem(ctx context.Context, id string, fields map[string]any) error
	ListItems(ctx context.Context, itemTypeKey string) ([]domain.DonationItem, error)
}

// Mailer sends a single email. No delivery guarantee.
type Mailer interface {
	Send(ctx context.Context, email domain.Email) error
}

// AttemptLog keeps an audit trail of reservation outcomes.
type AttemptLog interface {
	Record(ctx context.Context, attempt domain.ReservationAttempt) error
	ListOrphaned(ctx context.Context, limit int) ([]domain.ReservationAttempt, error)
}

// SignalPublisher announces completed reservations to other processes.
type SignalPublisher interface {
	PublishReservation(ctx context.Context, signal domain.ReservationSignal) error
}
