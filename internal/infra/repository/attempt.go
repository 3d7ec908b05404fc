package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/infra/database/models"
	"github.com/donatale/donatale/internal/usecase"
)

const defaultOrphanLimit = 100

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Record(ctx context.Context, attempt domain.ReservationAttempt) error {
	row := toModel(attempt)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&row).Error
}

// ListOrphaned returns events created but never linked to their item, newest first.
func (r *AttemptRepository) ListOrphaned(ctx context.Context, limit int) ([]domain.ReservationAttempt, error) {
	if limit <= 0 {
		limit = defaultOrphanLimit
	}

	var rows []models.ReservationAttempt
	err := r.db.WithContext(ctx).
		Where("outcome = ?", string(domain.OutcomeOrphaned)).
		Order("c_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.ReservationAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, toDomain(row))
	}
	return attempts, nil
}

func toModel(a domain.ReservationAttempt) models.ReservationAttempt {
	return models.ReservationAttempt{
		ID:           a.ID,
		ItemID:       a.ItemID,
		DonationCode: a.DonationCode,
		DonorEmail:   a.DonorEmail,
		EventID:      a.EventID,
		Outcome:      string(a.Outcome),
		Reason:       a.Reason,
		CDate:        a.CreatedAt,
	}
}

func toDomain(m models.ReservationAttempt) domain.ReservationAttempt {
	return domain.ReservationAttempt{
		ID:           m.ID,
		ItemID:       m.ItemID,
		DonationCode: m.DonationCode,
		DonorEmail:   m.DonorEmail,
		EventID:      m.EventID,
		Outcome:      domain.AttemptOutcome(m.Outcome),
		Reason:       m.Reason,
		CreatedAt:    m.CDate,
	}
}

var _ usecase.AttemptLog = (*AttemptRepository)(nil)
