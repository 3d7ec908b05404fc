package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/donatale/donatale/internal/domain"
)

type ItemUsecase struct {
	store  ContentStore
	config domain.Config
}

func NewItemUsecase(store ContentStore, config domain.Config) *ItemUsecase {
	return &ItemUsecase{store: store, config: withDefaults(config)}
}

// List returns every donation item, claimed or not.
func (uc *ItemUsecase) List(ctx context.Context) ([]domain.DonationItem, error) {
	ctx, span := tracer.Start(ctx, "Item.Usecase.List")
	defer span.End()

	items, err := uc.store.ListItems(ctx, uc.config.ItemTypeKey)
	if err != nil {
		span.RecordError(errors.Wrap(err, "ItemUsecase.List: store.ListItems failed"))
		return nil, domain.UpstreamError{Op: "list items", Err: err}
	}
	return items, nil
}
