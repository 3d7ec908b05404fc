package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/donatale/donatale/internal/domain"
	"github.com/donatale/donatale/internal/usecase"
)

const defaultListingTTL = 30 * time.Second

// ItemCache is the subset of *memcache.Client the listing cache needs.
type ItemCache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// ListingCache keeps the public item listing in memcached.
// Any UpdateItem drops the cached listing.
type ListingCache struct {
	usecase.ContentStore
	mc          ItemCache
	ttl         time.Duration
	itemTypeKey string
	logger      zerolog.Logger
}

func NewListingCache(store usecase.ContentStore, mc ItemCache, itemTypeKey string, ttl time.Duration, logger zerolog.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = defaultListingTTL
	}
	if itemTypeKey == "" {
		itemTypeKey = usecase.DefaultItemTypeKey
	}
	return &ListingCache{
		ContentStore: store,
		mc:           mc,
		ttl:          ttl,
		itemTypeKey:  itemTypeKey,
		logger:       logger,
	}
}

func listingKey(itemTypeKey string) string {
	return "donatale:items:" + itemTypeKey
}

func (c *ListingCache) ListItems(ctx context.Context, itemTypeKey string) ([]domain.DonationItem, error) {
	key := listingKey(itemTypeKey)

	cached, err := c.mc.Get(key)
	if err == nil {
		var items []domain.DonationItem
		if err := json.Unmarshal(cached.Value, &items); err == nil {
			return items, nil
		}
	} else if !errors.Is(err, memcache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("listing cache unavailable")
	}

	items, err := c.ContentStore.ListItems(ctx, itemTypeKey)
	if err != nil {
		return nil, err
	}

	value, err := json.Marshal(items)
	if err != nil {
		return items, nil
	}
	err = c.mc.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(c.ttl.Seconds()),
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("listing cache not stored")
	}
	return items, nil
}

func (c *ListingCache) UpdateItem(ctx context.Context, id string, fields map[string]any) error {
	if err := c.ContentStore.UpdateItem(ctx, id, fields); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *ListingCache) invalidate() {
	key := listingKey(c.itemTypeKey)
	if err := c.mc.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("listing cache not invalidated")
	}
}

var _ usecase.ContentStore = (*ListingCache)(nil)
var _ ItemCache = (*memcache.Client)(nil)
