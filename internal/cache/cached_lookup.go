package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/client"
	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// CachedProfileLookup decorates a ProfileLookup with a cache and
// singleflight, so concurrent misses for the same user collapse into
// one upstream call.
type CachedProfileLookup struct {
	next  client.ProfileLookup
	cache ProfileCache
	ttl   time.Duration
	sf    singleflight.Group
}

// NewCachedProfileLookup wraps the given lookup.
func NewCachedProfileLookup(next client.ProfileLookup, cache ProfileCache, ttl time.Duration) *CachedProfileLookup {
	return &CachedProfileLookup{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

// GetProfile returns the cached profile when present, otherwise fetches
// from the upstream lookup and caches the result. Cache errors degrade
// to upstream fetches, never to request failures.
func (c *CachedProfileLookup) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	cached, err := c.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache get error")
	}

	result, err, _ := c.sf.Do(userID, func() (interface{}, error) {
		profile, err := c.next.GetProfile(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Cache asynchronously so a slow cache cannot block the response.
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := c.cache.Set(cacheCtx, profile, c.ttl); err != nil {
				log.L().Warn().Err(err).Str(log.FieldUserID, userID).Msg("profile cache set error")
			}
		}()

		return profile, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.Profile), nil
}
