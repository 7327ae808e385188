// Package tags caches the backend tag catalog. Tags change rarely and every
// page render needs them, so the service keeps the last successful fetch for
// a TTL and serves stale data when a refresh fails.
package tags

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/bitesnap/internal/model"
)

const cacheTTL = 5 * time.Minute

// Catalog is the source interface, satisfied by *api.Client.
type Catalog interface {
	Tags(ctx context.Context) ([]model.Tag, error)
}

// Service fetches and caches the tag catalog.
type Service struct {
	catalog   Catalog
	mu        sync.RWMutex
	cached    []model.Tag
	lastFetch time.Time
}

func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// All returns the tag catalog, refreshing the cache when it is stale. A
// failed refresh returns the previous catalog; only a failure with an empty
// cache surfaces the error.
func (s *Service) All(ctx context.Context) ([]model.Tag, error) {
	s.mu.RLock()
	if time.Since(s.lastFetch) < cacheTTL && s.cached != nil {
		tags := s.cached
		s.mu.RUnlock()
		return tags, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if time.Since(s.lastFetch) < cacheTTL && s.cached != nil {
		return s.cached, nil
	}

	tags, err := s.catalog.Tags(ctx)
	if err != nil {
		if s.cached != nil {
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = tags
	s.lastFetch = time.Now()
	return tags, nil
}

// Selection returns the catalog as a TagList with the given slugs flagged on.
func (s *Service) Selection(ctx context.Context, slugs []string) (model.TagList, error) {
	tags, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	tl := model.NewTagList(tags, false)
	tl.Select(slugs)
	return tl, nil
}
