package catalog

import (
	"context"
	"sync"
	"time"

	"examprep-billing/internal/model"
	"examprep-billing/internal/repository"
)

// Cache keeps the catalog in process memory behind a TTL. The catalog is
// immutable within a deploy lifetime, so no invalidation beyond expiry is
// needed. The clock is injected so tests never sleep.
type Cache struct {
	repo repository.CatalogRepository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	items    map[string]*model.CatalogItem
	loadedAt time.Time
}

func NewCache(repo repository.CatalogRepository, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		repo: repo,
		ttl:  ttl,
		now:  now,
	}
}

func (c *Cache) fresh() bool {
	return c.items != nil && c.now().Sub(c.loadedAt) < c.ttl
}

func (c *Cache) load(ctx context.Context) (map[string]*model.CatalogItem, error) {
	c.mu.RLock()
	if c.fresh() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh() {
		return c.items, nil
	}

	all, err := c.repo.All(ctx)
	if err != nil {
		// Serve the stale copy rather than fail a checkout on a read hiccup.
		if c.items != nil {
			return c.items, nil
		}
		return nil, err
	}

	items := make(map[string]*model.CatalogItem, len(all))
	for _, item := range all {
		items[item.ID] = item
	}
	c.items = items
	c.loadedAt = c.now()

	return items, nil
}

func (c *Cache) FindByID(ctx context.Context, itemID string) (*model.CatalogItem, bool, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, false, err
	}

	item, ok := items[itemID]
	return item, ok, nil
}

// FindMany returns the items it could resolve plus the ids it could not.
func (c *Cache) FindMany(ctx context.Context, itemIDs []string) ([]*model.CatalogItem, []string, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, nil, err
	}

	found := make([]*model.CatalogItem, 0, len(itemIDs))
	var missing []string
	for _, id := range itemIDs {
		if item, ok := items[id]; ok {
			found = append(found, item)
		} else {
			missing = append(missing, id)
		}
	}

	return found, missing, nil
}

func (c *Cache) All(ctx context.Context) ([]*model.CatalogItem, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	all := make([]*model.CatalogItem, 0, len(items))
	for _, item := range items {
		all = append(all, item)
	}

	return all, nil
}

// Subjects returns the subject-kind items, the set a bundle grants access to.
func (c *Cache) Subjects(ctx context.Context) ([]*model.CatalogItem, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	var subjects []*model.CatalogItem
	for _, item := range items {
		if item.Kind == model.KindSubject {
			subjects = append(subjects, item)
		}
	}

	return subjects, nil
}
