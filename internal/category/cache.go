// Package category keeps the id→name lookup for post categories.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/five82/quill/internal/wp"
)

// Lister fetches categories.
type Lister interface {
	ListCategories(ctx context.Context) ([]wp.Category, error)
}

// Cache holds the most recently loaded categories. Only the first page the
// API returns is reflected.
type Cache struct {
	lister Lister
	logger *slog.Logger

	mu     sync.RWMutex
	byID   map[int]string
	sorted []wp.Category
}

// NewCache builds an empty Cache. A nil logger uses slog.Default().
func NewCache(lister Lister, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{lister: lister, logger: logger, byID: map[int]string{}}
}

// Load fetches categories and replaces the lookup. On failure the previous
// lookup is kept and the error is logged and returned.
func (c *Cache) Load(ctx context.Context) error {
	cats, err := c.lister.ListCategories(ctx)
	if err != nil {
		c.logger.Warn("category fetch failed", "error", err)
		return fmt.Errorf("load categories: %w", err)
	}

	byID := make(map[int]string, len(cats))
	for _, cat := range cats {
		byID[cat.ID] = cat.Name
	}
	sorted := append([]wp.Category(nil), cats...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	c.mu.Lock()
	c.byID = byID
	c.sorted = sorted
	c.mu.Unlock()
	c.logger.Debug("categories loaded", "count", len(cats))
	return nil
}

// Lookup returns a copy of the id→name map.
func (c *Cache) Lookup() map[int]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.byID)
}

// Name returns the category name for id.
func (c *Cache) Name(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byID[id]
	return name, ok
}

// List returns the categories sorted by name, for the editor's selector.
func (c *Cache) List() []wp.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]wp.Category(nil), c.sorted...)
}
