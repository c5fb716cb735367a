package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileCatalog reads the catalog from a JSON file of the form
// {"floodPrones": [...]}.
type FileCatalog struct {
	Path string
}

// LoadCatalog implements CatalogSource.
func (f FileCatalog) LoadCatalog(_ context.Context) ([]CatalogEntry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", f.Path, err)
	}
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", f.Path, err)
	}
	return file.FloodPrones, nil
}

// CachedCatalog keeps the first successful load for the life of the
// process. Failed loads are not cached and are retried on the next call.
type CachedCatalog struct {
	src CatalogSource

	mu      sync.Mutex
	loaded  bool
	entries []CatalogEntry
}

// NewCachedCatalog wraps src.
func NewCachedCatalog(src CatalogSource) *CachedCatalog {
	return &CachedCatalog{src: src}
}

// LoadCatalog implements CatalogSource.
func (c *CachedCatalog) LoadCatalog(ctx context.Context) ([]CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.entries, nil
	}
	entries, err := c.src.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	c.entries = entries
	c.loaded = true
	return entries, nil
}

var (
	_ CatalogSource = FileCatalog{}
	_ CatalogSource = (*CachedCatalog)(nil)
)
