package godb

import "sync"

// SimpleCatalog is an in-memory, map-backed [Catalog]: table ids are
// registered with AddTable as they are opened, and looked up by the
// buffer pool thereafter. Discovering a schema from a database
// directory (or any other catalog source) is out of scope for the
// core; callers wire up tables themselves.
type SimpleCatalog struct {
	mu     sync.RWMutex
	tables map[int64]DBFile
}

// NewSimpleCatalog returns an empty catalog.
func NewSimpleCatalog() *SimpleCatalog {
	return &SimpleCatalog{tables: make(map[int64]DBFile)}
}

// AddTable registers file under its own ID, so that subsequent
// GetDatabaseFile(file.ID()) calls return it.
func (c *SimpleCatalog) AddTable(file DBFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[file.ID()] = file
}

func (c *SimpleCatalog) GetDatabaseFile(tableID int64) (DBFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.tables[tableID]
	if !ok {
		return nil, newErr(IllegalArgumentError, "no table registered with id %d", tableID)
	}
	return f, nil
}
