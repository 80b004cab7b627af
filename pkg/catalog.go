package duplicates

import (
	"fmt"
)

// Catalog owns everything one scan pass produces: the chained DuplicateIndex,
// the SetCollection view and the ordered path registry. A catalog goes stale
// as soon as the filesystem is modified and must be rebuilt by a new scan.
type Catalog struct {
	index *DuplicateIndex
	sets  *SetCollection
	paths *pathRegistry
}

// NewCatalog creates an empty catalog whose index has tableSize buckets
func NewCatalog(tableSize int) (*Catalog, error) {
	index, err := NewDuplicateIndex(tableSize)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		index: index,
		sets:  NewSetCollection(),
		paths: newPathRegistry(16),
	}, nil
}

// Add inserts f into the index and the set collection. It returns false,
// without error, when the path was already catalogued from another root.
func (c *Catalog) Add(f *FileRecord, root string) (bool, error) {
	if f.ContentHash == "" {
		return false, fmt.Errorf("cannot catalog %s: %w", f.Path, ErrEmptyHash)
	}
	if !c.paths.Insert(f, root) {
		return false, nil
	}
	if err := c.index.Insert(f); err != nil {
		return false, err
	}
	if err := c.sets.Add(f); err != nil {
		return false, err
	}
	return true, nil
}

// Contains reports whether path has been catalogued
func (c *Catalog) Contains(path string) bool {
	return c.paths.Contains(path)
}

// Lookup returns the record for path and the root it was scanned from
func (c *Catalog) Lookup(path string) (*FileRecord, string) {
	return c.paths.Find(path)
}

// Index returns the duplicate index
func (c *Catalog) Index() *DuplicateIndex {
	return c.index
}

// Sets returns the set collection
func (c *Catalog) Sets() *SetCollection {
	return c.sets
}

// FileCount returns the number of catalogued files
func (c *Catalog) FileCount() int {
	return c.index.Len()
}

// IsEmpty reports whether the scan found no files
func (c *Catalog) IsEmpty() bool {
	return c.index.Len() == 0
}

// ForEachPath iterates records in path order
func (c *Catalog) ForEachPath(callback func(f *FileRecord, root string) bool) {
	c.paths.ForEach(callback)
}
