package duplicates

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// pathRegistry keeps every record of a scan ordered by path. The skiplist
// context carries the root the record was reached from.
type pathRegistry struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

// newPathRegistry creates an empty registry
func newPathRegistry(maxLevels int) *pathRegistry {
	if maxLevels < 8 {
		maxLevels = 16
	}

	getKeyFromItem := func(f *FileRecord) string {
		return f.Path
	}

	getItemSize := func(f *FileRecord) int {
		return len(f.Path)
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &pathRegistry{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert records f under root. It returns false if the path is already known.
func (pr *pathRegistry) Insert(f *FileRecord, root string) bool {
	if pr.Contains(f.Path) {
		return false
	}
	if root == "" {
		root = UnknownRootContext
	}
	pr.skiplist.Insert(f, root)
	return true
}

// Contains reports whether path has been registered
func (pr *pathRegistry) Contains(path string) bool {
	itemPtr, _ := pr.skiplist.Find(path)
	return itemPtr != nil
}

// Find returns the record for path and the root it was found under
func (pr *pathRegistry) Find(path string) (*FileRecord, string) {
	itemPtr, root := pr.skiplist.Find(path)
	if itemPtr == nil {
		return nil, ""
	}
	return itemPtr.Item(), root
}

// ForEach iterates records in path order
func (pr *pathRegistry) ForEach(callback func(*FileRecord, string) bool) {
	for current := pr.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item(), current.Context()) {
			break
		}
	}
}

// Length returns the number of registered paths
func (pr *pathRegistry) Length() int {
	return pr.skiplist.Length()
}
