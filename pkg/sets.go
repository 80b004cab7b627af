package duplicates

import (
	"fmt"
)

// Set holds every scanned record sharing one content hash. The records are
// owned by the Catalog; the set only references them.
type Set struct {
	ContentHash string
	Files       []*FileRecord
}

// Size returns the content size, taken from the first file
func (s *Set) Size() uint64 {
	if len(s.Files) == 0 {
		return 0
	}
	return s.Files[0].Size
}

// IsDuplicate reports whether more than one path holds this content
func (s *Set) IsDuplicate() bool {
	return len(s.Files) > 1
}

// DistinctInodeCount is the number of physically separate copies
func (s *Set) DistinctInodeCount() int {
	seen := make(map[fileID]struct{}, len(s.Files))
	for _, f := range s.Files {
		seen[f.id()] = struct{}{}
	}
	return len(seen)
}

// AlreadyLinked counts the paths that share an inode with an earlier path
func (s *Set) AlreadyLinked() int {
	return len(s.Files) - s.DistinctInodeCount()
}

// InodeGroups partitions the files by physical file, groups in first-seen
// order and files within a group in set order
func (s *Set) InodeGroups() [][]*FileRecord {
	index := make(map[fileID]int, len(s.Files))
	var groups [][]*FileRecord
	for _, f := range s.Files {
		if i, ok := index[f.id()]; ok {
			groups[i] = append(groups[i], f)
			continue
		}
		index[f.id()] = len(groups)
		groups = append(groups, []*FileRecord{f})
	}
	return groups
}

// SetCollection groups records by exact content hash, sets in first-seen order
type SetCollection struct {
	sets   []*Set
	byHash map[string]int
}

// NewSetCollection creates an empty collection
func NewSetCollection() *SetCollection {
	return &SetCollection{
		byHash: make(map[string]int),
	}
}

// Add appends f to the set for its hash, creating the set on first sight
func (sc *SetCollection) Add(f *FileRecord) error {
	if f.ContentHash == "" {
		return fmt.Errorf("cannot group %s: %w", f.Path, ErrEmptyHash)
	}

	if i, ok := sc.byHash[f.ContentHash]; ok {
		sc.sets[i].Files = append(sc.sets[i].Files, f)
		return nil
	}

	sc.byHash[f.ContentHash] = len(sc.sets)
	sc.sets = append(sc.sets, &Set{
		ContentHash: f.ContentHash,
		Files:       []*FileRecord{f},
	})
	return nil
}

// Find returns the set for hash or nil
func (sc *SetCollection) Find(hash string) *Set {
	if i, ok := sc.byHash[hash]; ok {
		return sc.sets[i]
	}
	return nil
}

// Sets returns all sets in first-seen order
func (sc *SetCollection) Sets() []*Set {
	return sc.sets
}

// Len returns the number of distinct content hashes
func (sc *SetCollection) Len() int {
	return len(sc.sets)
}

// FindFileByName returns the first record named name, scanning sets in
// first-seen order and files in set order. Files with the same name but
// different content are not disambiguated.
func (sc *SetCollection) FindFileByName(name string) *FileRecord {
	for _, s := range sc.sets {
		for _, f := range s.Files {
			if f.Filename == name {
				return f
			}
		}
	}
	return nil
}

// FindSetContainingFilename returns the content hash of the first set holding
// a file named name
func (sc *SetCollection) FindSetContainingFilename(name string) (string, bool) {
	f := sc.FindFileByName(name)
	if f == nil {
		return "", false
	}
	return f.ContentHash, true
}
