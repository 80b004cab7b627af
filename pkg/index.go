package duplicates

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHash is returned when a record without a content hash is indexed
	ErrEmptyHash = errors.New("file record has no content hash")

	// ErrInvalidTableSize is returned for a DuplicateIndex with fewer than one bucket
	ErrInvalidTableSize = errors.New("index table size must be at least 1")
)

// bucket is the chain of records sharing a table slot. Records in one bucket
// may have different content hashes.
type bucket struct {
	files []*FileRecord
}

// DuplicateIndex is a fixed-size chained hash table keyed by content hash.
// Bucket selection uses dispersal(hash) % size and never changes after
// insertion; there is no resize.
type DuplicateIndex struct {
	buckets []bucket
	count   int
}

// NewDuplicateIndex creates an index with the given number of buckets
func NewDuplicateIndex(size int) (*DuplicateIndex, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTableSize, size)
	}
	return &DuplicateIndex{
		buckets: make([]bucket, size),
	}, nil
}

// dispersal is djb2 (hash*33 + c, seed 5381) over the digest bytes
func dispersal(s string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(s); i++ {
		h = (h << 5) + h + uint64(s[i])
	}
	return h
}

func (di *DuplicateIndex) slot(hash string) int {
	return int(dispersal(hash) % uint64(len(di.buckets)))
}

// Insert appends the record to the chain of its bucket
func (di *DuplicateIndex) Insert(f *FileRecord) error {
	if f.ContentHash == "" {
		return fmt.Errorf("cannot index %s: %w", f.Path, ErrEmptyHash)
	}

	slot := di.slot(f.ContentHash)
	di.buckets[slot].files = append(di.buckets[slot].files, f)
	di.count++

	DebugLog(DebugIndex, "insert %s -> bucket %d (chain %d)", f.Path, slot, len(di.buckets[slot].files))
	return nil
}

// LookupByHash returns every record whose content hash equals hash, in chain
// order. An unknown hash yields an empty result, not an error.
func (di *DuplicateIndex) LookupByHash(hash string) []*FileRecord {
	var result []*FileRecord
	for _, f := range di.buckets[di.slot(hash)].files {
		if f.ContentHash == hash {
			result = append(result, f)
		}
	}
	return result
}

// Len returns the number of records in the index
func (di *DuplicateIndex) Len() int {
	return di.count
}

// TableSize returns the number of buckets
func (di *DuplicateIndex) TableSize() int {
	return len(di.buckets)
}

// BucketLen returns the chain length of bucket i
func (di *DuplicateIndex) BucketLen(i int) int {
	return len(di.buckets[i].files)
}

// Occupancy returns how many buckets hold at least one record and the
// length of the longest chain
func (di *DuplicateIndex) Occupancy() (used, longest int) {
	for i := 0; i < di.TableSize(); i++ {
		n := di.BucketLen(i)
		if n > 0 {
			used++
		}
		longest = max(longest, n)
	}
	return used, longest
}
