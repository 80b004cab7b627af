package duplicates

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Summary is the default report over one catalog
type Summary struct {
	TotalFiles       int    // Paths scanned
	TotalSize        uint64 // Logical size, every path counted
	DiskSize         uint64 // Size of distinct inodes, hard links counted once
	UniqueFiles      int    // Distinct contents
	UniqueSize       uint64 // One copy of every distinct content
	PotentialSavings uint64 // DiskSize - UniqueSize
	HardLinkedNames  int    // Paths that share an inode with an earlier path
}

// Summarize computes the default summary
func Summarize(cat *Catalog) Summary {
	var sum Summary
	seen := make(map[fileID]struct{}, cat.FileCount())

	for _, set := range cat.Sets().Sets() {
		sum.UniqueFiles++
		sum.UniqueSize += set.Size()
		for _, f := range set.Files {
			sum.TotalFiles++
			sum.TotalSize += f.Size
			if _, ok := seen[f.id()]; ok {
				continue
			}
			seen[f.id()] = struct{}{}
			sum.DiskSize += f.Size
		}
	}

	sum.HardLinkedNames = sum.TotalFiles - len(seen)
	if sum.DiskSize > sum.UniqueSize {
		sum.PotentialSavings = sum.DiskSize - sum.UniqueSize
	}
	return sum
}

// HasWaste reports whether minimization would release space
func (s Summary) HasWaste() bool {
	return s.PotentialSavings > 0
}

// QuietLine is the single most decision-relevant line of the summary
func (s Summary) QuietLine() string {
	switch {
	case s.HasWaste():
		return fmt.Sprintf("Duplicate files found: %d bytes wasted (%d unique files, %d total files)",
			s.PotentialSavings, s.UniqueFiles, s.TotalFiles)
	case s.HardLinkedNames > 0:
		return fmt.Sprintf("No duplicate files found but %d filenames are hard linked (%d unique files, %d total files)",
			s.HardLinkedNames, s.UniqueFiles, s.TotalFiles)
	default:
		return fmt.Sprintf("No duplicate files found (%d unique files, %d total files)", s.UniqueFiles, s.TotalFiles)
	}
}

// FilesWithHash returns every file whose content hash is exactly hash
func FilesWithHash(cat *Catalog, hash string) []*FileRecord {
	return cat.Index().LookupByHash(hash)
}

// NameQuery is the answer to "which files duplicate NAME"
type NameQuery struct {
	Name   string
	Found  bool          // A file called Name was scanned
	Match  *FileRecord   // The first file called Name
	Hash   string        // Content hash of Match
	Others []*FileRecord // Every other path with the same content
}

// HasDuplicates reports whether the named file has copies
func (q NameQuery) HasDuplicates() bool {
	return len(q.Others) > 0
}

// DuplicatesOfName resolves name to the first set containing it and lists
// every other file of that set. A name containing a path separator that
// matches a catalogued path selects that exact file instead. An unknown name
// is not an error.
func DuplicatesOfName(cat *Catalog, name string) NameQuery {
	query := NameQuery{Name: name}

	var match *FileRecord
	if strings.ContainsRune(name, filepath.Separator) {
		if path, err := filepath.Abs(name); err == nil {
			match, _ = cat.Lookup(path)
		}
	}
	if match == nil {
		match = cat.Sets().FindFileByName(name)
	}
	if match == nil {
		return query
	}
	query.Found = true
	query.Match = match
	query.Hash = match.ContentHash

	for _, f := range FilesWithHash(cat, match.ContentHash) {
		if f.Path != match.Path {
			query.Others = append(query.Others, f)
		}
	}
	return query
}
