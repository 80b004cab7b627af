package duplicates

// DuplicateGroup represents a group of files with the same hash
type DuplicateGroup struct {
	Hash           string
	Size           uint64
	Files          []*FileRecord
	InodeGroups    [][]*FileRecord
	Count          int
	DistinctInodes int
	AlreadyLinked  int
}

// Wasted is the space taken by copies beyond the first physical file
func (g *DuplicateGroup) Wasted() uint64 {
	if g.DistinctInodes < 2 {
		return 0
	}
	return g.Size * uint64(g.DistinctInodes-1)
}

// ListDuplicates returns every set with more than one file, in first-seen
// order, annotated with how many of its paths are already hard links
func ListDuplicates(cat *Catalog) []DuplicateGroup {
	var result []DuplicateGroup
	for _, set := range cat.Sets().Sets() {
		if !set.IsDuplicate() {
			continue
		}
		result = append(result, DuplicateGroup{
			Hash:           set.ContentHash,
			Size:           set.Size(),
			Files:          set.Files,
			InodeGroups:    set.InodeGroups(),
			Count:          len(set.Files),
			DistinctInodes: set.DistinctInodeCount(),
			AlreadyLinked:  set.AlreadyLinked(),
		})
	}
	return result
}
