package duplicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sized(path, hash string, inode, size uint64) *FileRecord {
	return &FileRecord{
		Filename:    path,
		Path:        path,
		Size:        size,
		Inode:       inode,
		Device:      1,
		ContentHash: hash,
	}
}

func catalogOf(t *testing.T, records ...*FileRecord) *Catalog {
	t.Helper()
	cat, err := NewCatalog(DefaultTableSize)
	require.NoError(t, err)
	for _, f := range records {
		added, err := cat.Add(f, "/")
		require.NoError(t, err)
		require.True(t, added)
	}
	return cat
}

func TestSummarize(t *testing.T) {
	cat := catalogOf(t,
		sized("a", "h1", 1, 100),
		sized("b", "h1", 1, 100), // hard link of a
		sized("c", "h1", 2, 100),
		sized("d", "h2", 3, 50),
	)

	sum := Summarize(cat)
	assert.Equal(t, 4, sum.TotalFiles)
	assert.Equal(t, uint64(350), sum.TotalSize)
	assert.Equal(t, uint64(250), sum.DiskSize)
	assert.Equal(t, 2, sum.UniqueFiles)
	assert.Equal(t, uint64(150), sum.UniqueSize)
	assert.Equal(t, uint64(100), sum.PotentialSavings)
	assert.Equal(t, 1, sum.HardLinkedNames)
	assert.True(t, sum.HasWaste())
	assert.Equal(t, "Duplicate files found: 100 bytes wasted (2 unique files, 4 total files)", sum.QuietLine())
}

func TestSummarizeQuietLines(t *testing.T) {
	tests := []struct {
		name     string
		records  []*FileRecord
		expected string
	}{
		{
			name:     "hard links only",
			records:  []*FileRecord{sized("a", "h1", 1, 10), sized("b", "h1", 1, 10)},
			expected: "No duplicate files found but 1 filenames are hard linked (1 unique files, 2 total files)",
		},
		{
			name:     "all unique",
			records:  []*FileRecord{sized("a", "h1", 1, 10), sized("b", "h2", 2, 10)},
			expected: "No duplicate files found (2 unique files, 2 total files)",
		},
		{
			name:     "empty files",
			records:  []*FileRecord{sized("a", "h0", 1, 0), sized("b", "h0", 2, 0)},
			expected: "No duplicate files found (1 unique files, 2 total files)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Summarize(catalogOf(t, tt.records...))
			assert.False(t, sum.HasWaste())
			assert.Equal(t, tt.expected, sum.QuietLine())
		})
	}
}

func TestFilesWithHash(t *testing.T) {
	a := sized("a", "h1", 1, 10)
	b := sized("b", "h1", 2, 10)
	cat := catalogOf(t, a, b, sized("c", "h2", 3, 10))

	assert.Equal(t, []*FileRecord{a, b}, FilesWithHash(cat, "h1"))
	assert.Empty(t, FilesWithHash(cat, "nope"))
}

func TestDuplicatesOfName(t *testing.T) {
	a := &FileRecord{Filename: "x.txt", Path: "one/x.txt", Inode: 1, Size: 3, ContentHash: "h1"}
	b := &FileRecord{Filename: "copy.txt", Path: "one/copy.txt", Inode: 2, Size: 3, ContentHash: "h1"}
	c := &FileRecord{Filename: "y.txt", Path: "one/y.txt", Inode: 3, Size: 3, ContentHash: "h2"}
	cat := catalogOf(t, a, b, c)

	q := DuplicatesOfName(cat, "x.txt")
	assert.True(t, q.Found)
	assert.Same(t, a, q.Match)
	assert.Equal(t, "h1", q.Hash)
	assert.Equal(t, []*FileRecord{b}, q.Others)
	assert.True(t, q.HasDuplicates())

	q = DuplicatesOfName(cat, "y.txt")
	assert.True(t, q.Found)
	assert.False(t, q.HasDuplicates())

	q = DuplicatesOfName(cat, "missing.txt")
	assert.False(t, q.Found)
	assert.Nil(t, q.Match)
	assert.Empty(t, q.Others)
}

func TestDuplicatesOfNameFirstMatchOnly(t *testing.T) {
	// Two different files share a name; only the first set holding the name answers
	first := &FileRecord{Filename: "notes.txt", Path: "a/notes.txt", Inode: 1, Size: 1, ContentHash: "h1"}
	unique := &FileRecord{Filename: "notes.txt", Path: "b/notes.txt", Inode: 2, Size: 1, ContentHash: "h2"}
	copyOfUnique := &FileRecord{Filename: "other.txt", Path: "b/other.txt", Inode: 3, Size: 1, ContentHash: "h2"}
	cat := catalogOf(t, first, unique, copyOfUnique)

	q := DuplicatesOfName(cat, "notes.txt")
	assert.Same(t, first, q.Match)
	assert.False(t, q.HasDuplicates())
}

func TestDuplicatesOfNameByPath(t *testing.T) {
	first := &FileRecord{Filename: "notes.txt", Path: "/a/notes.txt", Inode: 1, Size: 1, ContentHash: "h1"}
	second := &FileRecord{Filename: "notes.txt", Path: "/b/notes.txt", Inode: 2, Size: 1, ContentHash: "h2"}
	copyOfSecond := &FileRecord{Filename: "other.txt", Path: "/b/other.txt", Inode: 3, Size: 1, ContentHash: "h2"}
	cat := catalogOf(t, first, second, copyOfSecond)

	// A path picks the exact file, not the first one with that name
	q := DuplicatesOfName(cat, "/b/notes.txt")
	assert.True(t, q.Found)
	assert.Same(t, second, q.Match)
	assert.Equal(t, []*FileRecord{copyOfSecond}, q.Others)

	q = DuplicatesOfName(cat, "/b/../b/notes.txt")
	assert.Same(t, second, q.Match)

	q = DuplicatesOfName(cat, "/c/notes.txt")
	assert.False(t, q.Found)
}
