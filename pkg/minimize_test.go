package duplicates

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func inodeOf(t *testing.T, path string) uint64 {
	t.Helper()
	var st unix.Stat_t
	require.NoError(t, unix.Stat(path, &st))
	return uint64(st.Ino)
}

func newTestMinimizer(dryRun bool) (*Minimizer, *bytes.Buffer) {
	var diag bytes.Buffer
	return NewMinimizer(MinimizeOptions{DryRun: dryRun, Diagnostics: &diag}), &diag
}

func TestMinimizeThreeCopies(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("x", 100)
	for _, name := range []string{"a", "b", "c"} {
		writeTestFile(t, filepath.Join(dir, name), content)
	}
	cat, _ := scanRoots(t, ScanOptions{}, dir)

	m, diag := newTestMinimizer(false)
	report := m.Minimize(cat.Sets())

	assert.Empty(t, report.Errors)
	assert.Empty(t, diag.String())
	assert.Equal(t, 1, report.SetsProcessed)
	assert.Equal(t, 2, report.FilesLinked)
	assert.Equal(t, 0, report.AlreadyLinked)
	assert.Equal(t, uint64(200), report.BytesSaved)

	canonical := inodeOf(t, filepath.Join(dir, "a"))
	assert.Equal(t, canonical, inodeOf(t, filepath.Join(dir, "b")))
	assert.Equal(t, canonical, inodeOf(t, filepath.Join(dir, "c")))

	// A fresh scan sees one physical file with three names
	fresh, _ := scanRoots(t, ScanOptions{}, dir)
	sum := Summarize(fresh)
	assert.Equal(t, uint64(0), sum.PotentialSavings)
	assert.Equal(t, 2, sum.HardLinkedNames)
}

func TestMinimizeSkipsExistingLinks(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("y", 100)
	writeTestFile(t, filepath.Join(dir, "a"), content)
	require.NoError(t, unix.Link(filepath.Join(dir, "a"), filepath.Join(dir, "b")))
	writeTestFile(t, filepath.Join(dir, "c"), content)
	cat, _ := scanRoots(t, ScanOptions{}, dir)
	require.Equal(t, 1, cat.Sets().Len())
	assert.Equal(t, 2, cat.Sets().Sets()[0].DistinctInodeCount())

	m, _ := newTestMinimizer(false)
	report := m.Minimize(cat.Sets())

	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.FilesLinked)
	assert.Equal(t, 1, report.AlreadyLinked)
	assert.Equal(t, uint64(100), report.BytesSaved)
	assert.Equal(t, inodeOf(t, filepath.Join(dir, "a")), inodeOf(t, filepath.Join(dir, "c")))

	// a and b were one inode before, all three are one after
	fresh, _ := scanRoots(t, ScanOptions{}, dir)
	require.Equal(t, 1, fresh.Sets().Len())
	assert.Equal(t, 1, fresh.Sets().Sets()[0].DistinctInodeCount())
	assert.Equal(t, 2, fresh.Sets().Sets()[0].AlreadyLinked())
}

func TestMinimizeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeTestFile(t, filepath.Join(dir, name), "same")
	}
	cat, _ := scanRoots(t, ScanOptions{}, dir)

	m, _ := newTestMinimizer(false)
	first := m.Minimize(cat.Sets())
	require.Equal(t, 2, first.FilesLinked)

	// On a fresh scan
	fresh, _ := scanRoots(t, ScanOptions{}, dir)
	second := m.Minimize(fresh.Sets())
	assert.Empty(t, second.Errors)
	assert.Equal(t, 0, second.FilesLinked)
	assert.Equal(t, 2, second.AlreadyLinked)
	assert.Equal(t, uint64(0), second.BytesSaved)

	// And on the stale sets of the first scan
	stale := m.Minimize(cat.Sets())
	assert.Empty(t, stale.Errors)
	assert.Equal(t, 0, stale.FilesLinked)
	assert.Equal(t, 2, stale.AlreadyLinked)
}

func TestMinimizeDryRun(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeTestFile(t, filepath.Join(dir, name), "0123456789")
	}
	cat, _ := scanRoots(t, ScanOptions{}, dir)
	before := inodeOf(t, filepath.Join(dir, "b"))

	m, _ := newTestMinimizer(true)
	report := m.Minimize(cat.Sets())

	assert.Equal(t, 2, report.FilesLinked)
	assert.Equal(t, uint64(20), report.BytesSaved)
	assert.Equal(t, before, inodeOf(t, filepath.Join(dir, "b")))
	assert.NotEqual(t, inodeOf(t, filepath.Join(dir, "a")), inodeOf(t, filepath.Join(dir, "c")))
}

func TestMinimizeIgnoresUniqueFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a"), "one")
	writeTestFile(t, filepath.Join(dir, "b"), "two")
	cat, _ := scanRoots(t, ScanOptions{}, dir)

	m, _ := newTestMinimizer(false)
	report := m.Minimize(cat.Sets())

	assert.Equal(t, 0, report.SetsProcessed)
	assert.Equal(t, 0, report.FilesLinked)
}

// fakeFileOps is an in-memory filesystem of path -> physical file
type fakeFileOps struct {
	files      map[string]fileID
	failUnlink map[string]error
	failLink   map[string]error
	unlinked   []string
}

func newFakeFileOps(records ...*FileRecord) *fakeFileOps {
	ops := &fakeFileOps{
		files:      make(map[string]fileID),
		failUnlink: make(map[string]error),
		failLink:   make(map[string]error),
	}
	for _, f := range records {
		ops.files[f.Path] = f.id()
	}
	return ops
}

func (o *fakeFileOps) Stat(path string) (fileID, error) {
	id, ok := o.files[path]
	if !ok {
		return fileID{}, fs.ErrNotExist
	}
	return id, nil
}

func (o *fakeFileOps) Unlink(path string) error {
	if err := o.failUnlink[path]; err != nil {
		return err
	}
	delete(o.files, path)
	o.unlinked = append(o.unlinked, path)
	return nil
}

func (o *fakeFileOps) Link(oldpath, newpath string) error {
	if err := o.failLink[newpath]; err != nil {
		return err
	}
	o.files[newpath] = o.files[oldpath]
	return nil
}

func fakeSets(t *testing.T, records ...*FileRecord) *SetCollection {
	t.Helper()
	sc := NewSetCollection()
	for _, f := range records {
		require.NoError(t, sc.Add(f))
	}
	return sc
}

func TestMinimizeLinkFailureIsDataLoss(t *testing.T) {
	a := record("/d/a", "h", 1)
	b := record("/d/b", "h", 2)
	c := record("/d/c", "h", 3)
	ops := newFakeFileOps(a, b, c)
	ops.failLink["/d/b"] = unix.EXDEV

	m, diag := newTestMinimizer(false)
	m.ops = ops
	report := m.Minimize(fakeSets(t, a, b, c))

	require.Len(t, report.Errors, 1)
	linkErr := report.Errors[0]
	assert.Equal(t, "link", linkErr.Op)
	assert.Equal(t, "/d/b", linkErr.Path)
	assert.Equal(t, "/d/a", linkErr.Canonical)
	assert.True(t, linkErr.DataLoss)
	assert.True(t, report.HasDataLoss())
	assert.ErrorIs(t, linkErr, unix.EXDEV)
	assert.Contains(t, linkErr.Error(), "/d/b is now missing")
	assert.Contains(t, diag.String(), "error: link /d/a -> /d/b failed after unlink")

	// The failure does not stop the rest of the set
	assert.Equal(t, 1, report.FilesLinked)
	assert.Equal(t, ops.files["/d/a"], ops.files["/d/c"])
	_, exists := ops.files["/d/b"]
	assert.False(t, exists)

	// Only c's inode was retired
	assert.Equal(t, a.Size, report.BytesSaved)
}

func TestMinimizeRefusesCrossDeviceLinks(t *testing.T) {
	a := record("/d/a", "h", 1)
	b := record("/mnt/b", "h", 2)
	b.Device = 2
	c := record("/d/c", "h", 3)

	tests := []struct {
		name         string
		dryRun       bool
		wantUnlinked []string
	}{
		{name: "Live", dryRun: false, wantUnlinked: []string{"/d/c"}},
		{name: "Dry run", dryRun: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newFakeFileOps(a, b, c)
			m, diag := newTestMinimizer(tt.dryRun)
			m.ops = ops
			report := m.Minimize(fakeSets(t, a, b, c))

			require.Len(t, report.Errors, 1)
			linkErr := report.Errors[0]
			assert.Equal(t, "link", linkErr.Op)
			assert.Equal(t, "/mnt/b", linkErr.Path)
			assert.ErrorIs(t, linkErr, unix.EXDEV)
			assert.False(t, report.HasDataLoss())
			assert.Contains(t, diag.String(), "original left in place")
			assert.Equal(t, 1, report.FilesLinked)
			assert.Equal(t, a.Size, report.BytesSaved)

			// b is never unlinked
			assert.Equal(t, tt.wantUnlinked, ops.unlinked)
			assert.Equal(t, b.id(), ops.files["/mnt/b"])
		})
	}
}

func TestMinimizeUnlinkFailureKeepsOriginal(t *testing.T) {
	a := record("/d/a", "h", 1)
	b := record("/d/b", "h", 2)
	ops := newFakeFileOps(a, b)
	ops.failUnlink["/d/b"] = unix.EACCES

	m, _ := newTestMinimizer(false)
	m.ops = ops
	report := m.Minimize(fakeSets(t, a, b))

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "unlink", report.Errors[0].Op)
	assert.False(t, report.HasDataLoss())
	assert.Contains(t, report.Errors[0].Error(), "original left in place")
	assert.Equal(t, b.id(), ops.files["/d/b"])
	assert.Equal(t, 0, report.FilesLinked)
	assert.Equal(t, uint64(0), report.BytesSaved)

	var linkErr *LinkError
	require.True(t, errors.As(report.Errors[0], &linkErr))
	assert.ErrorIs(t, linkErr, unix.EACCES)
}

func TestMinimizeMissingCanonical(t *testing.T) {
	a := record("/d/a", "h", 1)
	b := record("/d/b", "h", 2)
	ops := newFakeFileOps(b)

	m, _ := newTestMinimizer(false)
	m.ops = ops
	report := m.Minimize(fakeSets(t, a, b))

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "stat", report.Errors[0].Op)
	assert.Equal(t, "/d/a", report.Errors[0].Path)
	assert.Empty(t, ops.unlinked)
	assert.Equal(t, 0, report.FilesLinked)
}

func TestMinimizeRetiresInodeOnlyWhenAllNamesRelinked(t *testing.T) {
	a := record("/d/a", "h", 1)
	b := record("/d/b", "h", 2)
	b2 := record("/d/b2", "h", 2) // second name of b's inode
	c := record("/d/c", "h", 3)
	c2 := record("/d/c2", "h", 3)
	ops := newFakeFileOps(a, b, b2, c, c2)
	ops.failUnlink["/d/c2"] = unix.EPERM

	m, _ := newTestMinimizer(false)
	m.ops = ops
	report := m.Minimize(fakeSets(t, a, b, b2, c, c2))

	assert.Equal(t, 3, report.FilesLinked)
	assert.Len(t, report.Errors, 1)
	// b's inode is gone, c's survives through c2
	assert.Equal(t, a.Size, report.BytesSaved)
}
