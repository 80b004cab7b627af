package duplicates

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// LinkError is a per-file minimization failure. DataLoss is set when the
// duplicate was unlinked but the replacement link could not be created, so
// the path no longer exists. A duplicate on another device than its
// canonical file is refused with EXDEV before anything is unlinked.
type LinkError struct {
	Op        string // "stat", "unlink" or "link"
	Path      string // The duplicate being replaced
	Canonical string // The file it should point to
	Err       error
	DataLoss  bool
}

func (e *LinkError) Error() string {
	if e.DataLoss {
		return fmt.Sprintf("link %s -> %s failed after unlink, %s is now missing: %v", e.Canonical, e.Path, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v (original left in place)", e.Op, e.Path, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// MinimizeReport summarises one minimization pass
type MinimizeReport struct {
	SetsProcessed int          // Sets with more than one file
	FilesLinked   int          // Paths replaced by a hard link (or that would be, in dry run)
	AlreadyLinked int          // Paths that already shared the canonical inode
	BytesSaved    uint64       // Space released by retired inodes
	Errors        []*LinkError // Per-file failures, in processing order
}

// HasDataLoss reports whether any path was left missing
func (r *MinimizeReport) HasDataLoss() bool {
	for _, err := range r.Errors {
		if err.DataLoss {
			return true
		}
	}
	return false
}

// MinimizeOptions configures a Minimizer
type MinimizeOptions struct {
	DryRun      bool      // Count what would be linked without touching the filesystem
	Diagnostics io.Writer // Failures are printed here as they happen; defaults to stderr
}

// fileOps is the filesystem surface the minimizer mutates
type fileOps interface {
	Stat(path string) (fileID, error)
	Unlink(path string) error
	Link(oldpath, newpath string) error
}

type unixFileOps struct{}

func (unixFileOps) Stat(path string) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{Device: uint64(st.Dev), Inode: uint64(st.Ino)}, nil
}

func (unixFileOps) Unlink(path string) error {
	return unix.Unlink(path)
}

func (unixFileOps) Link(oldpath, newpath string) error {
	return unix.Link(oldpath, newpath)
}

// Minimizer collapses every duplicate set onto its first file with hard links
type Minimizer struct {
	opts MinimizeOptions
	ops  fileOps
	diag io.Writer
}

// NewMinimizer creates a minimizer operating on the real filesystem
func NewMinimizer(opts MinimizeOptions) *Minimizer {
	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}
	return &Minimizer{
		opts: opts,
		ops:  unixFileOps{},
		diag: diag,
	}
}

// Minimize processes every set with more than one file. Failures are
// collected in the report and never stop the pass. The sets are stale once
// this returns; reporting must come from a new scan.
func (m *Minimizer) Minimize(sets *SetCollection) *MinimizeReport {
	defer VerboseEnter()()

	report := &MinimizeReport{}
	for _, set := range sets.Sets() {
		if !set.IsDuplicate() {
			continue
		}
		report.SetsProcessed++
		m.minimizeSet(set, report)
	}

	VerboseLog(1, "minimize: %d sets, %d linked, %d already linked, %d bytes saved, %d errors",
		report.SetsProcessed, report.FilesLinked, report.AlreadyLinked, report.BytesSaved, len(report.Errors))
	return report
}

func (m *Minimizer) minimizeSet(set *Set, report *MinimizeReport) {
	canonical := set.Files[0]

	canonicalNow, err := m.ops.Stat(canonical.Path)
	if err != nil {
		// Never unlink anything without a live file to link back to
		for _, f := range set.Files[1:] {
			if !f.SameInode(canonical) {
				m.fail(report, &LinkError{Op: "stat", Path: canonical.Path, Canonical: canonical.Path, Err: err})
				return
			}
		}
	}

	relinked := make(map[fileID]int)
	for _, f := range set.Files[1:] {
		if f.SameInode(canonical) {
			report.AlreadyLinked++
			VerboseLog(2, "already linked: %s -> %s", f.Path, canonical.Path)
			continue
		}

		current, err := m.ops.Stat(f.Path)
		if err != nil {
			m.fail(report, &LinkError{Op: "stat", Path: f.Path, Canonical: canonical.Path, Err: err})
			continue
		}
		if current == canonicalNow {
			report.AlreadyLinked++
			VerboseLog(2, "already linked since scan: %s -> %s", f.Path, canonical.Path)
			continue
		}
		// Hard links cannot cross filesystems; refuse before unlinking
		if current.Device != canonicalNow.Device {
			m.fail(report, &LinkError{Op: "link", Path: f.Path, Canonical: canonical.Path, Err: unix.EXDEV})
			continue
		}

		if m.opts.DryRun {
			VerboseLog(1, "would link %s -> %s", f.Path, canonical.Path)
			report.FilesLinked++
			relinked[f.id()]++
			continue
		}

		if err := m.ops.Unlink(f.Path); err != nil {
			m.fail(report, &LinkError{Op: "unlink", Path: f.Path, Canonical: canonical.Path, Err: err})
			continue
		}
		if err := m.ops.Link(canonical.Path, f.Path); err != nil {
			m.fail(report, &LinkError{Op: "link", Path: f.Path, Canonical: canonical.Path, Err: err, DataLoss: true})
			continue
		}

		DebugLog(DebugMinimize, "linked %s -> %s (inode %d)", f.Path, canonical.Path, canonical.Inode)
		report.FilesLinked++
		relinked[f.id()]++
	}

	// An inode is released only when every path of it in the set was relinked
	for _, group := range set.InodeGroups() {
		if group[0].SameInode(canonical) {
			continue
		}
		if relinked[group[0].id()] == len(group) {
			report.BytesSaved += set.Size()
		}
	}
}

func (m *Minimizer) fail(report *MinimizeReport, err *LinkError) {
	report.Errors = append(report.Errors, err)
	fmt.Fprintf(m.diag, "error: %v\n", err)
}
