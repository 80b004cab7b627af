package duplicates

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrRootOpen marks the fatal failure to open a user supplied root directory
var ErrRootOpen = errors.New("cannot open root directory")

// ScanOptions controls which entries the scanner accepts
type ScanOptions struct {
	Recursive     bool            // Descend into subdirectories
	IncludeHidden bool            // Accept regular files whose name starts with "."
	Exclude       *ExcludeMatcher // Paths (relative to the root) to skip
	Diagnostics   io.Writer       // Per-entry failures; defaults to stderr
}

// ScanStats accumulates over every Scan call of one Scanner
type ScanStats struct {
	Files       int // Files added to the catalog
	Directories int // Directories read, roots included
	Skipped     int // Entries dropped because of an error
	Excluded    int // Entries dropped by exclude patterns
	Repeated    int // Files already catalogued from an overlapping root
}

// Scanner walks directory trees sequentially and feeds a Catalog
type Scanner struct {
	hasher ContentHasher
	opts   ScanOptions
	diag   io.Writer
	stats  ScanStats
}

// NewScanner creates a scanner that hashes with hasher
func NewScanner(hasher ContentHasher, opts ScanOptions) *Scanner {
	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}
	return &Scanner{
		hasher: hasher,
		opts:   opts,
		diag:   diag,
	}
}

// Stats returns the counters accumulated so far
func (s *Scanner) Stats() ScanStats {
	return s.stats
}

// Scan reads root and, when recursive, its subdirectories, adding every
// accepted regular file to cat. Paths are catalogued in absolute form, so
// differently spelled roots naming the same directory meet in the catalog.
// Only a root that cannot be opened or read is fatal; any other failure is
// reported and the entry skipped.
func (s *Scanner) Scan(root string, cat *Catalog) error {
	defer VerboseEnter()()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRootOpen, root, err)
	}
	dir, err := os.Open(absRoot)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRootOpen, root, err)
	}
	entries, err := dir.ReadDir(-1)
	dir.Close()
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRootOpen, root, err)
	}

	VerboseLog(1, "scanning %s (recursive=%t, hidden=%t)", absRoot, s.opts.Recursive, s.opts.IncludeHidden)
	if s.opts.Exclude.HasPatterns() {
		VerboseLog(2, "excluding %s", strings.Join(s.opts.Exclude.Patterns(), " "))
	}
	s.stats.Directories++
	s.scanEntries(absRoot, absRoot, entries, cat)
	return nil
}

// scanDirectory reads a subdirectory; failures here are not fatal
func (s *Scanner) scanDirectory(root, path string, cat *Catalog) {
	dir, err := os.Open(path)
	if err != nil {
		s.skip(fmt.Errorf("open directory %s: %w", path, err))
		return
	}
	entries, err := dir.ReadDir(-1)
	dir.Close()
	if err != nil {
		s.skip(fmt.Errorf("read directory %s: %w", path, err))
		return
	}

	s.stats.Directories++
	s.scanEntries(root, path, entries, cat)
}

func (s *Scanner) scanEntries(root, path string, entries []os.DirEntry, cat *Catalog) {
	// Name order keeps set order and canonical choice stable across runs
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		s.scanEntry(root, filepath.Join(path, name), name, cat)
	}
}

func (s *Scanner) scanEntry(root, fullPath, name string, cat *Catalog) {
	var st unix.Stat_t
	if err := unix.Stat(fullPath, &st); err != nil {
		s.skip(fmt.Errorf("stat %s: %w", fullPath, err))
		return
	}

	if s.excluded(root, fullPath, st.Mode&unix.S_IFMT == unix.S_IFDIR) {
		s.stats.Excluded++
		DebugLog(DebugScan, "excluded %s", fullPath)
		return
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		if !s.opts.Recursive {
			DebugLog(DebugScan, "not descending into %s", fullPath)
			return
		}
		s.scanDirectory(root, fullPath, cat)

	case unix.S_IFREG:
		if isHiddenName(name) && !s.opts.IncludeHidden {
			DebugLog(DebugScan, "hidden file %s skipped", fullPath)
			return
		}
		if cat.Contains(fullPath) {
			s.stats.Repeated++
			return
		}

		hash, err := s.hasher.HashFile(fullPath)
		if err != nil {
			s.skip(err)
			return
		}

		record := &FileRecord{
			Filename:    name,
			Path:        fullPath,
			Size:        uint64(st.Size),
			Inode:       uint64(st.Ino),
			Device:      uint64(st.Dev),
			ContentHash: hash,
		}
		added, err := cat.Add(record, root)
		if err != nil {
			s.skip(err)
			return
		}
		if !added {
			s.stats.Repeated++
			return
		}
		s.stats.Files++
		DebugLog(DebugScan, "file %s size=%d inode=%d hash=%s", fullPath, record.Size, record.Inode, hash)

	default:
		// devices, sockets and fifos are not content
	}
}

// excluded matches directories with a trailing slash so "build/.*" prunes the
// whole subtree instead of only its files
func (s *Scanner) excluded(root, fullPath string, isDir bool) bool {
	if !s.opts.Exclude.HasPatterns() {
		return false
	}
	relPath, err := filepath.Rel(root, fullPath)
	if err != nil {
		return false
	}
	if isDir {
		relPath += "/"
	}
	return s.opts.Exclude.ShouldIgnore(relPath)
}

func (s *Scanner) skip(err error) {
	s.stats.Skipped++
	fmt.Fprintf(s.diag, "warning: %v\n", err)
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
