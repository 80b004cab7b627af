package duplicates

import (
	"fmt"
)

// FileRecord is one discovered regular file. ContentHash is assigned by the
// scanner before the record is inserted anywhere and never changes after.
type FileRecord struct {
	Filename    string // Base name of the file
	Path        string // Path as reached from the scan root; unique per scan
	Size        uint64 // Size in bytes
	Inode       uint64 // Inode number
	Device      uint64 // Device the inode lives on
	ContentHash string // Hex digest of the full content
}

// fileID identifies the physical file behind a path
type fileID struct {
	Device uint64
	Inode  uint64
}

func (f *FileRecord) id() fileID {
	return fileID{Device: f.Device, Inode: f.Inode}
}

// SameInode reports whether both records name the same physical file
func (f *FileRecord) SameInode(other *FileRecord) bool {
	return f.Device == other.Device && f.Inode == other.Inode
}

func (f *FileRecord) String() string {
	return fmt.Sprintf("%s\t (%d)", f.Path, f.Inode)
}
