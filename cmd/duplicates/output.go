package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/vectorio"

	duplicates "github.com/mattkeenan/duplicates/pkg"
)

// maxIovecs bounds one writev call; 1024 is the smallest IOV_MAX in practice
const maxIovecs = 1024

// reportWriter buffers report lines and emits them with vectored writes
type reportWriter struct {
	out   io.Writer
	human bool
	lines [][]byte
}

func newReportWriter(out io.Writer, human bool) *reportWriter {
	return &reportWriter{out: out, human: human}
}

func (r *reportWriter) printf(format string, args ...interface{}) {
	r.lines = append(r.lines, []byte(fmt.Sprintf(format+"\n", args...)))
}

func (r *reportWriter) size(n uint64) string {
	if !r.human || n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%s bytes (%s)", humanize.Comma(int64(n)), humanize.IBytes(n))
}

func (r *reportWriter) count(n int) string {
	if !r.human {
		return strconv.Itoa(n)
	}
	return humanize.Comma(int64(n))
}

// Summary renders the default report. Quiet keeps only the decision line.
func (r *reportWriter) Summary(s duplicates.Summary, quiet bool) {
	if !quiet {
		r.printf("Total files:        %s", r.count(s.TotalFiles))
		r.printf("Total size:         %s", r.size(s.TotalSize))
		r.printf("Disk usage:         %s", r.size(s.DiskSize))
		r.printf("Unique files:       %s", r.count(s.UniqueFiles))
		r.printf("Unique size:        %s", r.size(s.UniqueSize))
		r.printf("Hard linked names:  %s", r.count(s.HardLinkedNames))
		r.printf("Potential savings:  %s", r.size(s.PotentialSavings))
	}
	r.printf("%s", s.QuietLine())
}

// HashResult renders the files matching one -d query
func (r *reportWriter) HashResult(hash string, files []*duplicates.FileRecord, algorithm *duplicates.HashAlgorithm) {
	if len(files) == 0 {
		if !algorithm.IsDigest(hash) {
			r.printf("No files found with hash %s (not a %d-digit %s digest)", hash, algorithm.Size*2, algorithm.Name)
			return
		}
		r.printf("No files found with hash %s", hash)
		return
	}
	r.printf("Files with hash %s:", hash)
	for _, f := range files {
		r.printf("  %s", f)
	}
}

// NameResult renders the answer to one -f query
func (r *reportWriter) NameResult(q duplicates.NameQuery) {
	switch {
	case !q.Found:
		r.printf("No file named %s found", q.Name)
	case !q.HasDuplicates():
		r.printf("%s has no duplicates (hash %s)", q.Match.Path, q.Hash)
	default:
		r.printf("Duplicates of %s (hash %s):", q.Match.Path, q.Hash)
		for _, f := range q.Others {
			r.printf("  %s", f)
		}
	}
}

// Duplicates renders every duplicate set, paths grouped by inode
func (r *reportWriter) Duplicates(title string, groups []duplicates.DuplicateGroup) {
	if title != "" {
		r.printf("%s", title)
	}
	if len(groups) == 0 {
		r.printf("No duplicate files found")
		return
	}

	var wasted uint64
	for i := range groups {
		g := &groups[i]
		wasted += g.Wasted()
		r.printf("Set %d: %s", i+1, g.Hash)
		r.printf("  %s files, %s distinct inodes, %s already hard linked, %s each",
			r.count(g.Count), r.count(g.DistinctInodes), r.count(g.AlreadyLinked), r.size(g.Size))
		for _, inodeGroup := range g.InodeGroups {
			for _, f := range inodeGroup {
				r.printf("    %s", f)
			}
		}
	}
	r.printf("%s duplicate sets, %s reclaimable", r.count(len(groups)), r.size(wasted))
}

// MinimizeReport renders the outcome of a minimization pass
func (r *reportWriter) MinimizeReport(rep *duplicates.MinimizeReport, dryRun bool) {
	verb := "linked"
	if dryRun {
		verb = "would be linked"
	}
	r.printf("Minimise: %s sets processed, %s files %s, %s already linked, %s saved",
		r.count(rep.SetsProcessed), r.count(rep.FilesLinked), verb, r.count(rep.AlreadyLinked), r.size(rep.BytesSaved))
	if len(rep.Errors) > 0 {
		r.printf("Minimise: %s errors", r.count(len(rep.Errors)))
	}
	if rep.HasDataLoss() {
		r.printf("Minimise: some duplicates were removed but could not be relinked, see errors above")
	}
}

// Flush writes every buffered line and empties the buffer
func (r *reportWriter) Flush() error {
	if len(r.lines) == 0 {
		return nil
	}
	lines := r.lines
	r.lines = nil

	if file, ok := r.out.(*os.File); ok {
		return writeLinesVectored(file, lines)
	}
	for _, line := range lines {
		if _, err := r.out.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// writeLinesVectored emits lines with writev, chunked by maxIovecs. A short
// write (pipes, terminals) is completed with plain writes.
func writeLinesVectored(file *os.File, lines [][]byte) error {
	for offset := 0; offset < len(lines); offset += maxIovecs {
		end := min(offset+maxIovecs, len(lines))
		chunk := lines[offset:end]

		iovecs := make([]syscall.Iovec, 0, len(chunk))
		expected := 0
		for _, line := range chunk {
			if len(line) == 0 {
				continue
			}
			iov := syscall.Iovec{Base: &line[0]}
			iov.SetLen(len(line))
			iovecs = append(iovecs, iov)
			expected += len(line)
		}
		if len(iovecs) == 0 {
			continue
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs)
		if err != nil {
			return fmt.Errorf("failed to write report with vectorio: %w", err)
		}
		if nw < expected {
			if _, err := file.Write(unwritten(chunk, nw)); err != nil {
				return fmt.Errorf("failed to complete short report write: %w", err)
			}
		}
	}
	return nil
}

// unwritten returns the bytes of lines that follow the first n
func unwritten(lines [][]byte, n int) []byte {
	var rest []byte
	for _, line := range lines {
		if n >= len(line) {
			n -= len(line)
			continue
		}
		rest = append(rest, line[n:]...)
		n = 0
	}
	return rest
}
