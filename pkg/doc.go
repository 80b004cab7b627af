// Package duplicates finds files with identical content under one or more
// directory roots and can replace redundant copies with hard links.
//
// # Core API
//
// A scan fills a Catalog, which owns a fixed-size chained DuplicateIndex
// (djb2 over the content hash picks the bucket) and a SetCollection that
// groups records by exact content hash in first-seen order:
//
//	hasher, _ := duplicates.NewContentHasher("sha256")
//	cat, _ := duplicates.NewCatalog(duplicates.DefaultTableSize)
//	scanner := duplicates.NewScanner(hasher, duplicates.ScanOptions{Recursive: true})
//	if err := scanner.Scan("/path/to/dir", cat); err != nil {
//		// the root itself could not be read
//	}
//
// # Queries
//
//	summary := duplicates.Summarize(cat)
//	files := duplicates.FilesWithHash(cat, "e3b0c442...")
//	query := duplicates.DuplicatesOfName(cat, "report.pdf")
//	groups := duplicates.ListDuplicates(cat)
//
// Unknown hashes and names produce empty results, never errors.
//
// # Minimization
//
//	report := duplicates.NewMinimizer(duplicates.MinimizeOptions{}).Minimize(cat.Sets())
//
// Every duplicate set is collapsed onto its first file with unlink + link.
// Files that already share the canonical inode are left alone. The catalog is
// stale afterwards; scan again before reporting. Hard links cannot cross
// filesystems, such attempts fail and are reported.
//
// # Configuration
//
// Defaults can be set in an ini file, see LoadConfig. Diagnostics use the
// verbose/debug layer:
//
//	duplicates.SetVerboseLevel(2)
//	duplicates.SetDebugFlags("scan,minimize")
package duplicates
