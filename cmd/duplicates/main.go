package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	duplicates "github.com/mattkeenan/duplicates/pkg"
)

// runOptions is everything one invocation needs, resolved from the command
// line on top of the configuration file
type runOptions struct {
	Roots      []string
	Recursive  bool
	Hidden     bool
	Quiet      bool
	Files      []string // -f queries, in command-line order
	Hashes     []string // -d queries, in command-line order
	List       bool
	Minimise   bool
	DryRun     bool
	Algorithm  string
	TableSize  int
	Exclude    []string
	HumanSizes bool
	Verbose    int
	Debug      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func defineOptions() *ParsedOptions {
	options := NewParsedOptions()
	options.DefineOption("recursive", "r", OptionTypeBool, "false", "Descend into subdirectories")
	options.DefineOption("hidden", "a", OptionTypeBool, "false", "Include hidden files")
	options.DefineOption("quiet", "q", OptionTypeBool, "false", "Only print the decision line")
	options.DefineOption("file", "f", OptionTypeList, "", "List files duplicating NAME (repeatable)")
	options.DefineOption("hash", "d", OptionTypeList, "", "List files with content HASH (repeatable)")
	options.DefineOption("list", "l", OptionTypeBool, "false", "List all duplicate sets")
	options.DefineOption("minimise", "m", OptionTypeBool, "false", "Replace duplicates with hard links, then re-scan and list")
	options.DefineOption("dry-run", "n", OptionTypeBool, "false", "With --minimise: report without modifying files")
	options.DefineOption("algorithm", "A", OptionTypeString, "", "Hash algorithm (sha1|sha256|sha512)")
	options.DefineOption("config", "c", OptionTypeString, "", "Configuration file")
	options.DefineOption("verbose", "v", OptionTypeInt, "0", "Verbose output; repeat (-vv) or give --verbose=N for more")
	options.DefineOption("debug", "", OptionTypeString, "", "Debug flags (scan,index,minimize)")
	options.DefineOption("help", "h", OptionTypeBool, "false", "Show this help message")
	return options
}

func showHelp(w io.Writer, options *ParsedOptions) {
	fmt.Fprintf(w, "duplicates - find duplicate files and replace them with hard links\n\n")
	fmt.Fprintf(w, "Usage: duplicates [OPTIONS] <directory>...\n\n")
	fmt.Fprintf(w, "Options:\n")
	options.ShowOptions(w)
	fmt.Fprintf(w, "\nWith no -f, -d, -l or -m a summary of the scanned files is printed.\n\n")
	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  duplicates -r ~/Photos\n")
	fmt.Fprintf(w, "  duplicates -r -f IMG_0001.jpg ~/Photos ~/Backup\n")
	fmt.Fprintf(w, "  duplicates -r -m -n ~/Photos\n")
}

// run executes one invocation and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	options := defineOptions()
	if err := options.Parse(args); err != nil {
		fmt.Fprintf(stderr, "duplicates: %v\n", err)
		fmt.Fprintf(stderr, "Try 'duplicates --help' for more information.\n")
		return 1
	}

	if options.GetBool("help") {
		showHelp(stdout, options)
		return 0
	}
	if len(options.GetArgs()) == 0 {
		fmt.Fprintf(stderr, "duplicates: no directories given\n")
		fmt.Fprintf(stderr, "Try 'duplicates --help' for more information.\n")
		return 1
	}

	opts, err := resolveOptions(options)
	if err != nil {
		fmt.Fprintf(stderr, "duplicates: %v\n", err)
		return 1
	}

	duplicates.SetLogOutput(stderr)
	duplicates.SetVerboseLevel(opts.Verbose)
	duplicates.SetDebugFlags(opts.Debug)

	cat, err := scanRoots(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "duplicates: %v\n", err)
		return 1
	}

	out := newReportWriter(stdout, opts.HumanSizes)
	if cat.IsEmpty() {
		out.printf("No files found in the given directories")
		return flush(out, stderr, 0)
	}

	if len(opts.Files) == 0 && len(opts.Hashes) == 0 && !opts.List && !opts.Minimise {
		out.Summary(duplicates.Summarize(cat), opts.Quiet)
		return flush(out, stderr, 0)
	}

	if len(opts.Hashes) > 0 {
		algorithm, err := duplicates.GetHashAlgorithm(opts.Algorithm)
		if err != nil {
			fmt.Fprintf(stderr, "duplicates: %v\n", err)
			return 1
		}
		for _, hash := range opts.Hashes {
			out.HashResult(hash, duplicates.FilesWithHash(cat, hash), algorithm)
		}
	}
	for _, name := range opts.Files {
		out.NameResult(duplicates.DuplicatesOfName(cat, name))
	}
	if opts.List {
		out.Duplicates("", duplicates.ListDuplicates(cat))
	}
	if !opts.Minimise {
		return flush(out, stderr, 0)
	}

	return minimise(opts, cat, out, stderr)
}

// minimise lists, links, re-scans from scratch and lists again. The first
// catalog is stale once links change, so it is never reused.
func minimise(opts *runOptions, cat *duplicates.Catalog, out *reportWriter, stderr io.Writer) int {
	out.Duplicates("Before minimise:", duplicates.ListDuplicates(cat))
	// Flush so per-file errors on stderr follow the listing they refer to
	if code := flush(out, stderr, 0); code != 0 {
		return code
	}

	minimizer := duplicates.NewMinimizer(duplicates.MinimizeOptions{
		DryRun:      opts.DryRun,
		Diagnostics: stderr,
	})
	report := minimizer.Minimize(cat.Sets())
	out.MinimizeReport(report, opts.DryRun)

	fresh, err := scanRoots(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "duplicates: rescan after minimise: %v\n", err)
		flush(out, stderr, 1)
		return 1
	}
	out.Duplicates("After minimise:", duplicates.ListDuplicates(fresh))

	code := 0
	if len(report.Errors) > 0 {
		code = 1
	}
	return flush(out, stderr, code)
}

func flush(out *reportWriter, stderr io.Writer, code int) int {
	if err := out.Flush(); err != nil {
		fmt.Fprintf(stderr, "duplicates: %v\n", err)
		return 1
	}
	return code
}

// scanRoots builds a fresh catalog from every root, in command-line order
func scanRoots(opts *runOptions, stderr io.Writer) (*duplicates.Catalog, error) {
	hasher, err := duplicates.NewContentHasher(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	exclude, err := duplicates.NewExcludeMatcher(opts.Exclude)
	if err != nil {
		return nil, err
	}
	cat, err := duplicates.NewCatalog(opts.TableSize)
	if err != nil {
		return nil, err
	}

	scanner := duplicates.NewScanner(hasher, duplicates.ScanOptions{
		Recursive:     opts.Recursive,
		IncludeHidden: opts.Hidden,
		Exclude:       exclude,
		Diagnostics:   stderr,
	})
	for _, root := range opts.Roots {
		if err := scanner.Scan(root, cat); err != nil {
			return nil, err
		}
	}

	stats := scanner.Stats()
	duplicates.VerboseLog(1, "scanned %d directories: %d files, %d skipped, %d excluded, %d repeated",
		stats.Directories, stats.Files, stats.Skipped, stats.Excluded, stats.Repeated)
	if duplicates.GetVerboseLevel() >= 2 {
		logCatalogLayout(cat)
	}
	return cat, nil
}

// logCatalogLayout reports index occupancy and how many files each root owns
func logCatalogLayout(cat *duplicates.Catalog) {
	used, longest := cat.Index().Occupancy()
	duplicates.VerboseLog(2, "index: %d files in %d of %d buckets, longest chain %d",
		cat.FileCount(), used, cat.Index().TableSize(), longest)

	owned := make(map[string]int)
	var roots []string
	cat.ForEachPath(func(_ *duplicates.FileRecord, root string) bool {
		if owned[root] == 0 {
			roots = append(roots, root)
		}
		owned[root]++
		return true
	})
	for _, root := range roots {
		duplicates.VerboseLog(2, "root %s owns %d files", root, owned[root])
	}
}

// resolveOptions loads the configuration and applies command-line flags on top
func resolveOptions(options *ParsedOptions) (*runOptions, error) {
	configPath := options.GetString("config")
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}
	} else if path, err := duplicates.DefaultConfigPath(); err == nil {
		configPath = path
	}

	cfg, err := duplicates.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyOverrides(configOverrides(options)); err != nil {
		return nil, err
	}

	all := cfg.GetAllConfig()
	opts := &runOptions{
		Roots:      options.GetArgs(),
		Recursive:  all.Scan.Recursive,
		Hidden:     all.Scan.Hidden,
		Quiet:      options.GetBool("quiet"),
		Files:      options.GetList("file"),
		Hashes:     options.GetList("hash"),
		List:       options.GetBool("list"),
		Minimise:   options.GetBool("minimise"),
		DryRun:     options.GetBool("dry-run"),
		Algorithm:  all.Hash.Default,
		TableSize:  all.Index.TableSize,
		Exclude:    all.Scan.Exclude,
		HumanSizes: all.Output.HumanSizes,
		Verbose:    all.Verbose.Level,
		Debug:      all.Verbose.Debug,
	}
	if opts.DryRun && !opts.Minimise {
		return nil, errors.New("--dry-run only applies to --minimise")
	}
	return opts, nil
}

// configOverrides turns explicitly given flags into config overrides
func configOverrides(options *ParsedOptions) []string {
	var overrides []string
	if options.IsSet("recursive") {
		overrides = append(overrides, "recursive:"+strconv.FormatBool(options.GetBool("recursive")))
	}
	if options.IsSet("hidden") {
		overrides = append(overrides, "hidden:"+strconv.FormatBool(options.GetBool("hidden")))
	}
	if options.IsSet("algorithm") {
		overrides = append(overrides, "default:"+options.GetString("algorithm"))
	}
	if options.IsSet("verbose") {
		overrides = append(overrides, "level:"+strconv.Itoa(min(options.GetInt("verbose"), 3)))
	}
	if options.IsSet("debug") {
		overrides = append(overrides, "debug:"+options.GetString("debug"))
	}
	return overrides
}
