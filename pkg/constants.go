package duplicates

// DefaultTableSize is the number of buckets in a DuplicateIndex when no size
// is configured. A prime keeps djb2 residues spread out.
const DefaultTableSize = 997

// Hash size constants
const (
	HashSizeSHA1   = 20 // SHA-1 hash size in bytes
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
)

// DefaultHashAlgorithm is used when neither config nor command line pick one
const DefaultHashAlgorithm = "sha256"

// Debug flag names understood by IsDebugEnabled
const (
	DebugScan     = "scan"
	DebugIndex    = "index"
	DebugMinimize = "minimize"
)

// Scan root context used by the path registry when no root is known
const UnknownRootContext = "-"
