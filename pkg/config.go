package duplicates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the duplicates configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// ScanConfig represents directory scanning defaults
type ScanConfig struct {
	Recursive bool     // Descend into subdirectories
	Hidden    bool     // Include hidden files
	Exclude   []string // Regular expressions of paths to skip
}

// IndexConfig represents duplicate index configuration
type IndexConfig struct {
	TableSize int // Number of buckets in the duplicate index
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// OutputConfig represents report output configuration
type OutputConfig struct {
	HumanSizes bool // Print sizes as KiB/MiB next to byte counts
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash    *HashConfig
	Scan    *ScanConfig
	Index   *IndexConfig
	Verbose *VerboseConfig
	Output  *OutputConfig
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/duplicates/config (or the
// platform equivalent)
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "duplicates", "config"), nil
}

// LoadConfig loads configuration from configPath. A missing file yields the
// defaults; nothing is ever written back.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if configPath == "" {
		return cfg, cfg.useDefaults()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, cfg.useDefaults()
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration holding only the defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	// setDefaults only fails on duplicate section names, impossible on an empty file
	_ = cfg.useDefaults()
	return cfg
}

func (c *Config) useDefaults() error {
	c.ini = ini.Empty()
	if err := c.setDefaults(); err != nil {
		return fmt.Errorf("failed to set default config: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section string
		key     string
		value   string
	}{
		{"filehash", "default", DefaultHashAlgorithm},
		{"scan", "recursive", "false"},
		{"scan", "hidden", "false"},
		{"scan", "exclude", ""},
		{"index", "table_size", fmt.Sprintf("%d", DefaultTableSize)},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
		{"output", "human_sizes", "true"},
	}

	for _, d := range defaults {
		section, err := c.ini.GetSection(d.section)
		if err != nil {
			section, err = c.ini.NewSection(d.section)
			if err != nil {
				return fmt.Errorf("failed to create %s section: %w", d.section, err)
			}
		}
		if _, err := section.NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}

	return nil
}

// Path returns the file the configuration was loaded from, if any
func (c *Config) Path() string {
	return c.configPath
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm,
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			hashConfig.Default = section.Key("default").String()
		}
	}

	return hashConfig
}

// GetScanConfig returns the scan configuration
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := &ScanConfig{}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("recursive") {
			if recursive, err := section.Key("recursive").Bool(); err == nil {
				scanConfig.Recursive = recursive
			}
		}
		if section.HasKey("hidden") {
			if hidden, err := section.Key("hidden").Bool(); err == nil {
				scanConfig.Hidden = hidden
			}
		}
		if section.HasKey("exclude") && section.Key("exclude").String() != "" {
			scanConfig.Exclude = section.Key("exclude").Strings(",")
		}
	}

	return scanConfig
}

// GetIndexConfig returns the duplicate index configuration
func (c *Config) GetIndexConfig() *IndexConfig {
	indexConfig := &IndexConfig{
		TableSize: DefaultTableSize,
	}

	if c.ini.HasSection("index") {
		section := c.ini.Section("index")
		if section.HasKey("table_size") {
			if size, err := section.Key("table_size").Int(); err == nil {
				indexConfig.TableSize = size
			}
		}
	}

	return indexConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		HumanSizes: true,
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("human_sizes") {
			if human, err := section.Key("human_sizes").Bool(); err == nil {
				outputConfig.HumanSizes = human
			}
		}
	}

	return outputConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:    c.GetHashConfig(),
		Scan:    c.GetScanConfig(),
		Index:   c.GetIndexConfig(),
		Verbose: c.GetVerboseConfig(),
		Output:  c.GetOutputConfig(),
	}
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "default:sha512", "recursive:true", "table_size:101"
func (c *Config) ApplyOverrides(overrides []string) error {
	keys := map[string]string{
		"default":     "filehash",
		"recursive":   "scan",
		"hidden":      "scan",
		"exclude":     "scan",
		"table_size":  "index",
		"level":       "verbose",
		"debug":       "verbose",
		"human_sizes": "output",
	}

	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		sectionName, ok := keys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s'", key)
		}
		c.ini.Section(sectionName).Key(key).SetValue(value)
	}

	return c.Validate()
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	if err := ValidateTableSize(all.Index.TableSize); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	if _, err := NewExcludeMatcher(all.Scan.Exclude); err != nil {
		return err
	}
	return nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, err := GetHashAlgorithm(algorithm); err != nil {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha1, sha256, sha512)", algorithm)
	}
	return nil
}

// ValidateTableSize validates the duplicate index bucket count
func ValidateTableSize(size int) error {
	if size < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTableSize, size)
	}
	if size > 1<<24 {
		return fmt.Errorf("index table size should not exceed %d, got: %d", 1<<24, size)
	}
	return nil
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}
