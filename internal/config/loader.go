package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "capledger.toml"

	// AppDir is the subdirectory used under the XDG config and data homes.
	AppDir = "capledger"
)

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads the configuration. The explicit path wins when given.
// Otherwise the XDG config path and then the working directory are
// searched. When nothing is found and createDefault is set, the defaults
// are written to the preferred location and returned.
//
// Returns the configuration and the path it was loaded from, which is
// empty for an in-memory default.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := loadFromFile(explicitPath)
		if err != nil {
			return nil, "", &LoadError{Path: explicitPath, Err: err}
		}
		return cfg, explicitPath, nil
	}

	searched := searchPaths()
	for _, path := range searched {
		if !fileExists(path) {
			continue
		}
		cfg, err := loadFromFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", fmt.Errorf("no configuration file found; searched: %s", strings.Join(searched, ", "))
	}

	cfg := Default()
	target := searched[len(searched)-1]
	if xdg := xdgConfigPath(); xdg != "" {
		if err := os.MkdirAll(filepath.Dir(xdg), 0750); err == nil {
			target = xdg
		}
	}
	if err := Save(cfg, target); err != nil {
		// The defaults are still usable without a file.
		return cfg, "", nil
	}
	return cfg, target, nil
}

// searchPaths lists the candidate config files in precedence order.
func searchPaths() []string {
	var paths []string
	if xdg := xdgConfigPath(); xdg != "" {
		paths = append(paths, xdg)
	}
	return append(paths, filepath.Join(".", DefaultConfigFileName))
}

// loadFromFile overlays a TOML file on the defaults and validates it.
func loadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Save writes a configuration to a TOML file.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header := `# capledger configuration
#
# Generated with default values. Dates use RFC3339, bucket is one of
# standard, day, week, month, quarter, year.

`
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	return nil
}

// xdgConfigPath returns the XDG config file path, or "" when neither
// XDG_CONFIG_HOME nor a home directory is available.
func xdgConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppDir, DefaultConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppDir, DefaultConfigFileName)
}

// xdgDataDir returns the application data directory, or "".
func xdgDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", AppDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ConfigPath returns the configuration file path that Load would use, or
// the preferred location for a new file.
func ConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	searched := searchPaths()
	for _, path := range searched {
		if fileExists(path) {
			return path
		}
	}
	return searched[0]
}

// EnsureDataDir resolves the database path and creates its directory.
// Relative paths are placed under the XDG data directory when possible.
func EnsureDataDir(cfg *Config) (string, error) {
	dbPath := cfg.Database.Path

	if dbPath == ":memory:" {
		return dbPath, nil
	}

	if filepath.IsAbs(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return "", fmt.Errorf("creating database directory: %w", err)
		}
		return dbPath, nil
	}

	dataDir := xdgDataDir()
	if dataDir == "" {
		return dbPath, nil
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		// Fall back to the working directory.
		return dbPath, nil
	}
	return filepath.Join(dataDir, dbPath), nil
}

// EnsureLogDir creates the log directory if needed and returns the log
// file path. An empty path disables file logging.
func EnsureLogDir(cfg *Config) (string, error) {
	logPath := cfg.Logging.File
	if logPath == "" {
		return "", nil
	}
	if dir := filepath.Dir(logPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("creating log directory: %w", err)
		}
	}
	return logPath, nil
}

// BackupDir returns the directory for database backups, next to the
// database, creating it if needed.
func BackupDir(cfg *Config) (string, error) {
	var dir string
	switch {
	case filepath.IsAbs(cfg.Database.Path):
		dir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	case xdgDataDir() != "":
		dir = filepath.Join(xdgDataDir(), "backups")
	default:
		dir = "backups"
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	return dir, nil
}
