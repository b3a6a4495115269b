package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/opus-domini/mergington/internal/validate"
)

const (
	DefaultListenAddr     = "127.0.0.1:8000"
	DefaultJournalMaxRows = 10000
	DefaultJournalCron    = "@hourly"
)

var (
	osUserHomeDir = os.UserHomeDir
	osCurrentUser = user.Current
	osTempDir     = os.TempDir
)

type Config struct {
	ListenAddr string
	DataDir    string
	LogLevel   string
	// SeedFile overrides the bundled activity seed when set.
	SeedFile string
	Journal  JournalConfig
}

type JournalConfig struct {
	// Path is the sqlite file for the enrollment journal. Empty keeps the
	// journal in memory.
	Path      string
	MaxRows   int
	PruneCron string
}

type fileConfig struct {
	Listen   string `toml:"listen"`
	LogLevel string `toml:"log_level"`
	SeedFile string `toml:"seed_file"`
	Journal  struct {
		Path      string `toml:"path"`
		MaxRows   int    `toml:"max_rows"`
		PruneCron string `toml:"prune_cron"`
	} `toml:"journal"`
}

const defaultConfigContent = `# Mergington activities configuration
# All values shown are defaults. Uncomment and edit to customize.

# Address and port the server listens on.
# Environment variable: MERGINGTON_LISTEN
# listen = "127.0.0.1:8000"

# Log level: debug, info, warn, error.
# Environment variable: MERGINGTON_LOG_LEVEL
# log_level = "info"

# TOML file with [[activity]] tables replacing the bundled activities.
# Environment variable: MERGINGTON_SEED_FILE
# seed_file = ""

[journal]
# sqlite file recording signups and withdrawals. Empty keeps it in memory.
# Environment variable: MERGINGTON_JOURNAL_PATH
# path = ""

# Newest rows kept when the journal is pruned.
# Environment variable: MERGINGTON_JOURNAL_MAX_ROWS
# max_rows = 10000

# Cron expression (5 fields or @descriptor) for journal pruning.
# Environment variable: MERGINGTON_JOURNAL_PRUNE_CRON
# prune_cron = "@hourly"
`

func Load() Config {
	cfg := Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   "info",
		Journal: JournalConfig{
			MaxRows:   DefaultJournalMaxRows,
			PruneCron: DefaultJournalCron,
		},
	}

	// Resolve DataDir first (needed for config file path).
	if v := strings.TrimSpace(os.Getenv("MERGINGTON_DATA_DIR")); v != "" {
		cfg.DataDir = v
	} else {
		cfg.DataDir = defaultDataDir()
	}

	configPath := Path(cfg.DataDir)
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		writeDefaultConfig(configPath)
	}

	// Config file values act as defaults for env.
	file := loadFile(configPath)

	cfg.ListenAddr = pick("MERGINGTON_LISTEN", file.Listen, cfg.ListenAddr)
	cfg.LogLevel = strings.ToLower(pick("MERGINGTON_LOG_LEVEL", file.LogLevel, cfg.LogLevel))
	cfg.SeedFile = pick("MERGINGTON_SEED_FILE", file.SeedFile, "")
	cfg.Journal.Path = pick("MERGINGTON_JOURNAL_PATH", file.Journal.Path, "")
	cfg.Journal.PruneCron = pick("MERGINGTON_JOURNAL_PRUNE_CRON", file.Journal.PruneCron, cfg.Journal.PruneCron)

	if file.Journal.MaxRows > 0 {
		cfg.Journal.MaxRows = file.Journal.MaxRows
	}
	if n, ok := parsePositiveInt(os.Getenv("MERGINGTON_JOURNAL_MAX_ROWS")); ok {
		cfg.Journal.MaxRows = n
	}

	return cfg
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen %q: %w", c.ListenAddr, err)
	}
	if err := validate.CronExpression(c.Journal.PruneCron); err != nil {
		return fmt.Errorf("journal prune_cron: %w", err)
	}
	return nil
}

// Path returns the config file location for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// pick applies env > file > fallback precedence.
func pick(envKey, fileValue, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if home, err := osUserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".mergington")
	}
	if u, err := osCurrentUser(); err == nil && strings.TrimSpace(u.HomeDir) != "" {
		return filepath.Join(u.HomeDir, ".mergington")
	}
	return filepath.Join(osTempDir(), "mergington")
}

// loadFile decodes the TOML config file. A missing or malformed file
// yields zero values so env and defaults still apply.
func loadFile(path string) fileConfig {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fileConfig{}
	}
	return fc
}

// writeDefaultConfig creates the config file with commented-out defaults.
// Best-effort: errors are silently ignored.
func writeDefaultConfig(path string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	_ = os.WriteFile(path, []byte(defaultConfigContent), 0o600) //nolint:gosec // fixed content, not user input
}

func parsePositiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
