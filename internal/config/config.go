package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "pg_index_import.toml"

// Wildcard selects every schema or table.
const Wildcard = "*"

// SourceConfig describes the SQL Server catalog indexes are exported from.
type SourceConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Encrypt  bool   `toml:"encrypt"`
}

// TargetConfig describes the database statements are replayed against.
type TargetConfig struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

type ExportConfig struct {
	Schema    string `toml:"schema"`
	Table     string `toml:"table"`
	OutputDir string `toml:"output_dir"`
}

type ImportConfig struct {
	InputDir         string   `toml:"input_dir"`
	Threads          int      `toml:"threads"`
	TimeoutHours     int      `toml:"timeout_hours"`
	StatementTimeout Duration `toml:"statement_timeout"`
	Extension        string   `toml:"extension"`
	QueueSize        int      `toml:"queue_size"`
	Concurrently     bool     `toml:"concurrently"`
}

type Config struct {
	Source         SourceConfig `toml:"source"`
	Target         TargetConfig `toml:"target"`
	Export         ExportConfig `toml:"export"`
	Import         ImportConfig `toml:"import"`
	ConfigFilePath string       `toml:"-"`
}

// Duration is a time.Duration written as a Go duration string ("90s", "2h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Host: "localhost", Port: 1433},
		Target: TargetConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		Export: ExportConfig{
			Schema:    Wildcard,
			Table:     Wildcard,
			OutputDir: "OUTPUT",
		},
		Import: ImportConfig{
			InputDir:     "INPUT",
			Threads:      2,
			TimeoutHours: 24,
			Extension:    ".sql",
		},
	}
}

// ConfigDir returns the directory holding the loaded file, or "" when the
// defaults are in use.
func (c *Config) ConfigDir() string {
	if c == nil || c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// LoadConfig reads the file at path. With an empty path, DefaultFileName is
// searched from the working directory upwards until a project root; when
// nothing is found the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	for {
		configPath := filepath.Join(dir, DefaultFileName)
		if _, err := os.Stat(configPath); err == nil {
			return loadFile(configPath)
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := ValidateDocument(data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	config.ConfigFilePath = abs
	return config, nil
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	return false
}
