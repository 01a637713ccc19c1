package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// ApplicationName is reported to the source server for each catalog session.
const ApplicationName = "pgindex"

// Keys read from the dotenv file and the process environment.
const (
	EnvSourceURL      = "SOURCE_URL"
	EnvSourcePassword = "SOURCE_PASSWORD"
	EnvTargetURL      = "TARGET_URL"
	EnvTargetPassword = "TARGET_PASSWORD"
)

// Connections holds the fully-resolved connection strings.
type Connections struct {
	SourceDSN  string
	TargetURL  string
	DotenvPath string
	FromDotenv bool
}

// ResolveConnections builds the source and target connection strings.
// Values come from, lowest to highest priority: the config file, the dotenv
// file (envFile, or ".env" next to the config file), the process environment.
func ResolveConnections(config *Config, envFile string) (*Connections, error) {
	if config == nil {
		config = Default()
	}
	source := config.Source
	target := config.Target

	resolved := &Connections{DotenvPath: envFile}
	if resolved.DotenvPath == "" {
		baseDir := config.ConfigDir()
		if baseDir == "" {
			if cwd, err := os.Getwd(); err == nil {
				baseDir = cwd
			}
		}
		resolved.DotenvPath = filepath.Join(baseDir, ".env")
	}

	info, err := os.Stat(resolved.DotenvPath)
	switch {
	case err == nil && !info.IsDir():
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		applyOverrides(&source, &target, values)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
	case err != nil && envFile != "":
		return nil, fmt.Errorf("env file %s not found", envFile)
	}

	applyOverrides(&source, &target, map[string]string{
		EnvSourceURL:      os.Getenv(EnvSourceURL),
		EnvSourcePassword: os.Getenv(EnvSourcePassword),
		EnvTargetURL:      os.Getenv(EnvTargetURL),
		EnvTargetPassword: os.Getenv(EnvTargetPassword),
	})

	resolved.SourceDSN = source.DSN()
	resolved.TargetURL = target.DSN()
	return resolved, nil
}

func applyOverrides(source *SourceConfig, target *TargetConfig, values map[string]string) {
	if v := values[EnvSourceURL]; v != "" {
		source.URL = v
	}
	if v := values[EnvSourcePassword]; v != "" {
		source.Password = v
	}
	if v := values[EnvTargetURL]; v != "" {
		target.URL = v
	}
	if v := values[EnvTargetPassword]; v != "" {
		target.Password = v
	}
}

// DSN returns the sqlserver:// connection string. Sessions are read-only and
// trust the server certificate; encryption is off unless enabled.
func (s SourceConfig) DSN() string {
	if s.URL != "" {
		return s.URL
	}

	query := url.Values{}
	if s.Database != "" {
		query.Set("database", s.Database)
	}
	query.Set("app name", ApplicationName)
	query.Set("ApplicationIntent", "ReadOnly")
	query.Set("TrustServerCertificate", "true")
	if s.Encrypt {
		query.Set("encrypt", "true")
	} else {
		query.Set("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		RawQuery: query.Encode(),
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	return u.String()
}

// DSN returns the target connection URL. An explicit URL wins; otherwise a
// postgres:// URL is assembled from the discrete fields.
func (t TargetConfig) DSN() string {
	if t.URL != "" {
		return t.URL
	}

	sslMode := t.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:     "/" + t.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if t.User != "" {
		u.User = url.UserPassword(t.User, t.Password)
	}
	return u.String()
}

// Redact hides the password of a URL-shaped connection string.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
