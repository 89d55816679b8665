// Package config loads the dbmig.toml project configuration.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the name of the project configuration file.
const FileName = "dbmig.toml"

// DefaultFile is written verbatim by `dbmig setup` when no configuration file exists.
//
//go:embed default_files/dbmig.toml
var DefaultFile []byte

type ConfigError struct {
	Opt string
	Err error
}

func (e *ConfigError) Error() string {
	return "config: " + strings.Join([]string{e.Opt, e.Err.Error()}, ": ")
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the parsed project configuration. It is not modified after loading.
//
//nolint:tagliatelle
type Config struct {
	MigrationsDirectory *MigrationsDirectory `toml:"migrations_directory"`
	PrintSchema         PrintSchema          `toml:"print_schema"`

	path string // path of the loaded file. Empty if none was read.
}

// MigrationsDirectory holds the [migrations_directory] table.
type MigrationsDirectory struct {
	Dir string `toml:"dir"`
}

// PrintSchema holds the [print_schema] table.
//
//nolint:tagliatelle
type PrintSchema struct {
	File        string   `toml:"file"`
	Schema      string   `toml:"schema"`
	Filter      Filter   `toml:"filter"`
	WithDocs    bool     `toml:"with_docs"`
	PatchFile   string   `toml:"patch_file"`
	ImportTypes []string `toml:"import_types"`
}

// Filter restricts which tables are rendered. At most one list may be set.
//
//nolint:tagliatelle
type Filter struct {
	OnlyTables   []string `toml:"only_tables"`
	ExceptTables []string `toml:"except_tables"`
}

// Path returns the path of the file the config was read from, or "".
func (c *Config) Path() string { return c.path }

// MigrationsDir returns the configured migrations directory, or "".
func (c *Config) MigrationsDir() string {
	if c == nil || c.MigrationsDirectory == nil {
		return ""
	}

	return c.MigrationsDirectory.Dir
}

// Load reads the configuration at path.
//
// A missing file yields an empty configuration unless required is set,
// in which case the stat error is returned.
func Load(path string, required bool) (*Config, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}

		return nil, fmt.Errorf("config: read file: %w", err)
	}

	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	c.path = path
	c.resolvePaths(filepath.Dir(path))

	return c, nil
}

// Parse decodes raw TOML. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	c := &Config{}

	dec := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// WriteDefault creates path with [DefaultFile] unless it already exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := os.WriteFile(path, DefaultFile, 0o644); err != nil {
		return false, fmt.Errorf("config: write default file: %w", err)
	}

	return true, nil
}

func (c *Config) validate() error {
	f := c.PrintSchema.Filter
	if len(f.OnlyTables) > 0 && len(f.ExceptTables) > 0 {
		return &ConfigError{Opt: "print_schema.filter", Err: errors.New("'only_tables' and 'except_tables' are mutually exclusive")}
	}

	if c.MigrationsDirectory != nil && c.MigrationsDirectory.Dir == "" {
		return &ConfigError{Opt: "migrations_directory.dir", Err: errors.New("defined but empty")}
	}

	return nil
}

// resolvePaths makes relative paths in the file relative to base.
func (c *Config) resolvePaths(base string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	if c.MigrationsDirectory != nil {
		c.MigrationsDirectory.Dir = join(c.MigrationsDirectory.Dir)
	}

	c.PrintSchema.File = join(c.PrintSchema.File)
	c.PrintSchema.PatchFile = join(c.PrintSchema.PatchFile)
}
