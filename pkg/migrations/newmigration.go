package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	// FormatSQL is the native migration format.
	FormatSQL = "sql"

	upTemplate   = "-- Your SQL goes here"
	downTemplate = "-- This file should undo anything in `up.sql`"
)

// Generator fills a freshly created migration folder and returns the paths
// of the files it created.
type Generator func(dir string) ([]string, error)

var (
	generatorsMu sync.RWMutex
	generators   = map[string]Generator{
		FormatSQL: GenerateSQL,
	}
)

// RegisterGenerator makes a migration format available to `migration generate`.
// Registering an existing format replaces it.
func RegisterGenerator(format string, gen Generator) {
	generatorsMu.Lock()
	defer generatorsMu.Unlock()
	generators[format] = gen
}

// LookupGenerator returns the generator registered for format.
func LookupGenerator(format string) (Generator, bool) {
	generatorsMu.RLock()
	defer generatorsMu.RUnlock()
	gen, ok := generators[format]
	return gen, ok
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	generatorsMu.RLock()
	defer generatorsMu.RUnlock()
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateSQL writes placeholder up.sql and down.sql files into dir.
func GenerateSQL(dir string) ([]string, error) {
	upPath := filepath.Join(dir, upFile)
	downPath := filepath.Join(dir, downFile)

	if err := os.WriteFile(upPath, []byte(upTemplate), 0o644); err != nil {
		return nil, fmt.Errorf("failed to create migration file %s: %w", upPath, err)
	}
	if err := os.WriteFile(downPath, []byte(downTemplate), 0o644); err != nil {
		return []string{upPath}, fmt.Errorf("failed to create migration file %s: %w", downPath, err)
	}

	return []string{upPath, downPath}, nil
}
