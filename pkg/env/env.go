package env

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultFiles are the bootstrap files Load tries when called without
// arguments: the working directory, then the project root as seen from
// services/<name>/.
var DefaultFiles = []string{".env", "../../.env"}

// Lookup reads a single variable. os.Getenv satisfies it.
type Lookup func(key string) string

// Load attempts to load environment variables from optional .env files.
// Missing files are skipped; variables already set are never overwritten.
// It returns the files that were actually loaded.
func Load(files ...string) []string {
	if len(files) == 0 {
		files = DefaultFiles
	}

	var loaded []string
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			// Silent fail if missing, might be provided by host
			continue
		}
		loaded = append(loaded, f)
	}

	return loaded
}

// FirstNonEmpty returns the first non-empty value among keys, or fallback.
func FirstNonEmpty(lookup Lookup, fallback string, keys ...string) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, k := range keys {
		if v := lookup(k); v != "" {
			return v
		}
	}
	return fallback
}

// Get returns the process environment value of key, or fallback when unset
// or empty.
func Get(key, fallback string) string {
	return FirstNonEmpty(os.Getenv, fallback, key)
}
