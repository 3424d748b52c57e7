package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard
// library shell-style syntax ($VAR and ${VAR}). Missing variables expand to
// the empty string; validation is responsible for catching required fields
// that end up empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}
