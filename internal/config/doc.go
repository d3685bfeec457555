// Package config loads and merges gatekeep configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GATEKEEP_BACKEND, GATEKEEP_MODEL, GATEKEEP_ENDPOINT,
//     falling back to OLLAMA_HOST, etc.)
//  3. Config file ($XDG_CONFIG_HOME/gatekeep/config.yaml)
//  4. Built-in defaults
//
// The file is YAML; JSON documents are accepted as well. Keys missing from
// the file keep their defaults, so booleans can be switched off explicitly.
// Use [Load] to obtain a merged and validated [Config], [Save] to write it
// back, and [SetField] to update a single key.
package config
