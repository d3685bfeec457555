// Package cli wires together the Cobra command tree for the gatekeep binary.
//
// It defines the root command and its subcommands (review, hook, config,
// models, cache, version), binds flags onto configuration overrides, runs
// the review pipeline and maps its verdict to deterministic exit codes for
// pre-commit hooks and CI.
package cli
