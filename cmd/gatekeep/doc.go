// Gatekeep is a local-first CLI that reviews staged changes with a locally
// hosted language model before they are committed.
//
// Each staged file is reviewed independently and the results are combined
// into a passed, warnings or failed verdict with deterministic exit codes
// suitable for git hooks and CI gating.
//
// Usage:
//
//	gatekeep review staged             # review the index against HEAD
//	gatekeep review diff change.patch  # review a unified diff file
//	git diff | gatekeep review diff -  # review a diff from stdin
//	gatekeep hook install              # run on every commit
//	gatekeep models doctor             # check the backend is reachable
package main
