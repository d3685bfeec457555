// Package review turns staged changes into a pass/warn/fail verdict.
//
// It defines the CodeIssue, ReviewResult and Verdict types, builds
// per-file prompts from a diffunit.Unit, parses and normalizes the JSON the
// model returns, and aggregates per-file results into a single Verdict.
//
// Pipeline.Run reviews files in parallel with bounded concurrency. Results
// are always reported in submission order. A file whose output cannot be
// parsed after the retry budget is recorded as a degenerate result; it does
// not fail its siblings. An unreachable backend aborts the whole run.
//
// Rules packs (rules.go) allow callers to override issue severities, specify
// focus areas, and declare required checks that must appear in every review.
package review
