// Package output formats review reports for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output styled with lipgloss (default)
//   - json: the full structured report
//   - markdown: per-file sections with collapsible issue lists
//   - sarif: SARIF v2.1.0 for CI tooling
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*review.Report]. [WriteReport]
// handles destination selection.
package output
