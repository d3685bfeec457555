// Package diffunit turns one file's staged unified diff into a [Unit]: the
// changed line numbers, a bounded window of surrounding source lines, and the
// binary/new/rename flags.
//
// Diffs are parsed with go-gitdiff. A diff whose hunk structure cannot be
// parsed degrades to whole-file mode ([Unit.Degraded]) instead of failing.
package diffunit
