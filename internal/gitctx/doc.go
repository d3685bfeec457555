// Package gitctx collects staged changes from a git repository.
//
// [Staged] shells out to git diff --cached for the patch, splits it per file
// with go-gitdiff, and reads post-change content for each file from the
// index through go-git. [ParseDiff] performs the same split for a diff
// supplied directly. Both filter by include/exclude glob patterns and a
// per-file byte limit.
package gitctx
