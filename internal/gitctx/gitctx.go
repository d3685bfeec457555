package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/dshills/gatekeep/internal/diffunit"
)

// Options controls how staged changes are gathered.
type Options struct {
	ContextLines int
	Include      []string
	Exclude      []string
	MaxFileBytes int
}

// Result holds the collected changes and what was left out.
type Result struct {
	Changes  []diffunit.Change
	Excluded []string
	Repo     RepoMeta
}

// Paths returns the paths of the collected changes.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Changes))
	for _, c := range r.Changes {
		paths = append(paths, c.Path)
	}
	return paths
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata for the repository containing dir.
func GetRepoMeta(dir string) (RepoMeta, error) {
	repo, err := open(dir)
	if err != nil {
		return RepoMeta{}, err
	}
	return repoMeta(repo), nil
}

func open(dir string) (*git.Repository, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	return repo, nil
}

func repoMeta(repo *git.Repository) RepoMeta {
	var meta RepoMeta
	if wt, err := repo.Worktree(); err == nil {
		meta.Root = wt.Filesystem.Root()
	}
	// HEAD may point at an unborn branch in a repository with no commits.
	if ref, err := repo.Reference(plumbing.HEAD, false); err == nil && ref.Type() == plumbing.SymbolicReference {
		meta.Branch = ref.Target().Short()
	}
	if head, err := repo.Head(); err == nil {
		meta.Head = head.Hash().String()
	}
	return meta
}

// Staged returns the staged changes of the repository containing dir, one
// Change per file. Post-change content is read from the index, not the
// working tree, so unstaged edits never leak into a review.
func Staged(ctx context.Context, dir string, opts Options) (Result, error) {
	repo, err := open(dir)
	if err != nil {
		return Result{}, err
	}
	meta := repoMeta(repo)

	diff, err := gitOutput(ctx, meta.Root, buildDiffArgs(opts)...)
	if err != nil {
		return Result{}, fmt.Errorf("git diff --cached: %w", err)
	}

	res, err := ParseDiff(diff, opts)
	if err != nil {
		return Result{}, err
	}
	res.Repo = meta

	idx, err := repo.Storer.Index()
	if err != nil {
		return Result{}, fmt.Errorf("reading index: %w", err)
	}
	for i := range res.Changes {
		c := &res.Changes[i]
		if c.IsDeleted || c.IsBinary {
			continue
		}
		entry, err := idx.Entry(c.Path)
		if err != nil {
			continue
		}
		blob, err := repo.BlobObject(entry.Hash)
		if err != nil {
			return Result{}, fmt.Errorf("reading staged blob for %s: %w", c.Path, err)
		}
		// Oversized files are still reviewed; the context window falls back
		// to the diff lines.
		if opts.MaxFileBytes > 0 && blob.Size > int64(opts.MaxFileBytes) {
			continue
		}
		content, err := readBlob(blob.Reader)
		if err != nil {
			return Result{}, fmt.Errorf("reading staged blob for %s: %w", c.Path, err)
		}
		c.Content = content
		c.HasContent = true
	}
	return res, nil
}

func readBlob(open func() (io.ReadCloser, error)) (string, error) {
	r, err := open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseDiff splits a unified diff into per-file changes. Include and exclude
// globs are applied, and files whose diff exceeds MaxFileBytes are excluded.
// The returned changes carry no post-change content.
func ParseDiff(diff string, opts Options) (Result, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return Result{}, fmt.Errorf("parsing diff: %w", err)
	}

	traditional := !strings.Contains(diff, "diff --git ")
	var res Result
	for _, f := range files {
		if traditional {
			f.OldName = stripPrefix(f.OldName, "a/")
			f.NewName = stripPrefix(f.NewName, "b/")
		}

		path := f.NewName
		if f.IsDelete || path == "" {
			path = f.OldName
		}
		if !included(path, opts) {
			res.Excluded = append(res.Excluded, path)
			continue
		}

		text := f.String()
		if opts.MaxFileBytes > 0 && len(text) > opts.MaxFileBytes {
			res.Excluded = append(res.Excluded, path)
			continue
		}

		c := diffunit.Change{
			Path:      path,
			Diff:      text,
			IsBinary:  f.IsBinary,
			IsNew:     f.IsNew,
			IsRenamed: f.IsRename,
			IsDeleted: f.IsDelete,
		}
		if f.IsRename {
			c.OldPath = f.OldName
		}
		res.Changes = append(res.Changes, c)
	}
	return res, nil
}

// stripPrefix removes the a/ or b/ prefix that traditional unified diffs keep
// in their file names. Git-style headers are stripped by the parser.
func stripPrefix(name, prefix string) string {
	if name == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

func included(path string, opts Options) bool {
	if len(opts.Include) > 0 && !isIncludeAll(opts.Include) && !MatchesAny(path, opts.Include) {
		return false
	}
	return !MatchesAny(path, opts.Exclude)
}

func isIncludeAll(patterns []string) bool {
	for _, p := range patterns {
		if p == "**/*" || p == "**" {
			return true
		}
	}
	return false
}

func buildDiffArgs(opts Options) []string {
	args := []string{"diff", "--cached", "--no-color", "--no-ext-diff", "-M",
		"--src-prefix=a/", "--dst-prefix=b/"}
	if opts.ContextLines >= 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return args
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && !strings.ContainsAny(dir, "*?[") {
			if path == dir || strings.HasPrefix(path, dir+"/") {
				return true
			}
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
			if dir, ok := strings.CutSuffix(clean, "/**"); ok && containsDir(path, dir) {
				return true
			}
		}
	}
	return false
}

func containsDir(path, dir string) bool {
	parts := strings.Split(path, "/")
	for _, p := range parts[:len(parts)-1] {
		if p == dir {
			return true
		}
	}
	return false
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return string(out), nil
}
