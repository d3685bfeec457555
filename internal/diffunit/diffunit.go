package diffunit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// DefaultContextLines is the number of lines kept before and after each run
// of changed lines.
const DefaultContextLines = 3

// Change is one staged file as reported by the version-control collaborator.
type Change struct {
	Path       string
	OldPath    string
	Diff       string
	Content    string
	HasContent bool
	IsBinary   bool
	IsNew      bool
	IsRenamed  bool
	IsDeleted  bool
}

// Unit is the normalized view of one file's change. It is built fresh for
// every review and never mutated afterwards.
type Unit struct {
	Path     string `json:"path"`
	OldPath  string `json:"oldPath,omitempty"`
	DiffText string `json:"-"`

	// AddedLines are 1-based positions in the new file.
	AddedLines []int `json:"addedLines"`
	// RemovedLines are 1-based positions in the old file.
	RemovedLines []int `json:"removedLines"`
	// ContextWindow maps new-file line numbers to their text.
	ContextWindow map[int]string `json:"-"`

	IsBinary  bool `json:"isBinary"`
	IsNew     bool `json:"isNew"`
	IsRenamed bool `json:"isRenamed"`

	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degradedReason,omitempty"`
}

// Extract builds a Unit from a change. contextLines <= 0 disables the
// surrounding context but still keeps the changed lines themselves.
func Extract(c Change, contextLines int) Unit {
	u := Unit{
		Path:      c.Path,
		OldPath:   c.OldPath,
		DiffText:  c.Diff,
		IsBinary:  c.IsBinary,
		IsNew:     c.IsNew,
		IsRenamed: c.IsRenamed,
	}
	if u.IsBinary {
		return u
	}
	if strings.TrimSpace(c.Diff) == "" {
		return u
	}

	files, _, err := gitdiff.Parse(strings.NewReader(withFileHeader(c.Diff, c.Path)))
	if err != nil {
		return degrade(u, c, fmt.Sprintf("parsing diff: %v", err))
	}
	f := pickFile(files, c.Path)
	if f == nil {
		return degrade(u, c, "no file header found in diff")
	}

	u.IsBinary = u.IsBinary || f.IsBinary
	u.IsRenamed = u.IsRenamed || f.IsRename
	u.IsNew = u.IsNew || f.IsNew
	if u.IsRenamed && u.OldPath == "" {
		u.OldPath = f.OldName
	}
	if u.IsBinary {
		return u
	}
	// Hunk numbers of a renamed file straddle two paths, so an edited rename
	// is reviewed as a whole file.
	if u.IsRenamed {
		if len(f.TextFragments) == 0 {
			return u
		}
		return degrade(u, c, "renamed file")
	}

	diffText := make(map[int]string)
	var anchors []int
	for _, frag := range f.TextFragments {
		oldLine := int(frag.OldPosition)
		newLine := int(frag.NewPosition)
		for _, line := range frag.Lines {
			text := strings.TrimSuffix(line.Line, "\n")
			switch line.Op {
			case gitdiff.OpAdd:
				u.AddedLines = append(u.AddedLines, newLine)
				diffText[newLine] = text
				anchors = append(anchors, newLine)
				newLine++
			case gitdiff.OpDelete:
				u.RemovedLines = append(u.RemovedLines, oldLine)
				anchors = append(anchors, max(newLine, 1))
				oldLine++
			default:
				diffText[newLine] = text
				oldLine++
				newLine++
			}
		}
	}

	u.ContextWindow = buildWindow(anchors, contextLines, c, diffText)
	return u
}

// ChangedLineCount returns the number of added and removed lines.
func (u Unit) ChangedLineCount() int {
	return len(u.AddedLines) + len(u.RemovedLines)
}

// HasLinePrecision reports whether line numbers were derived from hunks.
func (u Unit) HasLinePrecision() bool {
	return !u.Degraded && !u.IsBinary
}

// WindowLines returns the context window line numbers in ascending order.
func (u Unit) WindowLines() []int {
	lines := make([]int, 0, len(u.ContextWindow))
	for n := range u.ContextWindow {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

// ValidLine reports whether an issue may cite line n for this unit: it must
// be an added line or fall inside the context window. Both are new-file
// numbers. Degraded units with no content to anchor against accept any
// positive line.
func (u Unit) ValidLine(n int) bool {
	if n < 1 {
		return false
	}
	if u.Degraded && len(u.ContextWindow) == 0 {
		return true
	}
	if _, ok := u.ContextWindow[n]; ok {
		return true
	}
	return containsInt(u.AddedLines, n)
}

// Runs groups the sorted, de-duplicated lines into contiguous [start, end]
// ranges.
func Runs(lines []int) [][2]int {
	if len(lines) == 0 {
		return nil
	}
	sorted := append([]int(nil), lines...)
	sort.Ints(sorted)
	var runs [][2]int
	cur := [2]int{sorted[0], sorted[0]}
	for _, n := range sorted[1:] {
		if n <= cur[1]+1 {
			cur[1] = max(cur[1], n)
			continue
		}
		runs = append(runs, cur)
		cur = [2]int{n, n}
	}
	return append(runs, cur)
}

func buildWindow(anchors []int, k int, c Change, diffText map[int]string) map[int]string {
	if k < 0 {
		k = 0
	}
	var source map[int]string
	upper := -1
	if c.HasContent {
		lines := splitLines(c.Content)
		source = make(map[int]string, len(lines))
		for i, l := range lines {
			source[i+1] = l
		}
		upper = len(lines)
	} else {
		source = diffText
	}

	window := make(map[int]string)
	for _, run := range Runs(anchors) {
		start := max(run[0]-k, 1)
		end := run[1] + k
		if upper >= 0 {
			end = min(end, upper)
		}
		for n := start; n <= end; n++ {
			if text, ok := source[n]; ok {
				window[n] = text
			}
		}
	}
	return window
}

func degrade(u Unit, c Change, reason string) Unit {
	u.Degraded = true
	u.DegradedReason = reason
	u.AddedLines = nil
	u.RemovedLines = nil
	u.ContextWindow = make(map[int]string)
	if c.HasContent {
		for i, l := range splitLines(c.Content) {
			u.ContextWindow[i+1] = l
		}
	}
	return u
}

// withFileHeader prepends a traditional ---/+++ header when the diff starts
// directly with a hunk, so the parser can attribute the hunks to a file.
func withFileHeader(diff, path string) string {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "), strings.HasPrefix(line, "--- "):
			return diff
		case strings.HasPrefix(line, "@@"):
			if path == "" {
				path = "file"
			}
			return fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", path, path, diff)
		}
	}
	return diff
}

func pickFile(files []*gitdiff.File, path string) *gitdiff.File {
	if len(files) == 0 {
		return nil
	}
	for _, f := range files {
		if f.NewName == path || f.OldName == path {
			return f
		}
	}
	return files[0]
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

func containsInt(xs []int, n int) bool {
	for _, x := range xs {
		if x == n {
			return true
		}
	}
	return false
}
