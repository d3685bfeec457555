package review

import (
	"path"
	"strings"
)

// FileClass is the broad kind of a file, used to steer what the review
// prompt asks the model to prioritize.
type FileClass string

const (
	ClassCode   FileClass = "code"
	ClassTest   FileClass = "test"
	ClassConfig FileClass = "config"
	ClassDocs   FileClass = "docs"
	ClassSQL    FileClass = "sql"
	ClassShell  FileClass = "shell"
	ClassMarkup FileClass = "markup"
)

var classFocus = map[FileClass][]string{
	ClassTest:   {"test correctness", "quality", "style"},
	ClassConfig: {"security", "exposed secrets", "style"},
	ClassDocs:   {"documentation accuracy", "style"},
	ClassSQL:    {"security", "quality", "performance", "style"},
	ClassShell:  {"security", "quality", "style"},
	ClassMarkup: {"quality", "style"},
}

var (
	docExts    = map[string]bool{".md": true, ".rst": true, ".txt": true, ".adoc": true}
	markupExts = map[string]bool{".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true}
	shellExts  = map[string]bool{".sh": true, ".bash": true, ".zsh": true}

	configExts = map[string]bool{
		".json": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
		".cfg": true, ".conf": true, ".env": true, ".xml": true, ".properties": true,
	}

	docNames    = []string{"readme", "changelog", "license", "contributing", "authors"}
	configNames = []string{"dockerfile", "docker-compose", "makefile", ".env", "requirements", ".gitlab-ci", "jenkinsfile"}
	testMarkers = []string{"_test.", ".test.", ".spec.", "tests/", "/test/", "__tests__/"}
)

// Classify buckets a repository path by name and extension. Documentation
// wins over config, and config over tests, so fixtures such as
// testdata/app.yaml count as config.
func Classify(p string) FileClass {
	lower := strings.ToLower(p)
	base := path.Base(lower)
	ext := path.Ext(base)

	switch {
	case docExts[ext] && !strings.HasPrefix(base, "requirements"),
		ext == "" && hasAnyPrefix(base, docNames):
		return ClassDocs
	case configExts[ext], hasAnyPrefix(base, configNames):
		return ClassConfig
	case isTestPath(lower, base):
		return ClassTest
	case ext == ".sql":
		return ClassSQL
	case shellExts[ext]:
		return ClassShell
	case markupExts[ext]:
		return ClassMarkup
	}
	return ClassCode
}

// Focus returns the areas the prompt prioritizes for this class. Code gets
// none and is reviewed across every category.
func (c FileClass) Focus() []string {
	return classFocus[c]
}

func isTestPath(lower, base string) bool {
	if strings.HasPrefix(base, "test_") || strings.HasPrefix(lower, "test/") || strings.HasPrefix(lower, "tests/") {
		return true
	}
	for _, m := range testMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// withClassFocus returns rules whose focus list also carries the class's
// areas. User focus stays first; duplicates are dropped.
func withClassFocus(rules *Rules, class FileClass) *Rules {
	extra := class.Focus()
	if len(extra) == 0 {
		return rules
	}
	var merged Rules
	if rules != nil {
		merged = *rules
	}
	seen := make(map[string]bool)
	focus := make([]string, 0, len(merged.Focus)+len(extra))
	for _, f := range append(append([]string(nil), merged.Focus...), extra...) {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		focus = append(focus, f)
	}
	merged.Focus = focus
	return &merged
}
