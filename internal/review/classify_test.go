package review

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/gatekeep/internal/diffunit"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want FileClass
	}{
		{"internal/review/pipeline.go", ClassCode},
		{"internal/config/config.go", ClassCode},
		{"internal/review/pipeline_test.go", ClassTest},
		{"tests/test_handler.py", ClassTest},
		{"web/src/app.spec.ts", ClassTest},
		{"test_utils.py", ClassTest},
		{"deploy/values.yaml", ClassConfig},
		{"Dockerfile", ClassConfig},
		{".env.local", ClassConfig},
		{"requirements-dev.txt", ClassConfig},
		{"testdata/app.yaml", ClassConfig},
		{"README.md", ClassDocs},
		{"LICENSE", ClassDocs},
		{"docs/guide.rst", ClassDocs},
		{"db/migrations/001_init.sql", ClassSQL},
		{"scripts/release.sh", ClassShell},
		{"web/index.html", ClassMarkup},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestWithClassFocus(t *testing.T) {
	if got := withClassFocus(nil, ClassCode); got != nil {
		t.Errorf("code class should leave nil rules alone, got %+v", got)
	}

	user := &Rules{Focus: []string{"Security", "naming"}, SeverityOverrides: map[string]string{"style": "low"}}
	got := withClassFocus(user, ClassConfig)
	want := []string{"Security", "naming", "exposed secrets", "style"}
	if !reflect.DeepEqual(got.Focus, want) {
		t.Errorf("Focus = %v, want %v", got.Focus, want)
	}
	if got.SeverityOverrides["style"] != "low" {
		t.Error("other rule fields should carry over")
	}
	if len(user.Focus) != 2 {
		t.Errorf("caller's rules were modified: %v", user.Focus)
	}
}

func TestBuildPrompt_ClassFocus(t *testing.T) {
	diff := "@@ -1,1 +1,2 @@\n line one\n+line two\n"
	tests := []struct {
		path  string
		kind  string
		focus string
	}{
		{"calc_test.go", "File kind: test", "Focus areas: test correctness, quality, style."},
		{"config/app.yaml", "File kind: config", "Focus areas: security, exposed secrets, style."},
		{"README.md", "File kind: docs", "Focus areas: documentation accuracy, style."},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			u := diffunit.Extract(diffunit.Change{Path: tt.path, Diff: diff}, 1)
			prompt := BuildPrompt(u, nil)
			for _, want := range []string{tt.kind, tt.focus} {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q\n%s", want, prompt)
				}
			}
		})
	}

	code := BuildPrompt(diffunit.Extract(diffunit.Change{Path: "calc.go", Diff: diff}, 1), nil)
	if strings.Contains(code, "File kind:") || strings.Contains(code, "Focus areas:") {
		t.Errorf("code files get the full review without a focus line:\n%s", code)
	}
}
