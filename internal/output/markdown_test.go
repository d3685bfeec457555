package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarkdownWriter_Passed(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, passedReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"## Gatekeep Review", "**Verdict:** :white_check_mark: PASSED", "| **Total** | **0** |", "No issues found"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<details>") {
		t.Error("no severity sections expected for a clean report")
	}
}

func TestMarkdownWriter_WithIssues(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"**Verdict:** :warning: WARNINGS",
		"| High     | 1    |",
		"<summary>:red_circle: HIGH (1)</summary>",
		"<summary>:yellow_circle: LOW (1)</summary>",
		"**`db/query.go:42`** | security",
		"**`db/query.go`** | style",
		"```go\nq := ",
		"> Rename helpers consistently",
		"### :warning: Not reviewed (1)",
		"- `main.go`: Not reviewed",
		"`logo.png` (binary file)",
		"*Reviewed in 50ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "HIGH (1)") > strings.Index(out, "LOW (1)") {
		t.Error("higher severities should come first")
	}
}

func TestLooksLikeCode(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"if err != nil { return err }", true},
		{"Use parameterized queries", false},
		{"x := 42", true},
		{"def foo(): pass", true},
	}
	for _, tt := range tests {
		if got := looksLikeCode(tt.input); got != tt.want {
			t.Errorf("looksLikeCode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
