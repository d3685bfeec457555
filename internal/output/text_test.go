package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextWriter_Passed(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, passedReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"staged", "Verdict: PASSED", "Issues: 0 total", "score 9/10", "No issues found"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("non-terminal output should not contain ANSI escapes")
	}
}

func TestTextWriter_WithIssues(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Verdict: WARNINGS",
		"Issues: 2 total (0 critical, 1 high, 0 medium, 1 low)",
		"Files: 1 reviewed, 1 not reviewed, 1 skipped",
		"[!!] HIGH  security | line 42",
		"[-] LOW  style | file",
		"Suggestion:",
		"main.go  NOT REVIEWED",
		"logo.png  skipped: binary file",
		"Completed in 50ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "db/query.go") > strings.Index(out, "main.go  NOT REVIEWED") {
		t.Error("files should be listed in verdict order")
	}
}

func TestTextWriter_NilVerdict(t *testing.T) {
	r := passedReport()
	r.Verdict = nil
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), "No verdict") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"short", 70, 1},
		{strings.Repeat("word ", 30), 20, 8},
		{"", 10, 1},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if len(got) != tt.want {
			t.Errorf("wrapText(%q, %d) = %d lines, want %d", tt.text, tt.width, len(got), tt.want)
		}
	}
}
