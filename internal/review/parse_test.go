package review

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/dshills/gatekeep/internal/diffunit"
	"github.com/dshills/gatekeep/internal/oracle"
)

const sampleDiff = `diff --git a/app/handler.py b/app/handler.py
--- a/app/handler.py
+++ b/app/handler.py
@@ -1,6 +1,7 @@
 import os
 
 def handle(req):
-    return os.system(req.cmd)
+    cmd = req.cmd
+    return os.system(cmd)
 
 # end
`

func sampleUnit(t *testing.T) diffunit.Unit {
	t.Helper()
	u := diffunit.Extract(diffunit.Change{Path: "app/handler.py", Diff: sampleDiff}, 3)
	if u.Degraded {
		t.Fatalf("sample diff degraded: %s", u.DegradedReason)
	}
	return u
}

func intPtr(n int) *int { return &n }

func TestParseResponse_RoundTrip(t *testing.T) {
	u := sampleUnit(t)
	prompt := BuildPrompt(u, nil)
	if !strings.Contains(prompt, "app/handler.py") {
		t.Fatal("prompt should name the file")
	}

	injected := []CodeIssue{
		{Category: CategorySecurity, Severity: SeverityCritical, Line: intPtr(5), Description: "Command injection via os.system", Suggestion: "Use subprocess with an argument list"},
		{Category: CategoryStyle, Severity: SeverityLow, Description: "Missing docstring", Suggestion: ""},
		{Category: CategoryBug, Severity: SeverityMedium, Line: intPtr(4), Description: "req.cmd may be None", Suggestion: "Validate input", CodeSnippet: "cmd = req.cmd"},
	}
	doc := map[string]any{"issues": injected, "summary": "Risky change", "score": 2}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	out := ParseResponse(string(data), u)
	if out.Kind != Parsed {
		t.Fatalf("Kind = %v, warnings %v, err %v", out.Kind, out.Warnings, out.Err)
	}
	if !sameIssues(out.Result.Issues, injected) {
		t.Errorf("issues = %+v, want %+v", out.Result.Issues, injected)
	}
	if out.Result.Summary != "Risky change" || *out.Result.Score != 2 || out.Result.ScoreInferred {
		t.Errorf("result = %+v", out.Result)
	}
	if out.Result.FilePath != "app/handler.py" {
		t.Errorf("FilePath = %q", out.Result.FilePath)
	}
}

func sameIssues(a, b []CodeIssue) bool {
	key := func(issues []CodeIssue) []string {
		out := make([]string, len(issues))
		for i, is := range issues {
			line := -1
			if is.Line != nil {
				line = *is.Line
			}
			out[i] = fmt.Sprintf("%s|%s|%d|%s|%s|%s", is.Category, is.Severity, line, is.Description, is.Suggestion, is.CodeSnippet)
		}
		sort.Strings(out)
		return out
	}
	return reflect.DeepEqual(key(a), key(b))
}

func TestParseResponse_ScoreClamping(t *testing.T) {
	u := sampleUnit(t)
	tests := []struct {
		score    string
		want     int
		inferred bool
	}{
		{"15", 10, false},
		{"-3", 0, false},
		{"7", 7, false},
		{"7.6", 8, false},
		{`"9"`, 9, false},
		{`"excellent"`, 5, true},
		{"null", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			text := fmt.Sprintf(`{"issues": [], "summary": "s", "score": %s}`, tt.score)
			out := ParseResponse(text, u)
			if out.Kind == Failed {
				t.Fatalf("unexpected failure: %v", out.Err)
			}
			if *out.Result.Score != tt.want || out.Result.ScoreInferred != tt.inferred {
				t.Errorf("score = %d inferred=%v, want %d inferred=%v", *out.Result.Score, out.Result.ScoreInferred, tt.want, tt.inferred)
			}
		})
	}
}

func TestParseResponse_MissingScore(t *testing.T) {
	out := ParseResponse(`{"issues": [{"category":"bug","severity":"high","description":"x","suggestion":"y"}], "summary": "s"}`, sampleUnit(t))
	if out.Kind != Recovered {
		t.Fatalf("Kind = %v, want recovered", out.Kind)
	}
	if *out.Result.Score != DefaultScore || !out.Result.ScoreInferred {
		t.Errorf("score = %d inferred=%v", *out.Result.Score, out.Result.ScoreInferred)
	}
	if len(out.Result.Issues) != 1 {
		t.Errorf("issues = %d, want 1", len(out.Result.Issues))
	}
}

func TestParseResponse_FallbackProse(t *testing.T) {
	text := "Here is the review:\n" +
		`{"issues": [{"category": "security", "severity": "critical", "line": 5, "description": "Command injection", "suggestion": "Use subprocess.run"}], "summary": "Dangerous", "score": 1}` +
		"\nHope this helps!"
	out := ParseResponse(text, sampleUnit(t))
	if out.Kind != Recovered {
		t.Fatalf("Kind = %v, err %v", out.Kind, out.Err)
	}
	if len(out.Result.Issues) != 1 || out.Result.Issues[0].Severity != SeverityCritical {
		t.Errorf("issues = %+v", out.Result.Issues)
	}
	if *out.Result.Score != 1 {
		t.Errorf("score = %d, want 1", *out.Result.Score)
	}
}

func TestParseResponse_CodeFence(t *testing.T) {
	text := "```json\n{\"issues\": [], \"summary\": \"fine\", \"score\": 9}\n```"
	out := ParseResponse(text, sampleUnit(t))
	if out.Kind == Failed {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Result.Summary != "fine" {
		t.Errorf("Summary = %q", out.Result.Summary)
	}
}

func TestParseResponse_DropsMalformedIssues(t *testing.T) {
	text := `{"issues": [
		{"category": "bug", "severity": "high", "description": "real bug", "suggestion": "fix"},
		{"category": "bug", "severity": "high", "description": "", "suggestion": "fix"},
		"not an object",
		{"category": "bug", "severity": "low", "description": 42}
	], "summary": "s", "score": 6}`
	out := ParseResponse(text, sampleUnit(t))
	if out.Kind != Recovered {
		t.Fatalf("Kind = %v, want recovered", out.Kind)
	}
	if len(out.Result.Issues) != 1 || out.Result.Issues[0].Description != "real bug" {
		t.Errorf("issues = %+v", out.Result.Issues)
	}
	if out.Result.DroppedIssues != 3 {
		t.Errorf("DroppedIssues = %d, want 3", out.Result.DroppedIssues)
	}
}

func TestParseResponse_CoercesEnumsAndAliases(t *testing.T) {
	text := `{"issues": [
		{"type": "SECURITY", "severity": "Info", "line_number": 4, "message": "uses aliases", "code_snippet": "cmd = req.cmd"},
		{"category": "architecture", "severity": "apocalyptic", "description": "unknown enums"}
	], "summary": "s", "score": 5}`
	out := ParseResponse(text, sampleUnit(t))
	if out.Kind == Failed {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	issues := out.Result.Issues
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(issues))
	}
	first := issues[0]
	if first.Category != CategorySecurity || first.Severity != SeverityLow || first.Line == nil || *first.Line != 4 {
		t.Errorf("first = %+v", first)
	}
	if first.Description != "uses aliases" || first.CodeSnippet != "cmd = req.cmd" {
		t.Errorf("first = %+v", first)
	}
	if issues[1].Category != CategoryQuality || issues[1].Severity != SeverityMedium {
		t.Errorf("second = %+v", issues[1])
	}
	if out.Kind != Recovered {
		t.Errorf("coercion of unknown enums should be reported, Kind = %v", out.Kind)
	}
}

func TestParseResponse_OutOfRangeLine(t *testing.T) {
	text := `{"issues": [{"category": "bug", "severity": "high", "line": 400, "description": "far away", "suggestion": "s"}], "summary": "s", "score": 5}`
	out := ParseResponse(text, sampleUnit(t))
	if out.Kind != Recovered {
		t.Fatalf("Kind = %v, want recovered", out.Kind)
	}
	if len(out.Result.Issues) != 1 {
		t.Fatalf("issue should be kept, got %d", len(out.Result.Issues))
	}
	if out.Result.Issues[0].Line != nil {
		t.Errorf("out-of-range line should become file-scoped, got %d", *out.Result.Issues[0].Line)
	}
}

func TestParseResponse_BareArray(t *testing.T) {
	out := ParseResponse(`[{"category": "bug", "severity": "high", "description": "d", "suggestion": "s"}]`, sampleUnit(t))
	if out.Kind == Failed {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if len(out.Result.Issues) != 1 || !out.Result.ScoreInferred {
		t.Errorf("result = %+v", out.Result)
	}
}

func TestParseResponse_Failed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose", "The code looks good to me."},
		{"unrelated object", `{"answer": 42}`},
		{"issues not array", `{"issues": "none", "summary": "s", "score": 5}`},
		{"truncated", `{"issues": [{"category": "bug"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseResponse(tt.text, sampleUnit(t))
			if out.Kind != Failed {
				t.Fatalf("Kind = %v, want failed", out.Kind)
			}
			if !oracle.IsMalformedOutput(out.Err) {
				t.Errorf("Err = %v, want malformed output", out.Err)
			}
		})
	}
}

func TestParseResponse_Deterministic(t *testing.T) {
	u := sampleUnit(t)
	text := "Sure!\n```\n{\"issues\": [{\"category\": \"odd\", \"severity\": \"high\", \"line\": 99, \"description\": \"d\"}], \"score\": 30}\n```"
	a := ParseResponse(text, u)
	b := ParseResponse(text, u)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("outcomes differ:\n%+v\n%+v", a, b)
	}
}

func TestExtractDocument(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"plain", `{"score": 1}`, `{"score": 1}`, true},
		{"prose around", `Result: {"summary": "x"} thanks`, `{"summary": "x"}`, true},
		{"skips unrelated object", `{"note": "hi"} then {"issues": []}`, `{"issues": []}`, true},
		{"braces in strings", `{"summary": "use {} carefully", "score": 3}`, `{"summary": "use {} carefully", "score": 3}`, true},
		{"skips broken prefix", `{"issues": [ oops {"score": 2}`, `{"score": 2}`, true},
		{"none", "no json here", "", false},
		{"only unrelated", `{"a": 1}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDocument(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractDocument() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBuildResult_IssuesNotArray(t *testing.T) {
	doc := map[string]json.RawMessage{
		"issues":  json.RawMessage(`{"not": "an array"}`),
		"summary": json.RawMessage(`"ok"`),
		"score":   json.RawMessage(`7`),
	}
	result, warnings := buildResult(doc, sampleUnit(t))
	if len(result.Issues) != 0 || result.DroppedIssues != 0 {
		t.Errorf("issues = %v, dropped = %d; want none", result.Issues, result.DroppedIssues)
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0], "not an array") {
		t.Errorf("warnings = %v, want a shape warning", warnings)
	}
}
