package review

import (
	"errors"
	"strings"
	"testing"
)

func withIssues(path string, sevs ...Severity) ReviewResult {
	r := ReviewResult{FilePath: path, Issues: []CodeIssue{}}
	for _, s := range sevs {
		r.Issues = append(r.Issues, CodeIssue{Category: CategoryBug, Severity: s, Description: "d"})
	}
	return r
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		results []ReviewResult
		want    Status
	}{
		{"empty", nil, StatusPassed},
		{"clean", []ReviewResult{withIssues("a.go")}, StatusPassed},
		{"low and medium only", []ReviewResult{withIssues("a.go", SeverityLow, SeverityMedium)}, StatusPassed},
		{"critical beats low", []ReviewResult{withIssues("a.go", SeverityCritical), withIssues("b.go", SeverityLow)}, StatusFailed},
		{"critical beats failure", []ReviewResult{
			Degenerate("a.go", FailureMalformedOutput, nil, 3),
			withIssues("b.go", SeverityCritical),
		}, StatusFailed},
		{"high", []ReviewResult{withIssues("a.go", SeverityHigh)}, StatusWarnings},
		{"failure only", []ReviewResult{withIssues("a.go"), Degenerate("b.go", FailureMalformedOutput, nil, 3)}, StatusWarnings},
		{"skipped does not count", []ReviewResult{Skip("logo.png", "binary file")}, StatusPassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Aggregate(tt.results)
			if v.Status != tt.want {
				t.Errorf("Status = %q, want %q", v.Status, tt.want)
			}
			if len(v.PerFile) != len(tt.results) {
				t.Errorf("PerFile len = %d, want %d", len(v.PerFile), len(tt.results))
			}
		})
	}
}

func TestAggregate_Counts(t *testing.T) {
	v := Aggregate([]ReviewResult{
		withIssues("a.go", SeverityCritical, SeverityHigh),
		withIssues("b.go", SeverityHigh),
		Degenerate("c.go", FailureBackendUnavailable, nil, 1),
		Skip("d.png", "binary file"),
	})
	if v.CriticalCount() != 1 || v.HighCount() != 2 || v.FailedCount() != 1 || v.SkippedCount() != 1 {
		t.Errorf("counts = %d/%d/%d/%d", v.CriticalCount(), v.HighCount(), v.FailedCount(), v.SkippedCount())
	}
}

func TestAggregate_PreservesOrder(t *testing.T) {
	v := Aggregate([]ReviewResult{withIssues("c.go"), withIssues("a.go"), withIssues("b.go")})
	got := []string{v.PerFile[0].FilePath, v.PerFile[1].FilePath, v.PerFile[2].FilePath}
	if strings.Join(got, ",") != "c.go,a.go,b.go" {
		t.Errorf("order = %v", got)
	}
}

func TestDegenerate(t *testing.T) {
	r := Degenerate("a.go", FailureMalformedOutput, errors.New("no JSON"), 3)
	if r.Reviewed() {
		t.Error("degenerate result should not count as reviewed")
	}
	if r.Issues == nil || len(r.Issues) != 0 {
		t.Errorf("Issues = %v, want empty non-nil", r.Issues)
	}
	if r.Score != nil {
		t.Error("degenerate result must not carry a score")
	}
	if !strings.Contains(r.Summary, "no JSON") {
		t.Errorf("Summary = %q", r.Summary)
	}
	if r.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", r.Attempts)
	}
}
