package review

import "testing"

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityLow, 1},
		{SeverityMedium, 2},
		{SeverityHigh, 3},
		{SeverityCritical, 4},
		{Severity("unknown"), 0},
	}
	for _, tt := range tests {
		got := SeverityRank(tt.severity)
		if got != tt.want {
			t.Errorf("SeverityRank(%q) = %d, want %d", tt.severity, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in     string
		want   Severity
		wantOK bool
	}{
		{"critical", SeverityCritical, true},
		{"CRITICAL", SeverityCritical, true},
		{" High ", SeverityHigh, true},
		{"medium", SeverityMedium, true},
		{"low", SeverityLow, true},
		{"info", SeverityLow, true},
		{"catastrophic", SeverityMedium, false},
		{"", SeverityMedium, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseSeverity(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"security", CategorySecurity, true},
		{"Bug", CategoryBug, true},
		{"correctness", CategoryBug, true},
		{"PERFORMANCE", CategoryPerformance, true},
		{"style", CategoryStyle, true},
		{"documentation", CategoryQuality, true},
		{"vibes", CategoryQuality, false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestComputeSummary(t *testing.T) {
	v := &Verdict{PerFile: []ReviewResult{
		{FilePath: "a.go", Issues: []CodeIssue{{Severity: SeverityCritical}, {Severity: SeverityLow}}},
		{FilePath: "b.go", Issues: []CodeIssue{{Severity: SeverityHigh}, {Severity: SeverityMedium}}},
		Degenerate("c.go", FailureMalformedOutput, nil, 3),
		Skip("logo.png", "binary file"),
	}}

	s := ComputeSummary(v)
	if s.Counts != (SeverityCounts{Critical: 1, High: 1, Medium: 1, Low: 1}) {
		t.Errorf("Counts = %+v", s.Counts)
	}
	if s.HighestSeverity != SeverityCritical {
		t.Errorf("HighestSeverity = %q, want critical", s.HighestSeverity)
	}
	if s.FilesReviewed != 2 || s.FilesFailed != 1 || s.FilesSkipped != 1 {
		t.Errorf("file counts = %d/%d/%d", s.FilesReviewed, s.FilesFailed, s.FilesSkipped)
	}
}

func TestComputeSummary_Nil(t *testing.T) {
	if s := ComputeSummary(nil); s != (Summary{}) {
		t.Errorf("ComputeSummary(nil) = %+v", s)
	}
}

func TestVerdictIssues(t *testing.T) {
	v := &Verdict{PerFile: []ReviewResult{
		{FilePath: "a.go", Issues: []CodeIssue{{Description: "one"}, {Description: "two"}}},
		{FilePath: "b.go", Issues: []CodeIssue{{Description: "three"}}},
	}}
	issues := v.Issues()
	if len(issues) != 3 {
		t.Fatalf("len = %d, want 3", len(issues))
	}
	if issues[2].Path != "b.go" || issues[2].Description != "three" {
		t.Errorf("issues[2] = %+v", issues[2])
	}
}

func TestBuildReport(t *testing.T) {
	v := Aggregate([]ReviewResult{{FilePath: "a.go", Issues: []CodeIssue{{Severity: SeverityHigh, Category: CategoryBug, Description: "x"}}}})
	a := BuildReport("1.0.0", v, RepoInfo{Branch: "main"}, InputInfo{Mode: "staged"}, Timing{TotalMs: 5})
	b := BuildReport("1.0.0", v, RepoInfo{Branch: "main"}, InputInfo{Mode: "staged"}, Timing{TotalMs: 5})

	if a.Tool != ToolName || a.Version != "1.0.0" || a.Verdict != v {
		t.Errorf("report = %+v", a)
	}
	if a.Summary.Counts.High != 1 || a.Summary.HighestSeverity != SeverityHigh {
		t.Errorf("Summary = %+v", a.Summary)
	}
	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("run ids should be unique: %q %q", a.RunID, b.RunID)
	}
}
