package review

import "strings"

// Severity represents the severity level of an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity coerces a model-supplied severity case-insensitively. "info"
// maps to Low. Unknown values map to Medium and ok is false.
func ParseSeverity(s string) (sev Severity, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "blocker":
		return SeverityCritical, true
	case "high", "major":
		return SeverityHigh, true
	case "medium", "moderate":
		return SeverityMedium, true
	case "low", "minor", "info", "informational":
		return SeverityLow, true
	default:
		return SeverityMedium, false
	}
}

// Category represents the type of issue.
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryBug         Category = "bug"
	CategoryQuality     Category = "quality"
	CategoryPerformance Category = "performance"
	CategoryStyle       Category = "style"
)

// ParseCategory coerces a model-supplied category case-insensitively.
// Unknown values map to Quality and ok is false.
func ParseCategory(s string) (cat Category, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "security":
		return CategorySecurity, true
	case "bug", "correctness":
		return CategoryBug, true
	case "quality", "maintainability", "documentation", "docs", "testing":
		return CategoryQuality, true
	case "performance", "perf":
		return CategoryPerformance, true
	case "style", "formatting":
		return CategoryStyle, true
	default:
		return CategoryQuality, false
	}
}

// CodeIssue is a single validated finding. Line is nil for file-scoped issues.
type CodeIssue struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Line        *int     `json:"line,omitempty"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	CodeSnippet string   `json:"codeSnippet,omitempty"`
}

// FailureKind explains why a file has no review.
type FailureKind string

const (
	FailureMalformedOutput    FailureKind = "malformed_output"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureCancelled          FailureKind = "cancelled"
)

// ReviewResult is the parsed review of one file. Issues keep the order the
// backend reported them in.
type ReviewResult struct {
	FilePath      string      `json:"filePath"`
	Issues        []CodeIssue `json:"issues"`
	Summary       string      `json:"summary"`
	Score         *int        `json:"score,omitempty"`
	ScoreInferred bool        `json:"scoreInferred,omitempty"`

	// DroppedIssues counts malformed issues discarded during parsing.
	DroppedIssues int      `json:"droppedIssues,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	// Degraded is set when the diff fell back to whole-file mode.
	Degraded bool `json:"degraded,omitempty"`

	Skipped    bool        `json:"skipped,omitempty"`
	SkipReason string      `json:"skipReason,omitempty"`
	Failure    FailureKind `json:"failure,omitempty"`
	Attempts   int         `json:"attempts,omitempty"`
}

// Reviewed reports whether the file received a full review.
func (r ReviewResult) Reviewed() bool {
	return r.Failure == "" && !r.Skipped
}

func (r ReviewResult) countSeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Status is the commit-level decision.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusWarnings Status = "warnings"
	StatusFailed   Status = "failed"
)

// Verdict is the terminal artifact of one pipeline run. PerFile follows
// submission order.
type Verdict struct {
	Status  Status         `json:"status"`
	PerFile []ReviewResult `json:"perFile"`
}

// CriticalCount returns the number of critical issues across all files.
func (v *Verdict) CriticalCount() int { return v.count(SeverityCritical) }

// HighCount returns the number of high issues across all files.
func (v *Verdict) HighCount() int { return v.count(SeverityHigh) }

func (v *Verdict) count(s Severity) int {
	n := 0
	for _, r := range v.PerFile {
		n += r.countSeverity(s)
	}
	return n
}

// FailedCount returns the number of files that could not be reviewed.
func (v *Verdict) FailedCount() int {
	n := 0
	for _, r := range v.PerFile {
		if r.Failure != "" {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of binary or content-free files.
func (v *Verdict) SkippedCount() int {
	n := 0
	for _, r := range v.PerFile {
		if r.Skipped {
			n++
		}
	}
	return n
}

// Issues returns every issue with the path it belongs to, in report order.
func (v *Verdict) Issues() []FileIssue {
	var out []FileIssue
	for _, r := range v.PerFile {
		for _, issue := range r.Issues {
			out = append(out, FileIssue{Path: r.FilePath, CodeIssue: issue})
		}
	}
	return out
}

// FileIssue pairs an issue with its file for flat presentation.
type FileIssue struct {
	Path string
	CodeIssue
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode          string   `json:"mode"`
	Backend       string   `json:"backend"`
	Model         string   `json:"model"`
	PathsIncluded []string `json:"pathsIncluded,omitempty"`
	PathsExcluded []string `json:"pathsExcluded,omitempty"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Summary provides an overview of a verdict.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity,omitempty"`
	FilesReviewed   int            `json:"filesReviewed"`
	FilesFailed     int            `json:"filesFailed"`
	FilesSkipped    int            `json:"filesSkipped"`
}

// Timing contains performance metrics.
type Timing struct {
	GitMs   int64 `json:"gitMs"`
	LLMMs   int64 `json:"llmMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report wraps a Verdict with run metadata for presentation.
type Report struct {
	Tool    string    `json:"tool"`
	Version string    `json:"version"`
	RunID   string    `json:"runId"`
	Repo    RepoInfo  `json:"repo"`
	Inputs  InputInfo `json:"inputs"`
	Summary Summary   `json:"summary"`
	Verdict *Verdict  `json:"verdict"`
	Timing  Timing    `json:"timing"`
}

// ComputeSummary derives counts from a verdict.
func ComputeSummary(v *Verdict) Summary {
	var s Summary
	if v == nil {
		return s
	}
	for _, r := range v.PerFile {
		switch {
		case r.Skipped:
			s.FilesSkipped++
		case r.Failure != "":
			s.FilesFailed++
		default:
			s.FilesReviewed++
		}
		for _, issue := range r.Issues {
			switch issue.Severity {
			case SeverityCritical:
				s.Counts.Critical++
			case SeverityHigh:
				s.Counts.High++
			case SeverityMedium:
				s.Counts.Medium++
			case SeverityLow:
				s.Counts.Low++
			}
			if SeverityRank(issue.Severity) > SeverityRank(s.HighestSeverity) {
				s.HighestSeverity = issue.Severity
			}
		}
	}
	return s
}
