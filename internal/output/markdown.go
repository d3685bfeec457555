package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/gatekeep/internal/review"
)

// MarkdownWriter outputs a markdown report suitable for a PR comment or a
// commit note.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	counts := report.Summary.Counts
	total := counts.Critical + counts.High + counts.Medium + counts.Low

	ew.printf("## Gatekeep Review\n\n")

	if report.Verdict != nil {
		ew.printf("**Verdict:** %s %s\n\n", mdStatusIcon(report.Verdict.Status), strings.ToUpper(string(report.Verdict.Status)))
	}

	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Critical | %d    |\n", counts.Critical)
	ew.printf("| High     | %d    |\n", counts.High)
	ew.printf("| Medium   | %d    |\n", counts.Medium)
	ew.printf("| Low      | %d    |\n", counts.Low)
	ew.printf("| **Total** | **%d** |\n\n", total)

	v := report.Verdict
	if v == nil {
		return ew.err
	}

	if failed := failedFiles(v); len(failed) > 0 {
		ew.printf("### :warning: Not reviewed (%d)\n\n", len(failed))
		for _, r := range failed {
			ew.printf("- `%s`: %s\n", r.FilePath, r.Summary)
		}
		ew.printf("\n")
	}

	if total == 0 {
		ew.println("No issues found. :white_check_mark:")
	}

	grouped := groupBySeverity(v.Issues())
	for _, sev := range []review.Severity{review.SeverityCritical, review.SeverityHigh, review.SeverityMedium, review.SeverityLow} {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(issues))

		for _, issue := range issues {
			ew.printf("**`%s`** | %s\n\n", issueLocation(issue), issue.Category)
			ew.printf("%s\n\n", issue.Description)

			if issue.CodeSnippet != "" {
				ew.printf("```%s\n%s\n```\n\n", review.FenceLanguage(issue.Path), strings.TrimRight(issue.CodeSnippet, "\n"))
			}

			if issue.Suggestion != "" {
				ew.printf("**Suggestion:**\n\n")
				if looksLikeCode(issue.Suggestion) {
					ew.printf("```%s\n%s\n```\n\n", review.FenceLanguage(issue.Path), issue.Suggestion)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(issue.Suggestion, "\n", "\n> "))
				}
			}

			ew.printf("---\n\n")
		}

		ew.printf("</details>\n\n")
	}

	if skipped := v.SkippedCount(); skipped > 0 {
		ew.printf("*Skipped %d file(s):", skipped)
		for _, r := range v.PerFile {
			if r.Skipped {
				ew.printf(" `%s` (%s)", r.FilePath, r.SkipReason)
			}
		}
		ew.printf("*\n\n")
	}

	ew.printf("*Reviewed in %dms (git: %dms, LLM: %dms)*\n",
		report.Timing.TotalMs, report.Timing.GitMs, report.Timing.LLMMs)

	return ew.err
}

// groupBySeverity keeps report order within each severity.
func groupBySeverity(issues []review.FileIssue) map[review.Severity][]review.FileIssue {
	m := make(map[review.Severity][]review.FileIssue)
	for _, issue := range issues {
		m[issue.Severity] = append(m[issue.Severity], issue)
	}
	return m
}

func failedFiles(v *review.Verdict) []review.ReviewResult {
	var out []review.ReviewResult
	for _, r := range v.PerFile {
		if r.Failure != "" {
			out = append(out, r)
		}
	}
	return out
}

func issueLocation(issue review.FileIssue) string {
	if issue.Line == nil {
		return issue.Path
	}
	return fmt.Sprintf("%s:%d", issue.Path, *issue.Line)
}

func mdStatusIcon(s review.Status) string {
	switch s {
	case review.StatusPassed:
		return ":white_check_mark:"
	case review.StatusWarnings:
		return ":warning:"
	default:
		return ":x:"
	}
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return ":no_entry:"
	case review.SeverityHigh:
		return ":red_circle:"
	case review.SeverityMedium:
		return ":orange_circle:"
	case review.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}
