package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/gatekeep/internal/review"
)

// TextWriter outputs a human-readable text report. Colors are applied only
// when w is a terminal that supports them.
type TextWriter struct{}

type textStyles struct {
	bold     lipgloss.Style
	dim      lipgloss.Style
	passed   lipgloss.Style
	warnings lipgloss.Style
	failed   lipgloss.Style
	severity map[review.Severity]lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		bold:     r.NewStyle().Bold(true),
		dim:      r.NewStyle().Foreground(lipgloss.Color("#6272a4")),
		passed:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#50fa7b")),
		warnings: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#f1fa8c")),
		failed:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555")),
		severity: map[review.Severity]lipgloss.Style{
			review.SeverityCritical: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555")),
			review.SeverityHigh:     r.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
			review.SeverityMedium:   r.NewStyle().Foreground(lipgloss.Color("#f1fa8c")),
			review.SeverityLow:      r.NewStyle().Foreground(lipgloss.Color("#8be9fd")),
		},
	}
}

func (s textStyles) status(st review.Status) string {
	label := strings.ToUpper(string(st))
	switch st {
	case review.StatusPassed:
		return s.passed.Render(label)
	case review.StatusWarnings:
		return s.warnings.Render(label)
	default:
		return s.failed.Render(label)
	}
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	st := newTextStyles(w)

	ew.printf("%s — %s\n", st.bold.Render("Gatekeep Review"), report.Inputs.Mode)
	if report.Inputs.Backend != "" {
		ew.printf("Backend: %s (%s)\n", report.Inputs.Backend, report.Inputs.Model)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))

	v := report.Verdict
	if v == nil {
		ew.println("No verdict.")
		return ew.err
	}

	counts := report.Summary.Counts
	total := counts.Critical + counts.High + counts.Medium + counts.Low
	ew.printf("Verdict: %s\n", st.status(v.Status))
	ew.printf("Issues: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d high, %d medium, %d low)",
			counts.Critical, counts.High, counts.Medium, counts.Low)
	}
	ew.println("")
	ew.printf("Files: %d reviewed, %d not reviewed, %d skipped\n",
		report.Summary.FilesReviewed, report.Summary.FilesFailed, report.Summary.FilesSkipped)
	ew.println(strings.Repeat("─", 60))

	if len(v.PerFile) == 0 {
		ew.println("\nNothing to review.")
		return ew.err
	}

	for _, r := range v.PerFile {
		writeFileResult(ew, st, r)
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("%s\n", st.dim.Render(fmt.Sprintf("Completed in %dms (git: %dms, LLM: %dms)",
		report.Timing.TotalMs, report.Timing.GitMs, report.Timing.LLMMs)))

	return ew.err
}

func writeFileResult(ew *errWriter, st textStyles, r review.ReviewResult) {
	switch {
	case r.Skipped:
		ew.printf("\n%s  %s\n", r.FilePath, st.dim.Render("skipped: "+r.SkipReason))
		return
	case r.Failure != "":
		ew.printf("\n%s  %s\n", st.bold.Render(r.FilePath), st.warnings.Render("NOT REVIEWED"))
		for _, line := range wrapText(r.Summary, 70) {
			ew.printf("    %s\n", line)
		}
		return
	}

	score := "score ?"
	if r.Score != nil {
		score = fmt.Sprintf("score %d/10", *r.Score)
		if r.ScoreInferred {
			score += " (inferred)"
		}
	}
	ew.printf("\n%s  %s\n", st.bold.Render(r.FilePath), st.dim.Render(score))
	if r.Summary != "" {
		for _, line := range wrapText(r.Summary, 70) {
			ew.printf("  %s\n", line)
		}
	}

	if len(r.Issues) == 0 {
		ew.println("  No issues found.")
	}
	for _, issue := range r.Issues {
		sev := strings.ToUpper(string(issue.Severity))
		if style, ok := st.severity[issue.Severity]; ok {
			sev = style.Render(sev)
		}
		loc := "file"
		if issue.Line != nil {
			loc = fmt.Sprintf("line %d", *issue.Line)
		}
		ew.printf("\n  %s %s  %s | %s\n", severityIcon(issue.Severity), sev, issue.Category, loc)
		for _, line := range wrapText(issue.Description, 70) {
			ew.printf("    %s\n", line)
		}
		if issue.Suggestion != "" {
			ew.println("  Suggestion:")
			for _, line := range wrapText(issue.Suggestion, 70) {
				ew.printf("    %s\n", line)
			}
		}
	}

	for _, warn := range r.Warnings {
		ew.printf("  %s\n", st.dim.Render("note: "+warn))
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
