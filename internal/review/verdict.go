package review

import "fmt"

// Aggregate combines per-file results into one Verdict. Order is preserved.
//
// Decision order: any critical issue fails the run; otherwise any high issue
// or any file that could not be reviewed yields warnings; otherwise passed.
// Skipped files never affect the status.
func Aggregate(results []ReviewResult) *Verdict {
	v := &Verdict{
		Status:  StatusPassed,
		PerFile: append([]ReviewResult(nil), results...),
	}
	if v.PerFile == nil {
		v.PerFile = []ReviewResult{}
	}

	switch {
	case v.CriticalCount() > 0:
		v.Status = StatusFailed
	case v.HighCount() > 0:
		v.Status = StatusWarnings
	case v.FailedCount() > 0:
		v.Status = StatusWarnings
	}
	return v
}

// Degenerate builds the placeholder result recorded for a file that could not
// be reviewed. It carries no issues and no score.
func Degenerate(path string, kind FailureKind, err error, attempts int) ReviewResult {
	var summary string
	switch kind {
	case FailureCancelled:
		summary = "Not reviewed: run was cancelled"
	case FailureBackendUnavailable:
		summary = "Not reviewed: backend unavailable"
	default:
		summary = "Not reviewed: model output could not be parsed"
	}
	if err != nil {
		summary = fmt.Sprintf("%s (%v)", summary, err)
	}
	return ReviewResult{
		FilePath: path,
		Issues:   []CodeIssue{},
		Summary:  summary,
		Failure:  kind,
		Attempts: attempts,
	}
}

// Skip builds the result recorded for a file that is not sent for review.
func Skip(path, reason string) ReviewResult {
	return ReviewResult{
		FilePath:   path,
		Issues:     []CodeIssue{},
		Summary:    "Skipped: " + reason,
		Skipped:    true,
		SkipReason: reason,
	}
}
