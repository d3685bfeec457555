package review

import "github.com/google/uuid"

// ToolName identifies reports produced by this module.
const ToolName = "gatekeep"

// BuildReport wraps a verdict with run metadata. Every report gets a fresh
// run id.
func BuildReport(version string, v *Verdict, repo RepoInfo, inputs InputInfo, timing Timing) *Report {
	return &Report{
		Tool:    ToolName,
		Version: version,
		RunID:   uuid.NewString(),
		Repo:    repo,
		Inputs:  inputs,
		Summary: ComputeSummary(v),
		Verdict: v,
		Timing:  timing,
	}
}
