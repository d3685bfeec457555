package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/gatekeep/internal/review"
)

// SARIFWriter outputs issues in SARIF v2.1.0 format. Files that could not be
// reviewed are reported as tool notifications.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool         `json:"tool"`
	Results           []sarifResult     `json:"results"`
	Invocations       []sarifInvocation `json:"invocations,omitempty"`
	AutomationDetails *sarifAutomation  `json:"automationDetails,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifAutomation struct {
	GUID string `json:"guid,omitempty"`
}

// sarifCategories fixes the rule order so that output is stable.
var sarifCategories = []review.Category{
	review.CategorySecurity,
	review.CategoryBug,
	review.CategoryPerformance,
	review.CategoryQuality,
	review.CategoryStyle,
}

func buildSARIF(report *review.Report) sarifLog {
	run := sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:           report.Tool,
				Version:        report.Version,
				InformationURI: "https://github.com/dshills/gatekeep",
				Rules:          []sarifRule{},
			},
		},
		Results: []sarifResult{},
	}
	if report.RunID != "" {
		run.AutomationDetails = &sarifAutomation{GUID: report.RunID}
	}

	v := report.Verdict
	if v == nil {
		return newSARIFLog(run)
	}

	used := make(map[review.Category]bool)
	for _, issue := range v.Issues() {
		used[issue.Category] = true

		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: issue.Path},
		}}
		if issue.Line != nil {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: *issue.Line}
		}

		result := sarifResult{
			RuleID:    ruleID(issue.Category),
			Level:     severityToLevel(issue.Severity),
			Message:   sarifMessage{Text: issue.Description},
			Locations: []sarifLocation{loc},
		}
		if issue.Suggestion != "" {
			result.Fixes = append(result.Fixes, sarifFix{
				Description: sarifMessage{Text: issue.Suggestion},
			})
		}
		run.Results = append(run.Results, result)
	}

	for _, cat := range sarifCategories {
		if !used[cat] {
			continue
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{
			ID:               ruleID(cat),
			Name:             string(cat),
			ShortDescription: sarifMessage{Text: fmt.Sprintf("%s issue reported by review", cat)},
			DefaultConfig:    sarifDefaultConfig{Level: "warning"},
		})
	}

	inv := sarifInvocation{ExecutionSuccessful: v.FailedCount() == 0}
	for _, r := range v.PerFile {
		if r.Failure == "" {
			continue
		}
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarifNotification{
			Level:   "warning",
			Message: sarifMessage{Text: r.Summary},
			Locations: []sarifLocation{{PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: r.FilePath},
			}}},
		})
	}
	run.Invocations = []sarifInvocation{inv}

	return newSARIFLog(run)
}

func newSARIFLog(run sarifRun) sarifLog {
	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs:    []sarifRun{run},
	}
}

// severityToLevel maps issue severity to SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityCritical, review.SeverityHigh:
		return "error"
	case review.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func ruleID(c review.Category) string {
	return "gatekeep/" + string(c)
}
