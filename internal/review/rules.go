package review

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules represents a rules pack loaded from --rules. YAML and JSON files are
// both accepted.
type Rules struct {
	Focus             []string          `yaml:"focus,omitempty" json:"focus,omitempty"`
	SeverityOverrides map[string]string `yaml:"severityOverrides,omitempty" json:"severityOverrides,omitempty"`
	Required          []RequiredCheck   `yaml:"required,omitempty" json:"required,omitempty"`
}

// RequiredCheck is a policy check that should always be enforced.
type RequiredCheck struct {
	ID   string `yaml:"id" json:"id"`
	Text string `yaml:"text" json:"text"`
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return &rules, nil
}

// Validate checks that every override names a known category and severity.
func (r *Rules) Validate() error {
	for cat, sev := range r.SeverityOverrides {
		if _, ok := ParseCategory(cat); !ok {
			return fmt.Errorf("unknown category in severityOverrides: %q", cat)
		}
		if _, ok := ParseSeverity(sev); !ok {
			return fmt.Errorf("unknown severity %q for category %q", sev, cat)
		}
	}
	return nil
}

// BuildRulesPromptSection returns additional prompt instructions derived from rules.
func BuildRulesPromptSection(rules *Rules) string {
	if rules == nil {
		return ""
	}

	var b strings.Builder

	if len(rules.Focus) > 0 {
		fmt.Fprintf(&b, "\nFocus areas: %s. Prioritize issues in these areas.\n",
			strings.Join(rules.Focus, ", "))
	}

	if len(rules.SeverityOverrides) > 0 {
		b.WriteString("\nSeverity policy:\n")
		cats := make([]string, 0, len(rules.SeverityOverrides))
		for cat := range rules.SeverityOverrides {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		for _, cat := range cats {
			fmt.Fprintf(&b, "- %s issues should be rated as %s severity.\n", cat, rules.SeverityOverrides[cat])
		}
	}

	if len(rules.Required) > 0 {
		b.WriteString("\nRequired checks (always evaluate these):\n")
		for _, req := range rules.Required {
			fmt.Fprintf(&b, "- [%s] %s\n", req.ID, req.Text)
		}
	}

	return b.String()
}

// ApplySeverityOverrides post-processes issues to enforce severity overrides from rules.
func ApplySeverityOverrides(issues []CodeIssue, rules *Rules) []CodeIssue {
	if rules == nil || len(rules.SeverityOverrides) == 0 {
		return issues
	}

	overrides := make(map[Category]Severity, len(rules.SeverityOverrides))
	for cat, sev := range rules.SeverityOverrides {
		c, _ := ParseCategory(cat)
		s, _ := ParseSeverity(sev)
		overrides[c] = s
	}
	for i := range issues {
		if override, ok := overrides[issues[i].Category]; ok {
			issues[i].Severity = override
		}
	}
	return issues
}
