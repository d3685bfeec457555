package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/gatekeep/internal/diffunit"
	"github.com/dshills/gatekeep/internal/oracle"
)

// DefaultScore is recorded when the backend omits a usable score.
const DefaultScore = 5

const (
	minScore = 0
	maxScore = 10
)

// ParseKind tags the outcome of ParseResponse.
type ParseKind int

const (
	// Parsed means the text was a clean document.
	Parsed ParseKind = iota
	// Recovered means a result was produced but something was repaired.
	Recovered
	// Failed means no document could be found.
	Failed
)

func (k ParseKind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case Recovered:
		return "recovered"
	default:
		return "failed"
	}
}

// ParseOutcome is the result of parsing one response. Result is meaningful
// unless Kind is Failed, in which case Err wraps oracle.ErrMalformedOutput.
type ParseOutcome struct {
	Kind     ParseKind
	Result   ReviewResult
	Warnings []string
	Err      error
}

var (
	errNotDocument      = errors.New("object has none of issues, summary, score")
	errIssuesNotArray   = errors.New("issues is not an array")
	errNothingExtracted = errors.New("no JSON object found in text")
)

// rawIssue accepts both the documented field names and the aliases some
// models emit.
type rawIssue struct {
	Category         string          `json:"category"`
	Type             string          `json:"type"`
	Severity         string          `json:"severity"`
	Line             json.RawMessage `json:"line"`
	LineNumber       json.RawMessage `json:"line_number"`
	Description      string          `json:"description"`
	Message          string          `json:"message"`
	Suggestion       string          `json:"suggestion"`
	CodeSnippet      string          `json:"codeSnippet"`
	CodeSnippetSnake string          `json:"code_snippet"`
}

// ParseResponse converts raw backend text into a ReviewResult for u. It
// tries the whole text as a document first and falls back to the first
// embedded document. Individual malformed issues are dropped and counted,
// never fatal.
func ParseResponse(text string, u diffunit.Unit) ParseOutcome {
	var warnings []string

	doc, err := decodeDocument([]byte(strings.TrimSpace(text)))
	if err != nil {
		raw, ok := ExtractDocument(text)
		if !ok {
			return failed(err)
		}
		doc, err = decodeDocument([]byte(raw))
		if err != nil {
			return failed(err)
		}
		warnings = append(warnings, "document extracted from surrounding text")
	}

	result, w := buildResult(doc, u)
	warnings = append(warnings, w...)
	result.Warnings = warnings

	kind := Parsed
	if len(warnings) > 0 {
		kind = Recovered
	}
	return ParseOutcome{Kind: kind, Result: result, Warnings: warnings}
}

func failed(err error) ParseOutcome {
	return ParseOutcome{Kind: Failed, Err: fmt.Errorf("%w: %v", oracle.ErrMalformedOutput, err)}
}

// ExtractDocument returns the first well-formed JSON object in text that has
// at least one of the issues, summary or score keys. Code fences and
// surrounding prose are ignored.
func ExtractDocument(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var probe map[string]json.RawMessage
		if err := dec.Decode(&probe); err != nil {
			continue
		}
		if !hasDocumentKey(probe) {
			continue
		}
		return text[i : i+int(dec.InputOffset())], true
	}
	return "", false
}

func hasDocumentKey(m map[string]json.RawMessage) bool {
	for _, k := range []string{"issues", "summary", "score"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// decodeDocument accepts an object with review keys, or a bare issues array.
func decodeDocument(data []byte) (map[string]json.RawMessage, error) {
	if len(data) == 0 {
		return nil, errNothingExtracted
	}
	if data[0] == '[' {
		var issues []json.RawMessage
		if err := json.Unmarshal(data, &issues); err != nil {
			return nil, err
		}
		return map[string]json.RawMessage{"issues": data}, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if !hasDocumentKey(doc) {
		return nil, errNotDocument
	}
	if raw, ok := doc["issues"]; ok && !isNull(raw) {
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '[' {
			return nil, errIssuesNotArray
		}
	}
	return doc, nil
}

func buildResult(doc map[string]json.RawMessage, u diffunit.Unit) (ReviewResult, []string) {
	var warnings []string
	result := ReviewResult{
		FilePath: u.Path,
		Issues:   []CodeIssue{},
		Degraded: u.Degraded,
	}

	if raw, ok := doc["issues"]; ok && !isNull(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			warnings = append(warnings, fmt.Sprintf("issues is not an array, treated as empty: %v", err))
		}
		for i, item := range items {
			issue, w, ok := parseIssue(item, u)
			for _, msg := range w {
				warnings = append(warnings, fmt.Sprintf("issue %d: %s", i+1, msg))
			}
			if !ok {
				result.DroppedIssues++
				continue
			}
			result.Issues = append(result.Issues, issue)
		}
	}
	if result.DroppedIssues > 0 {
		warnings = append(warnings, fmt.Sprintf("%d malformed issue(s) dropped", result.DroppedIssues))
	}

	if raw, ok := doc["summary"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &result.Summary); err != nil {
			warnings = append(warnings, "summary is not a string")
		}
	}

	score, inferred, w := parseScore(doc["score"])
	result.Score = &score
	result.ScoreInferred = inferred
	if w != "" {
		warnings = append(warnings, w)
	}

	return result, warnings
}

func parseIssue(raw json.RawMessage, u diffunit.Unit) (CodeIssue, []string, bool) {
	var ri rawIssue
	if err := json.Unmarshal(raw, &ri); err != nil {
		return CodeIssue{}, []string{"malformed: " + err.Error()}, false
	}

	description := strings.TrimSpace(firstNonEmpty(ri.Description, ri.Message))
	if description == "" {
		return CodeIssue{}, []string{"missing description"}, false
	}

	var warnings []string
	catText := firstNonEmpty(ri.Category, ri.Type)
	cat, ok := ParseCategory(catText)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown category %q treated as %s", catText, cat))
	}
	sev, ok := ParseSeverity(ri.Severity)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown severity %q treated as %s", ri.Severity, sev))
	}

	issue := CodeIssue{
		Category:    cat,
		Severity:    sev,
		Description: description,
		Suggestion:  strings.TrimSpace(ri.Suggestion),
		CodeSnippet: firstNonEmpty(ri.CodeSnippet, ri.CodeSnippetSnake),
	}

	lineRaw := ri.Line
	if isNull(lineRaw) {
		lineRaw = ri.LineNumber
	}
	line, ok := parseLine(lineRaw)
	switch {
	case !ok:
		warnings = append(warnings, fmt.Sprintf("unreadable line %s treated as file-scoped", bytes.TrimSpace(lineRaw)))
	case line != nil && !u.ValidLine(*line):
		warnings = append(warnings, fmt.Sprintf("line %d outside the reviewed change treated as file-scoped", *line))
	default:
		issue.Line = line
	}

	return issue, warnings, true
}

// parseLine returns nil for an absent line. ok is false when a value is
// present but not a whole number.
func parseLine(raw json.RawMessage) (*int, bool) {
	if isNull(raw) {
		return nil, true
	}
	f, ok := number(raw)
	if !ok || f != math.Trunc(f) {
		return nil, false
	}
	n := int(f)
	return &n, true
}

// parseScore clamps to [0,10]. Missing or non-numeric scores fall back to
// DefaultScore with inferred set.
func parseScore(raw json.RawMessage) (score int, inferred bool, warning string) {
	if isNull(raw) {
		return DefaultScore, true, "score missing; defaulted to 5"
	}
	f, ok := number(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultScore, true, fmt.Sprintf("score %s is not numeric; defaulted to 5", bytes.TrimSpace(raw))
	}
	n := int(math.Round(f))
	switch {
	case n < minScore:
		return minScore, false, fmt.Sprintf("score %d clamped to %d", n, minScore)
	case n > maxScore:
		return maxScore, false, fmt.Sprintf("score %d clamped to %d", n, maxScore)
	}
	return n, false, ""
}

// number reads a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
