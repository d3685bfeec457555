package review

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/dshills/gatekeep/internal/diffunit"
)

// ReviewSchema is the JSON schema every response must satisfy. It is sent to
// backends that support constrained decoding and quoted in the prompt.
const ReviewSchema = `{
  "type": "object",
  "properties": {
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "category": {"type": "string", "enum": ["security", "bug", "quality", "performance", "style"]},
          "severity": {"type": "string", "enum": ["critical", "high", "medium", "low"]},
          "line": {"type": "integer"},
          "description": {"type": "string"},
          "suggestion": {"type": "string"},
          "codeSnippet": {"type": "string"}
        },
        "required": ["category", "severity", "description", "suggestion"]
      }
    },
    "summary": {"type": "string"},
    "score": {"type": "integer", "minimum": 0, "maximum": 10}
  },
  "required": ["issues", "summary", "score"]
}`

const systemPrompt = `You are a strict, expert code reviewer. You review the staged change to ONE file and report problems the change introduces or exposes.

Rules:
1. Only review the changed lines and the context shown. Do not comment on code you cannot see.
2. Look for security vulnerabilities, bugs, quality problems, performance problems, and style problems that hurt readability.
3. Be concise and actionable. Every issue must include a concrete suggestion.
4. Cite line numbers from the NEW version of the file in "line". Omit "line" when the issue concerns the whole file.
5. Rate severity as "critical", "high", "medium", or "low". Use "critical" only for defects that are exploitable or will break production.
6. Categorize each issue as one of: security, bug, quality, performance, style.
7. Give the change an overall quality score from 0 (unacceptable) to 10 (no problems).

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.

The object must have this exact structure:
{
  "issues": [
    {
      "category": "security|bug|quality|performance|style",
      "severity": "critical|high|medium|low",
      "line": 42,
      "description": "What is wrong and why it matters",
      "suggestion": "How to fix it",
      "codeSnippet": "optional offending code"
    }
  ],
  "summary": "One or two sentences about the change",
  "score": 8
}

If there are no issues, respond with an empty issues array.`

const strictPreamble = `Your previous reply could not be used. Reply with exactly one JSON object that validates against this JSON schema and nothing else: no prose, no code fences.

Schema:
`

// SystemPrompt returns the system prompt for the backend.
func SystemPrompt() string {
	return systemPrompt
}

// SchemaJSON returns ReviewSchema as raw JSON.
func SchemaJSON() json.RawMessage {
	return json.RawMessage(ReviewSchema)
}

// BuildPrompt renders a unit into the user prompt. The output depends only on
// its inputs.
func BuildPrompt(u diffunit.Unit, rules *Rules) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review the staged change to %s.\n\n", u.Path)

	if lang := Language(u.Path); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	class := Classify(u.Path)
	if class != ClassCode {
		fmt.Fprintf(&b, "File kind: %s\n", class)
	}
	switch {
	case u.IsNew:
		b.WriteString("Status: new file\n")
	case u.IsRenamed:
		fmt.Fprintf(&b, "Status: renamed from %s\n", u.OldPath)
	}

	if u.Degraded {
		b.WriteString("Line numbers could not be determined precisely; treat the whole file as changed.\n")
	} else {
		if runs := formatRuns(u.AddedLines); runs != "" {
			fmt.Fprintf(&b, "Added lines (new file): %s\n", runs)
		}
		if runs := formatRuns(u.RemovedLines); runs != "" {
			fmt.Fprintf(&b, "Removed lines (old file): %s\n", runs)
		}
	}

	if section := BuildRulesPromptSection(withClassFocus(rules, class)); section != "" {
		b.WriteString(section)
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(strings.TrimRight(u.DiffText, "\n"))
	b.WriteString("\n--- END DIFF ---\n")

	if lines := u.WindowLines(); len(lines) > 0 {
		width := len(fmt.Sprint(lines[len(lines)-1]))
		b.WriteString("\n--- BEGIN CONTEXT (new file) ---\n")
		prev := 0
		for _, n := range lines {
			if prev != 0 && n != prev+1 {
				b.WriteString("...\n")
			}
			fmt.Fprintf(&b, "%*d | %s\n", width, n, u.ContextWindow[n])
			prev = n
		}
		b.WriteString("--- END CONTEXT ---\n")
	}

	return b.String()
}

// BuildStrictPrompt is the retry variant of BuildPrompt that restates the
// schema before the original request.
func BuildStrictPrompt(u diffunit.Unit, rules *Rules) string {
	return strictPreamble + ReviewSchema + "\n\n" + BuildPrompt(u, rules)
}

// Language returns the display name of the language detected from path, or
// "" when unknown.
func Language(path string) string {
	if l := lexerFor(path); l != nil {
		return l.Config().Name
	}
	return ""
}

// FenceLanguage returns a short identifier suitable for a markdown code fence.
func FenceLanguage(path string) string {
	l := lexerFor(path)
	if l == nil {
		return ""
	}
	if aliases := l.Config().Aliases; len(aliases) > 0 {
		return aliases[0]
	}
	return strings.ToLower(l.Config().Name)
}

func lexerFor(path string) chroma.Lexer {
	base := filepath.Base(path)
	lexer := lexers.Match(base)
	if lexer == nil {
		if ext := filepath.Ext(base); ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	return lexer
}

func formatRuns(lines []int) string {
	runs := diffunit.Runs(lines)
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		if r[0] == r[1] {
			parts = append(parts, fmt.Sprint(r[0]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r[0], r[1]))
		}
	}
	return strings.Join(parts, ", ")
}
