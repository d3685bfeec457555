package output

import "github.com/dshills/gatekeep/internal/review"

func intPtr(n int) *int { return &n }

// sampleReport returns a report with one reviewed file carrying a high and a
// low issue, one file that could not be reviewed, and one skipped file.
func sampleReport() *review.Report {
	v := review.Aggregate([]review.ReviewResult{
		{
			FilePath: "db/query.go",
			Summary:  "Query building needs attention.",
			Score:    intPtr(4),
			Issues: []review.CodeIssue{
				{
					Category:    review.CategorySecurity,
					Severity:    review.SeverityHigh,
					Line:        intPtr(42),
					Description: "User input is concatenated into SQL",
					Suggestion:  "db.Query(\"SELECT * FROM t WHERE id = ?\", id)",
					CodeSnippet: "q := \"SELECT * FROM t WHERE id = \" + id",
				},
				{
					Category:    review.CategoryStyle,
					Severity:    review.SeverityLow,
					Description: "File has inconsistent naming",
					Suggestion:  "Rename helpers consistently",
				},
			},
		},
		review.Degenerate("main.go", review.FailureMalformedOutput, nil, 3),
		review.Skip("logo.png", "binary file"),
	})
	return review.BuildReport("1.0", v,
		review.RepoInfo{Root: "/tmp/repo", Head: "abc123", Branch: "main"},
		review.InputInfo{Mode: "staged", Backend: "ollama", Model: "qwen2.5-coder:7b"},
		review.Timing{GitMs: 3, LLMMs: 40, TotalMs: 50},
	)
}

func passedReport() *review.Report {
	v := review.Aggregate([]review.ReviewResult{{FilePath: "a.go", Summary: "fine", Score: intPtr(9), Issues: []review.CodeIssue{}}})
	return review.BuildReport("1.0", v, review.RepoInfo{}, review.InputInfo{Mode: "staged"}, review.Timing{})
}
