package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/diffunit"
	"github.com/dshills/gatekeep/internal/gitctx"
	"github.com/dshills/gatekeep/internal/logging"
	"github.com/dshills/gatekeep/internal/oracle"
	"github.com/dshills/gatekeep/internal/output"
	"github.com/dshills/gatekeep/internal/review"
)

// Shared review flags
var (
	flagPaths          string
	flagExclude        string
	flagContextLines   int
	flagBackend        string
	flagEndpoint       string
	flagModel          string
	flagFormat         string
	flagOut            string
	flagRules          string
	flagWorkers        int
	flagTimeout        int
	flagFailOnWarnings bool
	flagNoRedact       bool
	flagNoCache        bool
	flagVerbose        bool
)

// newClient builds the backend client. Tests replace it with a fake.
var newClient = oracle.New

// reviewFlags returns the flag set shared by every review subcommand.
func reviewFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("review", pflag.ContinueOnError)
	fs.StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	fs.StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	fs.IntVar(&flagContextLines, "context-lines", -1, "Context lines around each change")
	fs.StringVar(&flagBackend, "backend", "", "Backend (ollama, openai)")
	fs.StringVar(&flagEndpoint, "endpoint", "", "Backend base URL")
	fs.StringVar(&flagModel, "model", "", "Model name")
	fs.StringVarP(&flagFormat, "format", "f", "", "Output format (text, json, markdown, sarif)")
	fs.StringVarP(&flagOut, "out", "o", "", "Output file path (default: stdout)")
	fs.StringVar(&flagRules, "rules", "", "Rules file path")
	fs.IntVar(&flagWorkers, "workers", 0, "Files reviewed in parallel")
	fs.IntVar(&flagTimeout, "timeout", 0, "Per-call timeout in seconds")
	fs.BoolVar(&flagFailOnWarnings, "fail-on-warnings", false, "Exit 1 on a warnings verdict")
	fs.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	fs.BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
	fs.BoolVarP(&flagVerbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return fs
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagBackend != "" {
		m["backend"] = flagBackend
	}
	if flagEndpoint != "" {
		m["endpoint"] = flagEndpoint
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagContextLines >= 0 {
		m["contextLines"] = strconv.Itoa(flagContextLines)
	}
	if flagWorkers > 0 {
		m["workers"] = strconv.Itoa(flagWorkers)
	}
	if flagTimeout > 0 {
		m["timeoutSeconds"] = strconv.Itoa(flagTimeout)
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagFailOnWarnings {
		m["failOnWarnings"] = "true"
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	if flagNoCache {
		m["cache.enabled"] = "false"
	}
	if flagVerbose {
		m["logLevel"] = "debug"
	}
	return m
}

func buildGitOpts(cfg config.Config) gitctx.Options {
	opts := gitctx.Options{
		ContextLines: cfg.ContextLines,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		MaxFileBytes: cfg.MaxFileBytes,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func newLogger(cmd *cobra.Command, cfg config.Config) (logging.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
}

// clientOptions maps config to backend options. The default endpoint belongs
// to Ollama, so other backends fall back to their own default when it is
// left unchanged.
func clientOptions(cfg config.Config) oracle.Options {
	endpoint := cfg.Endpoint
	backend := strings.ToLower(cfg.Backend)
	if backend != "" && backend != "ollama" && endpoint == config.Default().Endpoint {
		endpoint = ""
	}
	return oracle.Options{
		Backend:  cfg.Backend,
		Endpoint: endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}
}

// reviewInput is everything a review subcommand collected before the
// pipeline runs.
type reviewInput struct {
	mode     string
	changes  []diffunit.Change
	excluded []string
	repo     gitctx.RepoMeta
	gitMs    int64
}

func runReview(ctx context.Context, cmd *cobra.Command, cfg config.Config, in reviewInput) {
	stderr := cmd.ErrOrStderr()
	start := time.Now()

	log, err := newLogger(cmd, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	if !cfg.Privacy.RedactSecrets {
		fmt.Fprintln(stderr, "WARNING: secret redaction is disabled")
	}

	client, err := newClient(clientOptions(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}

	opts, err := review.OptionsFromConfig(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	log.Info("starting review", "mode", in.mode, "files", len(in.changes), "backend", client.Name(), "model", cfg.Model)
	verdict, err := review.New(client, opts).Run(ctx, in.changes)
	llmMs := time.Since(start).Milliseconds()

	switch {
	case err == nil:
	case oracle.IsBackendUnavailable(err):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if oracle.IsAuthError(err) {
			fmt.Fprintln(stderr, "Check the apiKey setting for this backend.")
		}
		exitCode = ExitBackendUnavailable
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(stderr, "Review cancelled.")
		exitCode = ExitRuntimeError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	report := review.BuildReport(version, verdict,
		review.RepoInfo{Root: in.repo.Root, Head: in.repo.Head, Branch: in.repo.Branch},
		review.InputInfo{
			Mode:          in.mode,
			Backend:       client.Name(),
			Model:         cfg.Model,
			PathsIncluded: pathsOf(in.changes),
			PathsExcluded: in.excluded,
		},
		review.Timing{GitMs: in.gitMs, LLMMs: llmMs, TotalMs: in.gitMs + llmMs},
	)

	if err := output.WriteReport(cmd.OutOrStdout(), report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if exitCode == ExitSuccess {
		exitCode = verdictExitCode(verdict, cfg.FailOnWarnings)
	}
}

// verdictExitCode maps a verdict to the process exit code.
func verdictExitCode(v *review.Verdict, failOnWarnings bool) int {
	switch v.Status {
	case review.StatusFailed:
		return ExitBlocked
	case review.StatusWarnings:
		if failOnWarnings {
			return ExitBlocked
		}
	}
	return ExitSuccess
}

func pathsOf(changes []diffunit.Change) []string {
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return paths
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes",
	Long:  "Review code changes with a local model. Use subcommands to specify what to review.",
}

var reviewStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Review staged changes (index vs HEAD)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := gitctx.Staged(cmd.Context(), ".", buildGitOpts(cfg))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if len(res.Changes) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No staged changes to review.")
		}
		runReview(cmd.Context(), cmd, cfg, reviewInput{
			mode:     "staged",
			changes:  res.Changes,
			excluded: res.Excluded,
			repo:     res.Repo,
			gitMs:    time.Since(start).Milliseconds(),
		})
		return nil
	},
}

var reviewDiffCmd = &cobra.Command{
	Use:   "diff [file|-]",
	Short: "Review a unified diff from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		var data []byte
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error reading diff: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		res, err := gitctx.ParseDiff(string(data), buildGitOpts(cfg))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		// Repository metadata is optional for a supplied diff.
		repo, _ := gitctx.GetRepoMeta(".")

		runReview(cmd.Context(), cmd, cfg, reviewInput{
			mode:     "diff",
			changes:  res.Changes,
			excluded: res.Excluded,
			repo:     repo,
		})
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewStagedCmd)
	reviewCmd.AddCommand(reviewDiffCmd)

	for _, cmd := range []*cobra.Command{reviewStagedCmd, reviewDiffCmd} {
		cmd.Flags().AddFlagSet(reviewFlags())
	}
}
