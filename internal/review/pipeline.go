package review

import (
	"context"
	"errors"
	"sync"

	"github.com/dshills/gatekeep/internal/cache"
	"github.com/dshills/gatekeep/internal/diffunit"
	"github.com/dshills/gatekeep/internal/logging"
	"github.com/dshills/gatekeep/internal/oracle"
)

// Pipeline reviews a set of staged changes against one backend.
type Pipeline struct {
	client oracle.Client
	opts   Options
	log    logging.Logger
}

// New creates a Pipeline.
func New(client oracle.Client, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Pipeline{client: client, opts: opts, log: opts.Logger}
}

type job struct {
	index int
	unit  diffunit.Unit
}

// Run reviews changes and aggregates the results in submission order.
//
// Deleted files are left out of the verdict. Binary files, pure renames and
// withheld paths are recorded as skipped without contacting the backend.
//
// If the backend is unreachable, before or during the run, Run returns a nil
// Verdict and an error wrapping oracle.ErrBackendUnavailable. If ctx is
// cancelled, Run returns the Verdict with unfinished files marked cancelled
// together with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, changes []diffunit.Change) (*Verdict, error) {
	var results []ReviewResult
	var jobs []job

	for _, c := range changes {
		if c.IsDeleted {
			p.log.Debug("skipping deleted file", "file", c.Path)
			continue
		}
		u := diffunit.Extract(c, p.opts.ContextLines)
		if u.Degraded {
			p.log.Warn("diff parse degraded", "file", u.Path, "reason", u.DegradedReason)
		}

		var skip string
		switch {
		case u.IsBinary:
			skip = "binary file"
		case p.opts.Redact.Withhold(u.Path):
			skip = "withheld by privacy policy"
		case !u.Degraded && u.ChangedLineCount() == 0 && u.IsRenamed:
			skip = "pure rename"
		case !u.Degraded && u.ChangedLineCount() == 0:
			skip = "no textual changes"
		}
		if skip != "" {
			p.log.Debug("skipping file", "file", u.Path, "reason", skip)
			results = append(results, Skip(u.Path, skip))
			continue
		}

		jobs = append(jobs, job{index: len(results), unit: u})
		results = append(results, ReviewResult{FilePath: u.Path})
	}

	if len(jobs) == 0 {
		return Aggregate(results), nil
	}

	if err := ctx.Err(); err != nil {
		return Aggregate(markCancelled(results, jobs)), err
	}
	if err := oracle.Probe(ctx, p.client, p.opts.ProbeTimeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Aggregate(markCancelled(results, jobs)), ctxErr
		}
		p.log.Error("backend probe failed", "backend", p.client.Name(), "error", err)
		return nil, err
	}
	p.log.Info("backend reachable", "backend", p.client.Name(), "files", len(jobs))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		unavailable error
	)
	sem := make(chan struct{}, p.opts.Workers)

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				results[j.index] = Degenerate(j.unit.Path, FailureCancelled, nil, 0)
				return
			}
			defer func() { <-sem }()

			if runCtx.Err() != nil {
				results[j.index] = Degenerate(j.unit.Path, FailureCancelled, nil, 0)
				return
			}

			res, err := p.reviewUnit(runCtx, j.unit)
			results[j.index] = res
			if err != nil && oracle.IsBackendUnavailable(err) {
				mu.Lock()
				if unavailable == nil {
					unavailable = err
				}
				mu.Unlock()
				cancel()
			}
		}(j)
	}
	wg.Wait()

	if unavailable != nil {
		return nil, unavailable
	}
	v := Aggregate(results)
	if err := ctx.Err(); err != nil {
		p.log.Info("review cancelled", "notReviewed", v.FailedCount())
		return v, err
	}
	return v, nil
}

// reviewUnit runs one file through prompt, backend and parser. The returned
// error is non-nil only when the backend is unavailable.
func (p *Pipeline) reviewUnit(ctx context.Context, u diffunit.Unit) (ReviewResult, error) {
	log := p.log.With("file", u.Path, "class", string(Classify(u.Path)))
	u = p.opts.Redact.Unit(u)

	prompt := BuildPrompt(u, p.opts.Rules)
	key := cache.BuildKey(p.client.Name(), p.opts.Model, SystemPrompt(), prompt)
	if text, ok := p.opts.Cache.Get(key); ok {
		if outcome := ParseResponse(text, u); outcome.Kind != Failed {
			log.Debug("cache hit")
			return p.finish(log, outcome), nil
		}
	}

	var outcome ParseOutcome
	build := func(attempt int) oracle.Request {
		text := prompt
		if attempt > 0 {
			text = BuildStrictPrompt(u, p.opts.Rules)
		}
		return oracle.Request{
			System:      SystemPrompt(),
			Prompt:      text,
			Schema:      SchemaJSON(),
			MaxTokens:   p.opts.MaxTokens,
			Temperature: p.opts.Temperature,
		}
	}
	accept := func(text string) error {
		outcome = ParseResponse(text, u)
		if outcome.Kind == Failed {
			return outcome.Err
		}
		return nil
	}

	policy := p.opts.Policy
	policy.Logger = log
	res, err := oracle.Invoke(ctx, p.client, policy, build, accept)
	switch {
	case err == nil:
		if putErr := p.opts.Cache.Put(key, res.Text); putErr != nil {
			log.Warn("cache write failed", "error", putErr)
		}
		log.Debug("reviewed", "attempts", res.Attempts, "tokens", res.TokensUsed, "outcome", outcome.Kind.String())
		return p.finish(log, outcome), nil
	case res.State == oracle.StateCancelled || errors.Is(err, context.Canceled):
		log.Debug("review abandoned", "attempts", res.Attempts)
		return Degenerate(u.Path, FailureCancelled, nil, res.Attempts), nil
	case oracle.IsBackendUnavailable(err):
		return Degenerate(u.Path, FailureBackendUnavailable, err, res.Attempts), err
	default:
		log.Warn("malformed output", "attempts", res.Attempts, "error", err)
		return Degenerate(u.Path, FailureMalformedOutput, err, res.Attempts), nil
	}
}

func (p *Pipeline) finish(log logging.Logger, outcome ParseOutcome) ReviewResult {
	result := outcome.Result
	result.Issues = ApplySeverityOverrides(result.Issues, p.opts.Rules)
	if result.DroppedIssues > 0 {
		log.Warn("partial issue loss", "dropped", result.DroppedIssues)
	}
	if result.ScoreInferred {
		log.Debug("score inferred", "score", DefaultScore)
	}
	return result
}

func markCancelled(results []ReviewResult, jobs []job) []ReviewResult {
	for _, j := range jobs {
		results[j.index] = Degenerate(j.unit.Path, FailureCancelled, nil, 0)
	}
	return results
}
