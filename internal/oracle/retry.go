package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/gatekeep/internal/logging"
)

// State is a position in the per-file attempt loop.
type State int

const (
	StateAttempting State = iota
	StateSucceeded
	StateExhaustedRetries
	StateUnavailable
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhaustedRetries:
		return "exhausted_retries"
	case StateUnavailable:
		return "unavailable"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Policy bounds the attempt loop. Backoff is zero for localhost backends.
type Policy struct {
	Timeout          time.Duration
	TransportRetries int
	MaxAttempts      int
	Backoff          time.Duration
	Logger           logging.Logger
}

// DefaultPolicy returns the documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:          120 * time.Second,
		TransportRetries: 3,
		MaxAttempts:      3,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.TransportRetries < 0 {
		p.TransportRetries = 0
	}
	if p.Logger == nil {
		p.Logger = logging.Nop()
	}
	return p
}

// Outcome is the terminal state of one Invoke call.
type Outcome struct {
	State      State
	Text       string
	Attempts   int
	TokensUsed int
}

// Invoke drives one unit of work through the attempt loop. build renders the
// request for a given zero-based attempt; attempts after the first should use
// a stricter prompt. accept validates the response text; a non-nil error
// consumes an attempt.
//
// Transport failures are retried immediately up to TransportRetries times
// without consuming an attempt; past that the error wraps
// ErrBackendUnavailable, as do auth failures. A reply the backend answered
// but rejected (a 4xx status, an in-band error, an undecodable body) consumes
// an attempt. Exhausting MaxAttempts wraps ErrMalformedOutput.
// Cancellation of ctx returns ctx.Err().
func Invoke(ctx context.Context, c Client, p Policy, build func(attempt int) Request, accept func(text string) error) (Outcome, error) {
	p = p.normalized()
	out := Outcome{State: StateAttempting}
	var lastErr error

	for out.Attempts < p.MaxAttempts {
		if err := ctx.Err(); err != nil {
			out.State = StateCancelled
			return out, err
		}

		req := build(out.Attempts)
		out.Attempts++

		resp, err := call(ctx, c, p, req)
		out.TokensUsed += resp.TokensUsed
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.State = StateCancelled
				return out, ctxErr
			}
			if !isRejection(err) {
				out.State = StateUnavailable
				p.Logger.Warn("backend unavailable", "backend", c.Name(), "attempt", out.Attempts, "error", err)
				return out, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
			lastErr = err
			p.Logger.Debug("attempt rejected", "attempt", out.Attempts, "error", err)
			continue
		}

		if strings.TrimSpace(resp.Text) == "" {
			lastErr = errEmptyResponse
			p.Logger.Debug("attempt rejected", "attempt", out.Attempts, "error", lastErr)
			continue
		}
		if err := accept(resp.Text); err != nil {
			lastErr = err
			p.Logger.Debug("attempt rejected", "attempt", out.Attempts, "error", err)
			continue
		}

		out.State = StateSucceeded
		out.Text = resp.Text
		return out, nil
	}

	out.State = StateExhaustedRetries
	return out, fmt.Errorf("%w after %d attempts: %v", ErrMalformedOutput, out.Attempts, lastErr)
}

// call performs one logical attempt, retrying transport failures in place.
func call(ctx context.Context, c Client, p Policy, req Request) (Response, error) {
	var lastErr error
	for try := 0; try <= p.TransportRetries; try++ {
		if try > 0 {
			p.Logger.Debug("retrying transport failure", "try", try, "error", lastErr)
			if p.Backoff > 0 {
				select {
				case <-ctx.Done():
					return Response{}, ctx.Err()
				case <-time.After(p.Backoff):
				}
			}
		}

		resp, err := callOnce(ctx, c, p.Timeout, req)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return resp, err
		}
		lastErr = err
	}
	return Response{}, lastErr
}

func callOnce(ctx context.Context, c Client, timeout time.Duration, req Request) (Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Generate(ctx, req)
}

// Probe performs the reachability pre-check. Any failure wraps
// ErrBackendUnavailable.
func Probe(ctx context.Context, c Client, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, c.Name(), err)
	}
	return nil
}
