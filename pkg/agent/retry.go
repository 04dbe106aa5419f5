package agent

import (
	"context"
	"errors"
	"net/http"

	"github.com/harun/ctx/internal/observability"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// IsRetryable reports whether a completion failure is worth one more attempt:
// rate limiting and transport errors are, other API errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}

	return true
}

// callWithRetry makes one completion call and retries it once, after
// retryDelay, when IsRetryable allows.
func (r *Runner) callWithRetry(ctx context.Context, req CompletionRequest, logger zerolog.Logger) (*Completion, error) {
	var (
		completion *Completion
		attempt    int
	)

	backoff := retry.WithMaxRetries(1, retry.NewConstant(r.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			observability.RecordCompletionRetry()
		}

		resp, err := r.client.Complete(ctx, req)
		observability.RecordCompletionCall(err == nil)
		if err != nil {
			if IsRetryable(err) {
				if attempt > 1 {
					return retry.RetryableError(err)
				}
				logger.Warn().
					Err(err).
					Int("attempt", attempt).
					Dur("delay", r.retryDelay).
					Msg("Completion call failed, retrying")
				return retry.RetryableError(err)
			}
			return err
		}

		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	return completion, nil
}
