package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/scout/internal/domain"
)

// classifyAPIError maps a provider error onto the pipeline taxonomy. Rate
// limits, server-side failures, and timeouts are transient and may be retried
// under the calling stage's policy; everything else surfaces as-is with
// request context attached.
func classifyAPIError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrProviderTransient)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if transientStatus(apiErr.HTTPStatusCode) {
			return fmt.Errorf("%s: API error %d: %s: %w",
				op, apiErr.HTTPStatusCode, apiErr.Message, domain.ErrProviderTransient)
		}
		return fmt.Errorf("%s: API error %d: %s", op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if transientStatus(reqErr.HTTPStatusCode) {
			return fmt.Errorf("%s: request error %d: %w",
				op, reqErr.HTTPStatusCode, domain.ErrProviderTransient)
		}
		return fmt.Errorf("%s: request error %d: %s", op, reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	// Connection-level failures are retryable.
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrProviderTransient)
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
