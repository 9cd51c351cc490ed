package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-subprep/internal/apierr"
)

// classifyError maps go-openai errors to apierr sentinels.
// Typed errors are checked first; unknown errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, apiErr.Code)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return classifyStatus(reqErr.HTTPStatusCode, msg, nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}

// classifyStatus maps an HTTP status to a sentinel.
// A 429 carrying an insufficient_quota code is a billing problem, not a rate limit.
func classifyStatus(status int, msg string, code any) error {
	switch {
	case status == http.StatusTooManyRequests:
		if isQuotaCode(code) || strings.Contains(msg, "quota") {
			return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	case status >= 500:
		return fmt.Errorf("status %d: %s: %w", status, msg, apierr.ErrServer)
	case status >= 400:
		return fmt.Errorf("status %d: %s: %w", status, msg, apierr.ErrBadRequest)
	default:
		return fmt.Errorf("status %d: %s", status, msg)
	}
}

func isQuotaCode(code any) bool {
	s, ok := code.(string)
	return ok && s == "insufficient_quota"
}
