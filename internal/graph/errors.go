package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
)

// EnrichODataError adds Graph service context (error code, message,
// Retry-After guidance) to errors returned by the SDK. It never changes
// non-OData errors. Throttling and availability errors are logged as
// warnings; the toolkit does not retry automatically, so the guidance is
// informational.
func EnrichODataError(err error, log *slog.Logger, operation string) error {
	if err == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	var odataErr *odataerrors.ODataError
	if !errors.As(err, &odataErr) {
		return err
	}

	errorInfo := odataErr.GetErrorEscaped()
	if errorInfo == nil {
		return err
	}

	code := ""
	message := ""
	if errorInfo.GetCode() != nil {
		code = *errorInfo.GetCode()
	}
	if errorInfo.GetMessage() != nil {
		message = *errorInfo.GetMessage()
	}

	switch code {
	case "TooManyRequests", "activityLimitReached":
		retryAfter := ""
		if headers := odataErr.GetResponseHeaders(); headers != nil {
			if values := headers.Get("Retry-After"); len(values) > 0 {
				retryAfter = values[0]
			}
		}
		log.Warn("Graph API rate limit exceeded", "operation", operation, "code", code, "retryAfter", retryAfter)
		if retryAfter != "" {
			return fmt.Errorf("rate limit exceeded during %s (retry after %s seconds): %w", operation, retryAfter, err)
		}
		return fmt.Errorf("rate limit exceeded during %s: %w", operation, err)

	case "ServiceUnavailable", "GatewayTimeout":
		log.Warn("Graph API service error", "operation", operation, "code", code, "message", message)
		return fmt.Errorf("service temporarily unavailable during %s (code: %s): %w", operation, code, err)
	}

	if code != "" {
		log.Debug("Graph API error", "operation", operation, "code", code, "message", message)
		return fmt.Errorf("%s failed (code: %s): %w", operation, code, err)
	}

	return err
}
