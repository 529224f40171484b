package tasks

import (
	"strings"
	"time"
)

// ErrorClass buckets handler failures so retry delays can be chosen per
// category instead of a single fixed backoff.
type ErrorClass string

const (
	ErrQuotaExceeded      ErrorClass = "quota_exceeded"
	ErrRateLimited        ErrorClass = "rate_limited"
	ErrAuthFailed         ErrorClass = "authentication_failed"
	ErrServerError        ErrorClass = "server_error"
	ErrServiceUnavailable ErrorClass = "service_unavailable"
	ErrNetwork            ErrorClass = "network_error"
	ErrFile               ErrorClass = "file_error"
	ErrUnknown            ErrorClass = "unknown_error"
)

// Classify maps an error message onto an ErrorClass using the status codes
// and phrases upload tooling and HTTP APIs actually emit.
func Classify(errText string) ErrorClass {
	lower := strings.ToLower(errText)

	switch {
	case strings.Contains(errText, "403") || strings.Contains(lower, "quota") || strings.Contains(lower, "exceeded"):
		return ErrQuotaExceeded
	case strings.Contains(errText, "429") || strings.Contains(lower, "rate limit"):
		return ErrRateLimited
	case strings.Contains(errText, "401") || strings.Contains(lower, "authentication") || strings.Contains(lower, "unauthorized"):
		return ErrAuthFailed
	case strings.Contains(errText, "500") || strings.Contains(lower, "internal server error"):
		return ErrServerError
	case strings.Contains(errText, "502") || strings.Contains(errText, "503") || strings.Contains(errText, "504"):
		return ErrServiceUnavailable
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "connection"):
		return ErrNetwork
	case strings.Contains(lower, "file") && (strings.Contains(lower, "not found") || strings.Contains(lower, "missing")):
		return ErrFile
	default:
		return ErrUnknown
	}
}

// BaseDelay returns the first retry delay for an error class. Zero means the
// class is not worth retrying.
func BaseDelay(class ErrorClass) time.Duration {
	switch class {
	case ErrQuotaExceeded:
		return time.Hour
	case ErrRateLimited:
		return 5 * time.Minute
	case ErrServerError:
		return 2 * time.Minute
	case ErrServiceUnavailable:
		return 3 * time.Minute
	case ErrNetwork:
		return time.Minute
	case ErrAuthFailed, ErrFile:
		return 0
	default:
		return time.Minute
	}
}

func Retryable(class ErrorClass) bool {
	return BaseDelay(class) > 0
}

const maxBackoff = time.Hour

// Backoff doubles the class base delay per attempt, capped at an hour.
func Backoff(class ErrorClass, attempt int) time.Duration {
	base := BaseDelay(class)
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
