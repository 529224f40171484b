package tasks

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		errText string
		want    ErrorClass
	}{
		{"googleapi: Error 403: quotaExceeded", ErrQuotaExceeded},
		{"daily upload limit exceeded", ErrQuotaExceeded},
		{"HTTP 429 Too Many Requests", ErrRateLimited},
		{"rate limit reached, slow down", ErrRateLimited},
		{"401 invalid_grant", ErrAuthFailed},
		{"authentication failed: token revoked", ErrAuthFailed},
		{"request unauthorized", ErrAuthFailed},
		{"500 Internal Server Error", ErrServerError},
		{"upstream returned 502", ErrServiceUnavailable},
		{"503 service temporarily down", ErrServiceUnavailable},
		{"gateway 504", ErrServiceUnavailable},
		{"dial tcp: i/o timeout", ErrNetwork},
		{"connection reset by peer", ErrNetwork},
		{"video file not found", ErrFile},
		{"thumbnail file is missing", ErrFile},
		{"something odd happened", ErrUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.errText); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.errText, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(ErrAuthFailed) {
		t.Error("authentication failures should not be retried")
	}
	if Retryable(ErrFile) {
		t.Error("file errors should not be retried")
	}
	for _, class := range []ErrorClass{ErrQuotaExceeded, ErrRateLimited, ErrServerError, ErrServiceUnavailable, ErrNetwork, ErrUnknown} {
		if !Retryable(class) {
			t.Errorf("%s should be retryable", class)
		}
	}
}

func TestBackoff(t *testing.T) {
	cases := []struct {
		class   ErrorClass
		attempt int
		want    time.Duration
	}{
		{ErrNetwork, 0, time.Minute},
		{ErrNetwork, 1, 2 * time.Minute},
		{ErrNetwork, 3, 8 * time.Minute},
		{ErrRateLimited, 0, 5 * time.Minute},
		{ErrRateLimited, 2, 20 * time.Minute},
		{ErrServerError, 1, 4 * time.Minute},
		{ErrQuotaExceeded, 0, time.Hour},
		{ErrQuotaExceeded, 5, time.Hour}, // capped
		{ErrNetwork, 10, time.Hour},      // capped
		{ErrAuthFailed, 0, 0},
		{ErrFile, 3, 0},
	}
	for _, tc := range cases {
		if got := Backoff(tc.class, tc.attempt); got != tc.want {
			t.Errorf("Backoff(%s, %d) = %s, want %s", tc.class, tc.attempt, got, tc.want)
		}
	}
}
