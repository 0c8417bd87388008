package embedding

import (
	"errors"
	"strings"
)

// ErrQuotaExhausted indicates the provider refuses further calls due to
// usage limits. Batch processing stops immediately on this signal.
var ErrQuotaExhausted = errors.New("provider quota exhausted")

// errorClass partitions provider failures by how the service reacts.
type errorClass int

const (
	// classFatal: not retried, fails the current call.
	classFatal errorClass = iota
	// classTransient: retried with exponential backoff.
	classTransient
	// classQuota: stops the whole batch; remaining work is marked failed.
	classQuota
)

// classifyProviderError maps a provider error onto an errorClass.
// Quota takes precedence over the transient markers since providers often
// report exhaustion with a 429-style message.
func classifyProviderError(err error) errorClass {
	if err == nil {
		return classFatal
	}
	if errors.Is(err, ErrQuotaExhausted) {
		return classQuota
	}

	errStr := err.Error()

	if containsAny(errStr, "quota exceeded", "quota exhausted", "resource_exhausted", "resource exhausted") {
		return classQuota
	}

	// Rate limit errors - retry
	if containsAny(errStr, "rate limit", "429", "too many requests") {
		return classTransient
	}

	// Transient server errors - retry
	if containsAny(errStr, "500", "502", "503", "504", "unavailable") {
		return classTransient
	}

	// Network errors - retry
	if containsAny(errStr, "connection reset", "timeout", "temporary") {
		return classTransient
	}

	return classFatal
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
