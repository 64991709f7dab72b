package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	apperrors "github.com/commercekit/storefront-identity/internal/errors"
)

// Generic fetch-failure signatures seen from HTTP clients and provider SDKs
// that don't surface typed network errors.
var networkSignatures = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"failed to fetch",
	"request aborted",
	"i/o timeout",
}

// IsNetworkError classifies a failure as transient and network-shaped:
// timeouts, aborts, and connection failures. Data-validation errors,
// not-found, and conflicts are never retryable.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeTimeout, apperrors.ErrCodeUnavailable:
		return true
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeConflict,
		apperrors.ErrCodeValidation, apperrors.ErrCodeToken:
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
