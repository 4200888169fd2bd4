package checks

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ozzus/sitecheck/internal/domain"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultUserAgent = "sitecheck/1.0"
)

// AttemptFunc adapts a plain function to the attempt executor signature.
type AttemptFunc func(ctx context.Context, target string, timeout time.Duration, assertion *domain.HeaderAssertion) domain.AttemptResult

func (f AttemptFunc) Attempt(ctx context.Context, target string, timeout time.Duration, assertion *domain.HeaderAssertion) domain.AttemptResult {
	return f(ctx, target, timeout, assertion)
}

// SupportedMethod reports whether method can be used for availability checks.
func SupportedMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}
