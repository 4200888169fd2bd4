package checks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ozzus/sitecheck/internal/domain"
)

// Bodies are drained up to this size so keep-alive connections can be reused.
const maxDrainBytes = 1 << 20

type HTTPChecker struct {
	method    string
	userAgent string
	client    *http.Client
}

func NewHTTPChecker(method, userAgent string) *HTTPChecker {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPChecker{
		method:    method,
		userAgent: userAgent,
		// per-attempt timeouts come from the request context
		client: &http.Client{},
	}
}

// WithHTTPClient overrides the default http.Client. Primarily useful for testing.
func (h *HTTPChecker) WithHTTPClient(client *http.Client) {
	if client != nil {
		h.client = client
	}
}

func (h *HTTPChecker) Method() string {
	return h.method
}

// Attempt performs exactly one request against target. Any HTTP response,
// whatever its code, is a successful attempt; only a missing response is an error.
func (h *HTTPChecker) Attempt(ctx context.Context, target string, timeout time.Duration, assertion *domain.HeaderAssertion) domain.AttemptResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resolvedURL, err := prepareURL(target)
	if err != nil {
		return failure(0, fmt.Errorf("invalid url: %w", err), timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, h.method, resolvedURL, nil)
	if err != nil {
		return failure(0, err, timeout)
	}
	req.Header.Set("User-Agent", h.userAgent)

	start := time.Now()
	resp, err := h.client.Do(req)
	elapsed := time.Since(start)
	finished := time.Now()

	if err != nil {
		return failure(elapsed, err, timeout)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	result := domain.AttemptResult{
		Status:   domain.StatusCode(resp.StatusCode),
		Elapsed:  elapsed,
		Finished: finished,
	}
	if assertion != nil {
		result.Assertion = evaluateAssertion(resp.Header, *assertion)
	}

	return result
}

func failure(elapsed time.Duration, err error, timeout time.Duration) domain.AttemptResult {
	return domain.AttemptResult{
		Status:   domain.StatusError(describeError(err, timeout)),
		Elapsed:  elapsed,
		Finished: time.Now(),
	}
}

func evaluateAssertion(header http.Header, assertion domain.HeaderAssertion) *domain.AssertionResult {
	result := &domain.AssertionResult{
		Header:   assertion.Name,
		Expected: assertion.Value,
	}

	actual, found := lookupHeader(header, assertion.Name)
	result.Found = found
	result.Actual = actual

	switch {
	case !found:
		result.Detail = fmt.Sprintf("header '%s' assertion failed: header not found", assertion.Name)
	case actual != assertion.Value:
		result.Detail = fmt.Sprintf("header '%s' assertion failed: expected '%s', got '%s'", assertion.Name, assertion.Value, actual)
	default:
		result.Passed = true
	}

	return result
}

// lookupHeader matches the name case-insensitively and returns the first value.
func lookupHeader(header http.Header, name string) (string, bool) {
	if values := header.Values(name); len(values) > 0 {
		return values[0], true
	}
	for key, values := range header {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

func prepareURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("empty target")
	}

	if !strings.Contains(target, "://") {
		target = "http://" + target
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("missing host in %q", target)
	}

	return parsed.String(), nil
}
