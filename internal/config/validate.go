package config

import (
	"fmt"
	"strings"

	"ozzus/sitecheck/internal/checks"
	"ozzus/sitecheck/internal/report"
)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (c *Config) Validate() error {
	var problems []string

	if c.Checks.Workers <= 0 {
		problems = append(problems, "--workers must be at least 1")
	}
	if c.Checks.Timeout < 1 {
		problems = append(problems, "--timeout must be at least 1 second")
	}
	if c.Checks.Retries < 0 {
		problems = append(problems, "--retries cannot be negative")
	}
	if c.Checks.RetryDelayMs < 0 {
		problems = append(problems, "--retry-delay cannot be negative")
	}
	if c.Schedule.Period < 0 {
		problems = append(problems, "--period cannot be negative")
	}
	if !checks.SupportedMethod(c.Checks.Method) {
		problems = append(problems, fmt.Sprintf("unsupported method %q", c.Checks.Method))
	}
	if _, err := ParseHeaderAssertion(c.Checks.AssertHeader); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Source.Watch && c.Source.File == "" {
		problems = append(problems, "--watch requires --file")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
