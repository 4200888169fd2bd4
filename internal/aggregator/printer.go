package aggregator

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"ozzus/sitecheck/internal/domain"
)

const (
	urlColumnWidth = 28
	maxErrorLength = 20
	errorKeep      = 17
	ruleWidth      = 75
)

// Printer renders the live table and round summaries. Every line is written
// with a single Write call.
type Printer struct {
	mu         sync.Mutex
	out        io.Writer
	showHeader bool

	ok      *color.Color
	warn    *color.Color
	bad     *color.Color
	dim     *color.Color
	heading *color.Color
}

// NewPrinter writes to out. showAssertion adds a column with the header
// assertion result.
func NewPrinter(out io.Writer, colorize, showAssertion bool) *Printer {
	p := &Printer{
		out:        out,
		showHeader: showAssertion,
		ok:         color.New(color.FgGreen),
		warn:       color.New(color.FgYellow),
		bad:        color.New(color.FgRed),
		dim:        color.New(color.FgHiBlack),
		heading:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.warn, p.bad, p.dim, p.heading} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Header() {
	line := fmt.Sprintf("%-30s | %-8s | %-12s | %s", "URL", "Status", "Time (ms)", "Timestamp (EpochS)")
	if p.showHeader {
		line += " | Header"
	}
	p.writeLines(p.heading.Sprint(line), strings.Repeat("-", ruleWidth))
}

func (p *Printer) Row(o domain.CheckOutcome) {
	status := fmt.Sprintf("%-8s", statusText(o.Status))
	line := fmt.Sprintf("%-30s | %s | %-12d | %d",
		TruncateURL(o.URL, urlColumnWidth),
		p.statusColor(o.Status).Sprint(status),
		o.ResponseMs,
		o.Timestamp,
	)
	if p.showHeader {
		line += " | " + p.assertionText(o)
	}
	p.writeLines(line)
}

func (p *Printer) Summary(s domain.Summary) {
	lines := []string{
		"",
		p.heading.Sprint("--- Round Summary ---"),
		fmt.Sprintf("Total URLs Attempted: %d", s.TotalAttempted),
		fmt.Sprintf("Successful Checks: %d", s.SuccessCount),
		fmt.Sprintf("Failed Checks: %d", s.FailureCount),
	}
	if s.AssertionFailures > 0 {
		lines = append(lines, fmt.Sprintf("Header Assertion Failures: %d", s.AssertionFailures))
	}
	switch {
	case s.SuccessCount > 0:
		lines = append(lines,
			fmt.Sprintf("Min Response Time (successful): %d ms", s.MinResponseTimeMs),
			fmt.Sprintf("Max Response Time (successful): %d ms", s.MaxResponseTimeMs),
			fmt.Sprintf("Average Response Time (successful): %.2f ms", s.MeanResponseTimeMs),
		)
	case s.TotalAttempted > 0:
		lines = append(lines, "No successful checks to calculate response time statistics.")
	}
	lines = append(lines, "---------------------", "")
	p.writeLines(lines...)
}

// Printf writes a free-form message line, used for round banners.
func (p *Printer) Printf(format string, args ...any) {
	p.writeLines(fmt.Sprintf(format, args...))
}

func (p *Printer) writeLines(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, strings.Join(lines, "\n")+"\n")
}

func (p *Printer) statusColor(s domain.Status) *color.Color {
	switch {
	case !s.OK(), s.Code >= 500:
		return p.bad
	case s.Code >= 400:
		return p.warn
	default:
		return p.ok
	}
}

func (p *Printer) assertionText(o domain.CheckOutcome) string {
	switch {
	case o.Assertion == nil:
		return p.dim.Sprint("-")
	case o.Assertion.Passed:
		return p.ok.Sprint("ok")
	default:
		return p.bad.Sprint("FAILED")
	}
}

func statusText(s domain.Status) string {
	if s.OK() {
		return s.String()
	}
	msg := s.Err
	if len([]rune(msg)) > maxErrorLength {
		msg = string([]rune(msg)[:errorKeep]) + "..."
	}
	return "ERR: " + msg
}

// TruncateURL shortens u to at most maxLen runes, ending in "...".
func TruncateURL(u string, maxLen int) string {
	r := []rune(u)
	if len(r) > maxLen && maxLen > 3 {
		return string(r[:maxLen-3]) + "..."
	}
	return u
}
