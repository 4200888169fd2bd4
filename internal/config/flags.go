package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"env":           "env",
	"log-level":     "log_level",
	"workers":       "checks.workers",
	"timeout":       "checks.timeout",
	"retries":       "checks.retries",
	"retry-delay":   "checks.retry_delay_ms",
	"method":        "checks.method",
	"assert-header": "checks.assert_header",
	"user-agent":    "checks.user_agent",
	"file":          "source.file",
	"watch":         "source.watch",
	"period":        "schedule.period",
	"report-dir":    "report.dir",
	"format":        "report.format",
	"kafka-brokers": "kafka.brokers",
	"kafka-topic":   "kafka.topic",
	"listen":        "server.listen",
}

// RegisterFlags declares every configuration flag on fs. Defaults shown in
// help mirror setDefaults; only explicitly set flags override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", "local", "logging environment (local, dev, prod)")
	fs.String("log-level", "", "log level override (debug, info, warn, error)")

	fs.Int("workers", 0, "number of concurrent workers (default: number of CPUs)")
	fs.Int("timeout", 5, "per-request timeout in seconds")
	fs.Int("retries", 0, "additional attempts after a failed request")
	fs.Int("retry-delay", 100, "delay between attempts in milliseconds")
	fs.String("method", "GET", "HTTP method to use (GET or HEAD)")
	fs.String("assert-header", "", "require a response header, 'Header-Name: Expected Value'")
	fs.String("user-agent", "sitecheck/1.0", "User-Agent sent with every request")

	fs.String("file", "", "path to a file with one URL per line")
	fs.Bool("watch", false, "reload the URL file between rounds when it changes")
	fs.Int("period", 0, "repeat checks every N seconds (0 runs a single round)")

	fs.String("report-dir", ".", "directory for report files")
	fs.String("format", "json", "report format (json or yaml)")

	fs.StringSlice("kafka-brokers", nil, "Kafka brokers for publishing outcomes")
	fs.String("kafka-topic", "sitecheck-outcomes", "Kafka topic for outcomes")

	fs.String("listen", "", "address for the status server, e.g. :8081")
}

// BindFlags binds the known flags present in fs to their configuration keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}
