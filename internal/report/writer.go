package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ozzus/sitecheck/internal/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FileName is status.<ext> for a single run and status_round_N.<ext> in periodic mode.
func FileName(round int, periodic bool, format Format) string {
	if periodic {
		return fmt.Sprintf("status_round_%d.%s", round, format)
	}
	return fmt.Sprintf("status.%s", format)
}

// Encode writes entries to w in the given format.
func Encode(w io.Writer, format Format, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	}
}

// Writer persists round reports into a directory.
type Writer struct {
	dir    string
	format Format
}

func NewWriter(dir string, format Format) *Writer {
	if dir == "" {
		dir = "."
	}
	if format == "" {
		format = FormatJSON
	}
	return &Writer{dir: dir, format: format}
}

// Write stores outcomes for round and returns the file path.
func (w *Writer) Write(round int, periodic bool, outcomes []domain.CheckOutcome) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure report directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, w.format, Entries(outcomes)); err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, FileName(round, periodic, w.format))
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write temp report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("replace report file: %w", err)
	}

	return path, nil
}
