package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNoURLs = errors.New("no URLs provided via --file or positional arguments")

// ParseLines returns the URLs listed in r. Everything after '#' on a line
// is a comment; blank lines are skipped.
func ParseLines(r io.Reader) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}

	return urls, nil
}

func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file %s: %w", path, err)
	}
	defer f.Close()

	return ParseLines(f)
}

// Load merges positional URLs and the URL file, in that order, dropping
// duplicates while keeping the first occurrence.
func Load(file string, args []string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			urls = append(urls, a)
		}
	}

	if file != "" {
		fromFile, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	urls = Dedupe(urls)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	return urls, nil
}

func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := urls[:0:0]
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// FileSource reloads the URL list when its watcher reports a change.
// A list that became empty is not an error; the round is skipped instead.
type FileSource struct {
	watcher *Watcher
	file    string
	args    []string
}

func NewFileSource(w *Watcher, file string, args []string) *FileSource {
	return &FileSource{watcher: w, file: file, args: args}
}

func (s *FileSource) Changed() bool {
	return s.watcher.Changed()
}

func (s *FileSource) Load() ([]string, error) {
	urls, err := Load(s.file, s.args)
	if errors.Is(err, ErrNoURLs) {
		return nil, nil
	}
	return urls, err
}
