package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxRecordSize bounds how much of a puzzle record is read.
const maxRecordSize = 4 << 20

// Loader reads puzzle records from files, stdin or a remote provider.
type Loader struct {
	client *http.Client
	stdin  io.Reader
}

// NewLoader creates a loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
		stdin:  os.Stdin,
	}
}

// Load reads the record at src and builds its puzzle. src is a file path,
// "-" for stdin, or an http(s) URL.
func (l *Loader) Load(ctx context.Context, src string) (*Puzzle, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case src == "-":
		data, err = io.ReadAll(io.LimitReader(l.stdin, maxRecordSize))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, err = l.fetch(ctx, src)
	default:
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	return DecodePuzzle(data)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch puzzle: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch puzzle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch puzzle: unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRecordSize))
}
