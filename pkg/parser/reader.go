package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLines reads every line of the file at path.
// Line terminators are removed; any other byte, including a trailing '\r',
// is kept so lines can be written back verbatim. A final line without a
// terminating newline is still returned.
func ReadLines(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrUnreadableInput, path, err)
	}
	defer f.Close()

	lines, err := readLines(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func readLines(ctx context.Context, r io.Reader) ([]string, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var lines []string

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lines = append(lines, strings.TrimSuffix(line, "\n"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
		}
	}
}

// ReadDataset reads and parses the file at path.
func ReadDataset(ctx context.Context, path string) (*Dataset, error) {
	lines, err := ReadLines(ctx, path)
	if err != nil {
		return nil, err
	}
	return Parse(path, lines), nil
}

// WriteLines writes lines to path, one per line, replacing any existing file.
func WriteLines(path string, lines []string) error {
	f, err := os.Create(path) // #nosec G304 -- output location is user-controlled
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrOutputWrite, path, err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: writing %s: %v", ErrOutputWrite, path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: writing %s: %v", ErrOutputWrite, path, err)
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: flushing %s: %v", ErrOutputWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrOutputWrite, path, err)
	}
	return nil
}
