// Package input resolves secret-bearing flag values that use the - (stdin)
// or @file syntax, so cookies need not appear in shell history.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmpty is returned when a source holds no non-empty line
var ErrEmpty = errors.New("no value found")

// ResolveValue expands v. "-" reads from stdin, "@path" reads the file at
// path, anything else is returned trimmed.
func ResolveValue(v string, stdin io.Reader) (string, error) {
	switch {
	case v == "-":
		return FirstLine(stdin)
	case strings.HasPrefix(v, "@"):
		path := strings.TrimPrefix(v, "@")
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		defer f.Close()
		line, err := FirstLine(f)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return line, nil
	default:
		return strings.TrimSpace(v), nil
	}
}

// FirstLine returns the first non-empty line of r
func FirstLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 64*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrEmpty
}
