// Package input provides helpers for reading flag values from stdin and
// files (@file syntax).
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Expand resolves a flag value that may use - (stdin) or @file syntax.
// Plain values pass through unchanged.
func Expand(value string) (string, error) {
	if value == "-" {
		return readAll(os.Stdin)
	}
	if strings.HasPrefix(value, "@") {
		path := strings.TrimPrefix(value, "@")
		file, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		defer file.Close()
		return readAll(file)
	}
	return value, nil
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
