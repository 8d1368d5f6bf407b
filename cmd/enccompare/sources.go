package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandSources flattens the user's source arguments. Entries ending in
// .txt are read as list files, one source per line with blank lines and
// "#" comments skipped. List files do not nest. Every entry is reduced to
// its base name without extension, matching how sources are keyed in the
// database.
func expandSources(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.EqualFold(filepath.Ext(arg), ".txt") {
			entries, err := readSourceList(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
			continue
		}
		out = append(out, baseName(arg))
	}
	return out, nil
}

func readSourceList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading source list %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.EqualFold(filepath.Ext(line), ".txt") {
			return nil, fmt.Errorf("source list %s: nested list %s not supported", path, line)
		}
		out = append(out, baseName(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading source list %s: %w", path, err)
	}
	return out, nil
}

// baseName strips the directory and extension from a source path, so
// users can pass the original file paths they encoded from.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
