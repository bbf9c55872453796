package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// BatchEntry is one line of a batch configuration file:
// directory[,drs[,splitter]].
type BatchEntry struct {
	Directory string
	DRS       string
	Splitter  string
}

// ParseBatch reads a batch configuration. Blank lines and lines starting
// with # are skipped.
func ParseBatch(r io.Reader) ([]BatchEntry, error) {
	var entries []BatchEntry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) > 3 {
			return nil, fmt.Errorf("line %d: expected at most 3 fields, got %d", lineNo, len(parts))
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		entry := BatchEntry{Directory: parts[0]}
		if entry.Directory == "" {
			return nil, fmt.Errorf("line %d: directory is required", lineNo)
		}
		if len(parts) > 1 {
			entry.DRS = parts[1]
		}
		if len(parts) > 2 {
			entry.Splitter = parts[2]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch configuration: %w", err)
	}

	return entries, nil
}
