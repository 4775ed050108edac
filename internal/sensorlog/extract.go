package sensorlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoData is returned when a response holds no CSV data lines
var ErrNoData = errors.New("no CSV data found in response")

// Extraction is the CSV payload found in a captured response
type Extraction struct {
	Policy string   // Name of the policy that produced it
	Header string   // Header row, empty when the payload had none
	Lines  []string // Data rows in response order
}

// Extract scans a captured CLI response once, line by line, and returns the CSV
// payload selected by the policy. Header rows are reported separately from data rows.
func Extract(text string, p Policy) *Extraction {
	ex := Extraction{Policy: p.Name()}

	token := p.HeaderToken()
	capturing := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if !capturing {
			if !p.Starts(line) {
				continue
			}
			capturing = true
		} else if p.Ends(line) {
			break
		}

		if token != "" && strings.HasPrefix(line, token) {
			if ex.Header == "" {
				ex.Header = line
			}
			continue // repeated headers are not data
		}

		if p.Keeps(line) {
			ex.Lines = append(ex.Lines, line)
		}
	}

	return &ex
}

// Len returns the number of data rows
func (e *Extraction) Len() int {
	return len(e.Lines)
}

// Content returns the payload as CSV text: header (if any) and data rows, newline
// terminated
func (e *Extraction) Content() string {
	var sb strings.Builder
	if e.Header != "" {
		sb.WriteString(e.Header)
		sb.WriteByte('\n')
	}
	for _, line := range e.Lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WriteFile replaces path with the payload. Nothing is written when there are no data
// rows, so an existing file survives a failed retrieval.
func (e *Extraction) WriteFile(path string) (err error) {
	if e.Len() == 0 {
		return ErrNoData
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(e.Content()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
