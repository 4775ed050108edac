package sensorlog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadFile parses a sensor log from disk
func ReadFile(path string) (log *Log, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing log: %w", cErr)
		}
	}()

	return Read(f)
}

// Read parses a comma separated sensor log. The first non-empty line is the header
// unless it starts with a number, in which case DefaultColumns applies and the line is
// data. Fields of tracked columns that are missing or not numeric are skipped one by
// one; the rest of the row is still used.
func Read(r io.Reader) (*Log, error) {
	var log Log
	var columns []Column

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")

		if columns == nil {
			if startsWithDigit(line) || strings.HasPrefix(line, "-") {
				columns = DefaultColumns
				log.Header = columnNames(DefaultColumns)
			} else {
				columns = make([]Column, len(fields))
				log.Header = make([]string, len(fields))
				for i, field := range fields {
					name := strings.TrimSpace(field)
					columns[i] = Column(name)
					log.Header[i] = name
				}
				continue
			}
		}

		log.Readings = append(log.Readings, log.parseRow(columns, fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}

	return &log, nil
}

func (l *Log) parseRow(columns []Column, fields []string) Reading {
	var reading Reading

	for i, column := range columns {
		if reading.Value(column) != nil || !isTracked(column) {
			continue
		}
		if i >= len(fields) {
			l.Skipped++ // short row
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			l.Skipped++
			continue
		}
		reading.Set(column, v)
	}

	return reading
}

func isTracked(c Column) bool {
	var r Reading
	return r.field(c) != nil
}

func columnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.String()
	}
	return names
}
