package flipper

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial"
)

// listPorts enumerates the serial ports known to the OS
var listPorts = serial.GetPortsList

// Discover finds the Flipper serial port. Patterns are tried in order; within a pattern
// a port with "flip" in its name wins, otherwise the first match is used. Patterns
// without a directory (e.g. "COM*") are matched against the OS port list, because
// such ports do not exist on the file system.
func Discover(patterns []string) (string, error) {
	var osPorts []string
	var osPortsLoaded bool

	for _, pattern := range patterns {
		var matches []string

		if filepath.Dir(pattern) == "." {
			if !osPortsLoaded {
				osPorts, _ = listPorts() // enumeration failure means no candidates
				osPortsLoaded = true
			}
			for _, p := range osPorts {
				if ok, err := filepath.Match(pattern, p); err == nil && ok {
					matches = append(matches, p)
				}
			}
		} else {
			var err error
			if matches, err = filepath.Glob(pattern); err != nil {
				return "", NewConfigError(fmt.Sprintf("invalid port pattern '%s': %s", pattern, err))
			}
		}

		if len(matches) == 0 {
			continue // continue to next pattern
		}

		sort.Strings(matches)
		for _, m := range matches {
			if strings.Contains(strings.ToLower(filepath.Base(m)), "flip") {
				return m, nil
			}
		}
		return matches[0], nil
	}

	return "", fmt.Errorf("%w: no port matches %s", ErrDeviceNotFound, strings.Join(patterns, ", "))
}
