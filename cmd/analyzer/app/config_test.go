package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/sensorlog/internal/retrieve"
)

func TestNewConfigFromCLI_Defaults(t *testing.T) {
	c, err := NewConfigFromCLI(nil)
	require.NoError(t, err)
	require.Equal(t, retrieve.DefaultOutputPath, c.CSVPath)
	require.Equal(t, retrieve.DefaultRemotePath, c.RemotePath)
	require.Equal(t, ClassicTheme, c.Theme)
	require.Nil(t, c.Reuse)
	require.Zero(t, c.SessionID)
}

func TestNewConfigFromCLI_Reuse(t *testing.T) {
	c, err := NewConfigFromCLI([]string{"-reuse"})
	require.NoError(t, err)
	require.NotNil(t, c.Reuse)
	require.True(t, *c.Reuse)

	c, err = NewConfigFromCLI([]string{"-no-reuse"})
	require.NoError(t, err)
	require.NotNil(t, c.Reuse)
	require.False(t, *c.Reuse)
}

func TestNewConfigFromCLI_Archive(t *testing.T) {
	c, err := NewConfigFromCLI([]string{"-db", "archive.db", "-s", "3", "-chart", "rssi.png", "-theme", "THERMAL"})
	require.NoError(t, err)
	require.Equal(t, "archive.db", c.DBPath)
	require.Equal(t, int64(3), c.SessionID)
	require.Equal(t, "rssi.png", c.ChartFile)
	require.Equal(t, ThermalTheme, c.Theme)
}

func TestNewConfigFromCLI_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		msg  string
	}{
		{"both reuse flags", []string{"-reuse", "-no-reuse"}, "mutually exclusive"},
		{"empty log path", []string{"-f", ""}, "log file path is required"},
		{"session without archive", []string{"-s", "2"}, "requires an archive"},
		{"negative session", []string{"-db", "a.db", "-s", "-2"}, "invalid session id"},
		{"unknown theme", []string{"-theme", "neon"}, "invalid color theme"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfigFromCLI(tc.args)
			require.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestAskYesNo(t *testing.T) {
	testCases := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"  y \r\n", true},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tc := range testCases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := askYesNo(strings.NewReader(tc.input), &out, "Use existing file? (y/n): ")
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
			require.Equal(t, "Use existing file? (y/n): ", out.String())
		})
	}
}
