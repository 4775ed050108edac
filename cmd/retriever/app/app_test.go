package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/retrieve"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

func TestNewConfigFromCLI_Defaults(t *testing.T) {
	c, err := NewConfigFromCLI(nil)
	require.NoError(t, err)
	require.Equal(t, retrieve.DefaultRemotePath, c.Retrieval.RemotePath)
	require.Equal(t, retrieve.DefaultOutputPath, c.Retrieval.Output)
	require.Equal(t, sensorlog.PolicyHeader, c.Retrieval.Policy)
	require.Equal(t, 10, c.Retrieval.Preview)
	require.Equal(t, flipper.DefaultBaudRate, c.Device.BaudRate)
	require.Empty(t, c.Device.PortName)
	require.Empty(t, c.Archive.Path)
}

func TestNewConfigFromCLI_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retriever.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
settings:
  logLevel: debug
device:
  portName: /dev/ttyACM1
  readTimeout: 45s
retrieval:
  output: from-file.csv
  policy: digit
archive:
  path: archive.db
`), 0o644))

	c, err := NewConfigFromCLI([]string{"-c", path, "-o", "from-flag.csv", "-port", "/dev/ttyACM2"})
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM2", c.Device.PortName)
	require.Equal(t, 45*time.Second, c.Device.ReadTimeout.Duration())
	require.Equal(t, flipper.DefaultIdleTimeout, c.Device.IdleTimeout.Duration())
	require.Equal(t, "from-flag.csv", c.Retrieval.Output)
	require.Equal(t, sensorlog.PolicyDigit, c.Retrieval.Policy)
	require.Equal(t, "archive.db", c.Archive.Path)

	level, err := c.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestNewConfigFromCLI_DebugLog(t *testing.T) {
	c, err := NewConfigFromCLI([]string{"-debug-log"})
	require.NoError(t, err)
	require.Equal(t, retrieve.DefaultDebugRemotePath, c.Retrieval.RemotePath)
	require.Equal(t, sensorlog.PolicyDigit, c.Retrieval.Policy)

	p, err := c.Policy()
	require.NoError(t, err)
	require.Equal(t, sensorlog.PolicyDigit, p.Name())
}

func TestNewConfigFromCLI_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown policy", []string{"-policy", "regex"}},
		{"empty remote", []string{"-remote", ""}},
		{"negative preview", []string{"-preview", "-1"}},
		{"missing config file", []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfigFromCLI(tc.args)
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retriever.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  baud: 9600\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	result := &retrieve.Result{
		OutputPath: "sensor_log.csv",
		Bytes:      2048,
		Extraction: &sensorlog.Extraction{
			Header: "timestamp_ms,rssi_315",
			Lines:  []string{"1000,-80", "2000,-81", "3000,-82"},
		},
	}

	var buf bytes.Buffer
	printResult(&buf, result, 2)

	out := buf.String()
	require.Contains(t, out, "Retrieved 3 lines of data (2.0 kB)")
	require.Contains(t, out, "Saved to: sensor_log.csv")
	require.Contains(t, out, "First 2 lines:\n  1000,-80\n  2000,-81\n")
	require.NotContains(t, out, "3000,-82")
	require.Contains(t, out, "... (3 total lines)")
}

func TestRun_DeviceNotFound(t *testing.T) {
	open := func(context.Context, *flipper.Config, *slog.Logger) (*flipper.Session, error) {
		return nil, flipper.ErrDeviceNotFound
	}

	c := NewConfig()
	c.Retrieval.Output = filepath.Join(t.TempDir(), "sensor_log.csv")

	var buf bytes.Buffer
	err := run(context.Background(), c, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), &buf, open)
	require.ErrorIs(t, err, flipper.ErrDeviceNotFound)
	require.Contains(t, buf.String(), "Flipper Zero not found")
	require.NoFileExists(t, c.Retrieval.Output)
}

func TestPrintFailure(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			"remote not found",
			&flipper.ResponseError{Command: "storage stat x", Response: "Storage error: not found", Err: flipper.ErrRemoteNotFound},
			"Storage error: not found",
		},
		{
			"no data",
			&retrieve.NoDataError{Raw: "Size: 0", Stop: flipper.StopPrompt},
			"Raw response:\nSize: 0",
		},
		{"busy", errors.Join(flipper.ErrPortOpen, flipper.ErrPortBusy), "in use"},
		{"permission", errors.Join(flipper.ErrPortOpen, flipper.ErrPermissionDenied), "Permission denied"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			printFailure(&buf, tc.err)
			require.Contains(t, buf.String(), tc.expected)
		})
	}
}
