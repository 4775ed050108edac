package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/storage"
)

const testCSV = "timestamp_ms,rssi_315,rssi_433,rssi_868,temperature,voltage,phi_current,match_pct\n" +
	"1000,-85,-90,-95,24.0,3.900,45,97\n" +
	"2000,-86,-91,-96,24.2,3.910,50,98\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func failingOpener() func(context.Context, *flipper.Config, *slog.Logger) (*flipper.Session, error) {
	return func(context.Context, *flipper.Config, *slog.Logger) (*flipper.Session, error) {
		return nil, flipper.ErrDeviceNotFound
	}
}

func testConfig(t *testing.T) *Config {
	c := NewConfig()
	c.CSVPath = filepath.Join(t.TempDir(), "sensor_log.csv")
	c.NoColor = true
	return c
}

func writeCSV(t *testing.T, path string) {
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))
}

func TestRun_ExistingFileNonInteractive(t *testing.T) {
	c := testConfig(t)
	writeCSV(t, c.CSVPath)

	var out bytes.Buffer
	err := run(context.Background(), c, testLogger(), console{in: strings.NewReader(""), out: &out, open: failingOpener()})
	require.NoError(t, err)
	require.Contains(t, out.String(), "Found existing log at: "+c.CSVPath)
	require.NotContains(t, out.String(), "Use existing file?")
	require.Contains(t, out.String(), "#define BASE_315  -85.5f")
}

func TestRun_ExistingFileInteractive(t *testing.T) {
	testCases := []struct {
		answer   string
		analyzed bool
	}{
		{"y\n", true},
		{"n\n", false},
	}

	for _, tc := range testCases {
		t.Run(strings.TrimSpace(tc.answer), func(t *testing.T) {
			c := testConfig(t)
			writeCSV(t, c.CSVPath)

			var out bytes.Buffer
			err := run(context.Background(), c, testLogger(), console{
				in:          strings.NewReader(tc.answer),
				out:         &out,
				interactive: true,
				open:        failingOpener(),
			})
			require.NoError(t, err)
			require.Contains(t, out.String(), "Use existing file? (y/n): ")

			if tc.analyzed {
				require.Contains(t, out.String(), "SENSOR DATA ANALYSIS")
			} else {
				require.NotContains(t, out.String(), "SENSOR DATA ANALYSIS")
				require.Contains(t, out.String(), "Please copy sensor_log.csv from your Flipper's SD card:")
			}
		})
	}
}

func TestRun_NoReuseFlag(t *testing.T) {
	c := testConfig(t)
	writeCSV(t, c.CSVPath)
	reuse := false
	c.Reuse = &reuse

	var out bytes.Buffer
	err := run(context.Background(), c, testLogger(), console{in: strings.NewReader("y\n"), out: &out, interactive: true, open: failingOpener()})
	require.NoError(t, err)
	require.NotContains(t, out.String(), "Use existing file?")
	require.NotContains(t, out.String(), "SENSOR DATA ANALYSIS")
}

func TestRun_MissingFileDownloadFails(t *testing.T) {
	c := testConfig(t)

	var out bytes.Buffer
	err := run(context.Background(), c, testLogger(), console{in: strings.NewReader(""), out: &out, open: failingOpener()})
	require.ErrorIs(t, err, ErrLogUnavailable)
	require.ErrorIs(t, err, flipper.ErrDeviceNotFound)
	require.Contains(t, out.String(), "No local log file found.")
	require.Contains(t, out.String(), "Trying to download via CLI...")
	require.Contains(t, out.String(), "Could not download automatically.")
	require.NoFileExists(t, c.CSVPath)
}

func TestRun_MissingFileNoRetrieve(t *testing.T) {
	c := testConfig(t)
	c.NoRetrieve = true

	opened := false
	open := func(context.Context, *flipper.Config, *slog.Logger) (*flipper.Session, error) {
		opened = true
		return nil, flipper.ErrDeviceNotFound
	}

	var out bytes.Buffer
	err := run(context.Background(), c, testLogger(), console{in: strings.NewReader(""), out: &out, open: open})
	require.ErrorIs(t, err, ErrLogUnavailable)
	require.False(t, opened)
	require.NotContains(t, out.String(), "Trying to download")
}

func TestRun_Archive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "archive.db")

	log, err := sensorlog.Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	store := storage.NewSqliteStore(dbPath)
	id, err := store.CreateSession(ctx, "/dev/ttyACM0", "/ext/sensor_log.csv", sensorlog.PolicyHeader, strings.Join(log.Header, ","), nil)
	require.NoError(t, err)
	require.NoError(t, store.StoreReadings(ctx, id, log.Readings))
	require.NoError(t, store.Close())

	c := testConfig(t)
	c.DBPath = dbPath

	var out bytes.Buffer
	con := console{in: strings.NewReader(""), out: &out, open: failingOpener()}
	require.NoError(t, run(ctx, c, testLogger(), con))
	require.Contains(t, out.String(), "/dev/ttyACM0")
	require.NotContains(t, out.String(), "SENSOR DATA ANALYSIS")

	out.Reset()
	c.SessionID = id
	c.ChartFile = filepath.Join(dir, "rssi.png")
	require.NoError(t, run(ctx, c, testLogger(), con))
	require.Contains(t, out.String(), "Total Samples: 2")
	require.Contains(t, out.String(), "#define BASE_433  -90.5f")
	require.FileExists(t, c.ChartFile)
}

func TestRun_ArchiveMissing(t *testing.T) {
	c := testConfig(t)
	c.DBPath = filepath.Join(t.TempDir(), "missing.db")

	err := run(context.Background(), c, testLogger(), console{in: strings.NewReader(""), out: &bytes.Buffer{}, open: failingOpener()})
	require.ErrorIs(t, err, os.ErrNotExist)
}
