package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/retrieve"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/stats"
	"github.com/roman-kulish/sensorlog/internal/storage"
)

// ErrLogUnavailable is returned when there is no local log and it could not be
// downloaded
var ErrLogUnavailable = errors.New("sensor log unavailable")

// console is the interactive surface of a run
type console struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	open        retrieve.Opener
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, console{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: isTerminal(os.Stdin),
		open:        flipper.Open,
	})
}

func run(ctx context.Context, config *Config, logger *slog.Logger, con console) error {
	report := NewReportWriter(con.out, !config.NoColor)

	var log *sensorlog.Log
	var err error
	if config.DBPath != "" {
		if log, err = loadArchived(ctx, config, report, logger); err != nil || log == nil {
			return err
		}
	} else {
		report.Banner()

		var ok bool
		if ok, err = ensureLocalLog(ctx, config, report, logger, con); err != nil || !ok {
			return err
		}
		if log, err = sensorlog.ReadFile(config.CSVPath); err != nil {
			return fmt.Errorf("reading sensor log: %w", err)
		}
	}

	if log.Skipped > 0 {
		logger.Warn("skipped malformed fields", slog.Int("fields", log.Skipped))
	}

	summary := stats.Summarize(log)
	report.Summary(summary)

	if config.ChartFile != "" {
		if err = renderChart(config, log, summary, logger); err != nil {
			return err
		}
	}

	return nil
}

// loadArchived reads a session from the archive. Without a session ID the sessions
// are listed and a nil log is returned.
func loadArchived(ctx context.Context, config *Config, report *ReportWriter, logger *slog.Logger) (log *sensorlog.Log, err error) {
	if _, err = os.Stat(config.DBPath); err != nil {
		return nil, fmt.Errorf("opening archive '%s': %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cErr := store.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing archive: %w", cErr)
		}
	}()

	if config.SessionID == 0 {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		report.Sessions(sessions)
		return nil, nil
	}

	logger.Info("reading archived session",
		slog.String("archive", config.DBPath),
		slog.Int64("session", config.SessionID))

	if log, err = store.ReadLog(ctx, config.SessionID); err != nil {
		return nil, fmt.Errorf("reading session %d: %w", config.SessionID, err)
	}
	return log, nil
}

// ensureLocalLog decides whether the local log can be analyzed, downloading it from
// the device when it is missing. false without an error means the user declined.
func ensureLocalLog(ctx context.Context, config *Config, report *ReportWriter, logger *slog.Logger, con console) (bool, error) {
	_, err := os.Stat(config.CSVPath)
	switch {
	case err == nil:
		fmt.Fprintf(con.out, "Found existing log at: %s\n", config.CSVPath)

		reuse, err := shouldReuse(config, con)
		if err != nil {
			return false, err
		}
		if !reuse {
			report.ManualCopyHelp(config.RemotePath, config.CSVPath)
			return false, nil
		}
		return true, nil

	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("checking sensor log: %w", err)
	}

	report.CollectionHelp(config.RemotePath, config.CSVPath)

	if config.NoRetrieve {
		report.ManualCopyHelp(config.RemotePath, config.CSVPath)
		return false, ErrLogUnavailable
	}

	fmt.Fprintln(con.out, "\nTrying to download via CLI...")

	device := flipper.NewConfig()
	device.PortName = config.PortName

	r := retrieve.New(retrieve.Options{
		Device:     device,
		RemotePath: config.RemotePath,
		OutputPath: config.CSVPath,
		Policy:     sensorlog.NewHeaderPolicy(),
	}, retrieve.WithLogger(logger), retrieve.WithOpener(con.open))

	result, err := r.Run(ctx)
	if err != nil {
		fmt.Fprintln(con.out, "\nCould not download automatically.")
		fmt.Fprintln(con.out, "Please manually copy the file.")
		return false, fmt.Errorf("%w: %w", ErrLogUnavailable, err)
	}

	fmt.Fprintf(con.out, "Downloaded %d lines to %s\n", result.Extraction.Len(), result.OutputPath)
	fmt.Fprintln(con.out, "Download successful!")
	return true, nil
}

func shouldReuse(config *Config, con console) (bool, error) {
	if config.Reuse != nil {
		return *config.Reuse, nil
	}
	if !con.interactive {
		return true, nil
	}
	return askYesNo(con.in, con.out, "Use existing file? (y/n): ")
}

func renderChart(config *Config, log *sensorlog.Log, summary *stats.Summary, logger *slog.Logger) error {
	data, ok := NewChartData(log, summary)
	if !ok {
		logger.Warn("no RSSI values to chart")
		return nil
	}

	renderer, err := NewChartRenderer(config.Theme)
	if err != nil {
		return fmt.Errorf("creating chart renderer: %w", err)
	}

	logger.Info("rendering chart",
		slog.Group("image",
			slog.String("destination", config.ChartFile),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", data.Width),
			slog.Int("bands", len(data.Bands)),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	return saveChart(config.ChartFile, img)
}
