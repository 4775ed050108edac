package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/retrieve"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, os.Stdout, flipper.Open)
}

func run(ctx context.Context, config *Config, logger *slog.Logger, out io.Writer, open retrieve.Opener) (err error) {
	policy, err := config.Policy()
	if err != nil {
		return err
	}

	options := []func(*retrieve.Retriever){
		retrieve.WithLogger(logger),
		retrieve.WithOpener(open),
	}

	if config.Archive.Path != "" {
		store := storage.NewSqliteStore(config.Archive.Path)
		defer func() {
			if cErr := store.Close(); cErr != nil && err == nil {
				err = fmt.Errorf("closing archive: %w", cErr)
			}
		}()
		options = append(options, retrieve.WithArchive(store))
	}

	r := retrieve.New(retrieve.Options{
		Device:     &config.Device,
		RemotePath: config.Retrieval.RemotePath,
		OutputPath: config.Retrieval.Output,
		Policy:     policy,
		Config:     config,
	}, options...)

	result, err := r.Run(ctx)
	if err != nil {
		printFailure(out, err)
		return fmt.Errorf("retrieving log: %w", err)
	}

	printResult(out, result, config.Retrieval.Preview)
	return nil
}

func printResult(w io.Writer, result *retrieve.Result, preview int) {
	fmt.Fprintf(w, "\nRetrieved %s lines of data (%s)\n", humanize.Comma(int64(result.Extraction.Len())), humanize.Bytes(uint64(result.Bytes)))
	fmt.Fprintf(w, "Saved to: %s\n", result.OutputPath)
	if result.SessionID > 0 {
		fmt.Fprintf(w, "Archived as session %d\n", result.SessionID)
	}

	lines := result.Preview(preview)
	if len(lines) == 0 {
		return
	}

	fmt.Fprintf(w, "\nFirst %d lines:\n", len(lines))
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "\n... (%d total lines)\n", result.Extraction.Len())
}

// printFailure writes what the device answered when it was reachable, so that a
// missing or empty log can be told apart from a protocol problem
func printFailure(w io.Writer, err error) {
	var respErr *flipper.ResponseError
	var noData *retrieve.NoDataError

	switch {
	case errors.As(err, &respErr):
		fmt.Fprintln(w, "Log file not found. The app may not have written data yet.")
		fmt.Fprintln(w, respErr.Response)

	case errors.As(err, &noData):
		fmt.Fprintln(w, "No CSV data found in response")
		fmt.Fprintln(w, "Raw response:")
		fmt.Fprintln(w, noData.Raw)

	case errors.Is(err, flipper.ErrDeviceNotFound):
		fmt.Fprintln(w, "Flipper Zero not found. Please connect it via USB.")

	case errors.Is(err, flipper.ErrPortBusy):
		fmt.Fprintln(w, "The serial port is in use. Close qFlipper or any other terminal attached to it.")

	case errors.Is(err, flipper.ErrPermissionDenied):
		fmt.Fprintln(w, "Permission denied on the serial port. Add your user to the dialout group or use sudo.")

	case errors.Is(err, sensorlog.ErrNoData):
		fmt.Fprintln(w, "No CSV data found in response")
	}
}
