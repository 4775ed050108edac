package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/storage"
)

const (
	// DefaultRemotePath is where the on-device logger writes its CSV
	DefaultRemotePath = "/ext/apps_data/reality_clock/sensor_log.csv"

	// DefaultDebugRemotePath is the debug log, read with the digit policy
	DefaultDebugRemotePath = "/ext/apps_data/reality_clock/debug_log.csv"

	DefaultOutputPath = "sensor_log.csv"

	// MaxRawResponse bounds the raw device response carried by errors
	MaxRawResponse = 2000
)

// Opener opens a CLI session on the device
type Opener func(ctx context.Context, config *flipper.Config, logger *slog.Logger) (*flipper.Session, error)

// NoDataError reports a transfer that produced no CSV data lines
type NoDataError struct {
	Raw   string // raw device response, truncated to MaxRawResponse bytes
	Bytes int    // full size of the raw response
	Stop  flipper.StopReason
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s (%s received, stopped on %s)", sensorlog.ErrNoData, humanize.Bytes(uint64(e.Bytes)), e.Stop)
}

func (e *NoDataError) Unwrap() error {
	return sensorlog.ErrNoData
}

// Options describe a single retrieval
type Options struct {
	Device     *flipper.Config
	RemotePath string
	OutputPath string
	Policy     sensorlog.Policy
	Config     any // archived alongside the session when an archive is set
}

// Result is a successful retrieval
type Result struct {
	Port       string
	RemotePath string
	OutputPath string
	Extraction *sensorlog.Extraction
	Bytes      int                // size of the raw transfer
	Stop       flipper.StopReason // why the transfer ended
	SessionID  int64              // archive session, 0 when not archived
}

// WithLogger sets the logger for the retriever
func WithLogger(logger *slog.Logger) func(r *Retriever) {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// WithArchive stores every successful retrieval in the archive
func WithArchive(store storage.Store) func(r *Retriever) {
	return func(r *Retriever) {
		r.archive = store
	}
}

// WithOpener replaces the function used to open the device session
func WithOpener(open Opener) func(r *Retriever) {
	return func(r *Retriever) {
		r.open = open
	}
}

// Retriever copies the sensor log from the device storage to a local file
type Retriever struct {
	options Options
	logger  *slog.Logger
	archive storage.Store
	open    Opener
}

// New creates a Retriever. Empty options fall back to the device defaults, the sensor
// log path and the header policy.
func New(options Options, opts ...func(r *Retriever)) *Retriever {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	if options.Device == nil {
		options.Device = flipper.NewConfig()
	}
	if options.RemotePath == "" {
		options.RemotePath = DefaultRemotePath
	}
	if options.OutputPath == "" {
		options.OutputPath = DefaultOutputPath
	}
	if options.Policy == nil {
		options.Policy = sensorlog.NewHeaderPolicy()
	}

	r := Retriever{
		options: options,
		logger:  logger,
		open:    flipper.Open,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// Run performs the retrieval: open, wake the CLI, check that the remote file exists,
// stream it, extract the CSV payload and write it to the output path. Nothing is
// retried. The output file is left untouched unless data lines were found.
func (r *Retriever) Run(ctx context.Context) (result *Result, err error) {
	device := r.options.Device
	if err = device.Validate(); err != nil {
		return nil, err
	}

	session, err := r.open(ctx, device, r.logger)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	defer func() {
		if cErr := session.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing port: %w", cErr)
		}
	}()

	logger := r.logger.With(slog.String("port", session.Name()), slog.String("remote", r.options.RemotePath))
	logger.Info("connected to device")

	if err = session.Wake(ctx, device.CommandDeadlines()); err != nil {
		return nil, err
	}

	if _, err = session.StatFile(ctx, r.options.RemotePath, device.CommandDeadlines()); err != nil {
		var respErr *flipper.ResponseError
		if errors.As(err, &respErr) {
			logger.Error("remote file not found", slog.String("response", truncate(respErr.Response)))
		}
		return nil, fmt.Errorf("checking remote file: %w", err)
	}

	logger.Info("reading remote file", slog.Duration("timeout", device.ReadTimeout.Duration()))

	resp, err := session.ReadFile(ctx, r.options.RemotePath, device.TransferDeadlines())
	if err != nil {
		return nil, fmt.Errorf("reading remote file: %w", err)
	}

	logger.Info("transfer finished",
		slog.String("received", humanize.Bytes(uint64(resp.Bytes))),
		slog.String("stop", string(resp.Stop)),
		slog.Duration("elapsed", resp.Elapsed))

	if !resp.PromptSeen {
		logger.Warn("prompt not seen, the log may be incomplete")
	}

	ex := sensorlog.Extract(resp.Text, r.options.Policy)
	if ex.Len() == 0 {
		return nil, &NoDataError{Raw: truncate(resp.Text), Bytes: resp.Bytes, Stop: resp.Stop}
	}

	if err = ex.WriteFile(r.options.OutputPath); err != nil {
		return nil, fmt.Errorf("saving log: %w", err)
	}

	logger.Info("log saved",
		slog.String("output", r.options.OutputPath),
		slog.String("lines", humanize.Comma(int64(ex.Len()))))

	result = &Result{
		Port:       session.Name(),
		RemotePath: r.options.RemotePath,
		OutputPath: r.options.OutputPath,
		Extraction: ex,
		Bytes:      resp.Bytes,
		Stop:       resp.Stop,
	}

	if r.archive != nil {
		if result.SessionID, err = r.store(ctx, session.Name(), ex); err != nil {
			return nil, fmt.Errorf("archiving log: %w", err)
		}
		logger.Info("log archived", slog.Int64("session", result.SessionID))
	}

	return result, nil
}

func (r *Retriever) store(ctx context.Context, port string, ex *sensorlog.Extraction) (int64, error) {
	log, err := sensorlog.Read(strings.NewReader(ex.Content()))
	if err != nil {
		return 0, fmt.Errorf("parsing log: %w", err)
	}

	id, err := r.archive.CreateSession(ctx, port, r.options.RemotePath, ex.Policy, ex.Header, r.options.Config)
	if err != nil {
		return 0, fmt.Errorf("creating session: %w", err)
	}

	if err = r.archive.StoreReadings(ctx, id, log.Readings); err != nil {
		return 0, fmt.Errorf("storing readings: %w", err)
	}

	return id, nil
}

// Preview returns up to n data lines from the start of the extraction
func (r *Result) Preview(n int) []string {
	if n > r.Extraction.Len() {
		n = r.Extraction.Len()
	}
	return r.Extraction.Lines[:n]
}

func truncate(s string) string {
	if len(s) <= MaxRawResponse {
		return s
	}
	return strings.ToValidUTF8(s[:MaxRawResponse], "")
}
