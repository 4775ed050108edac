package flipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.bug.st/serial"
)

const readChunkSize = 1024

// StopReason tells why Exec stopped collecting a response
type StopReason string

const (
	StopPrompt       StopReason = "prompt"   // prompt marker seen
	StopIdle         StopReason = "idle"     // no new bytes within the idle deadline
	StopHardDeadline StopReason = "deadline" // hard deadline elapsed
	StopClosed       StopReason = "closed"   // port returned EOF
)

// Port is the part of a serial port the session relies on. go.bug.st/serial ports
// satisfy it; Read must return (0, nil) when the read timeout elapses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Deadlines bound a single command exchange. A zero value disables the deadline.
type Deadlines struct {
	Idle time.Duration // counted from the last received byte, once data started to arrive
	Hard time.Duration // counted from the moment the command was sent
}

// Response is the text captured after a command was sent
type Response struct {
	Command    string
	Text       string
	Bytes      int
	PromptSeen bool
	Stop       StopReason
	Elapsed    time.Duration
}

// WithLogger sets the logger for the session
func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.String("port", s.name))
	}
}

// WithPromptMarker overrides the prompt marker used as the end-of-response sentinel
func WithPromptMarker(marker string) func(s *Session) {
	return func(s *Session) {
		s.prompt = []byte(marker)
	}
}

// WithPollInterval sets the serial read timeout used between deadline checks
func WithPollInterval(d time.Duration) func(s *Session) {
	return func(s *Session) {
		s.poll = d
	}
}

// Session is a request/response exchange with the Flipper CLI over one serial port.
// It is owned by a single caller and is not safe for concurrent use.
type Session struct {
	name   string
	port   Port
	prompt []byte
	poll   time.Duration

	logger *slog.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// NewSession wraps an already opened port, with a discard logger
func NewSession(name string, port Port, options ...func(s *Session)) *Session {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := Session{
		name:   name,
		port:   port,
		prompt: []byte(DefaultPromptMarker),
		poll:   DefaultPollInterval,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Open resolves the port (configured name or discovery), opens it and discards any
// stale bytes left from a previous session. The caller must Close the session.
func Open(ctx context.Context, config *Config, logger *slog.Logger) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	name := config.PortName
	if name == "" {
		var err error
		if name, err = Discover(config.PortPatterns); err != nil {
			return nil, err
		}
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, classifyOpenError(name, err)
	}

	s := NewSession(name, port,
		WithLogger(logger),
		WithPromptMarker(config.PromptMarker),
		WithPollInterval(config.PollInterval.Duration()))

	if err = s.sleep(ctx, config.SettleDelay.Duration()); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err = s.Drain(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("discarding stale input: %w", err)
	}

	return s, nil
}

func classifyOpenError(name string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return fmt.Errorf("%w: %w: %s", ErrPortOpen, ErrPortBusy, name)
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %w: %s", ErrPortOpen, ErrPermissionDenied, name)
		case serial.PortNotFound:
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrPortOpen, name, err)
}

// Name returns the serial port name of the session
func (s *Session) Name() string {
	return s.name
}

// Drain discards pending input: the OS buffer is reset and whatever arrives within
// one poll interval is read and dropped.
func (s *Session) Drain(ctx context.Context) error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("resetting input buffer: %w", err)
	}
	if err := s.port.SetReadTimeout(s.poll); err != nil {
		return fmt.Errorf("setting read timeout: %w", err)
	}

	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.port.Read(chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading stale input: %w", err)
		}
		if n == 0 || err != nil {
			return nil
		}
		s.logger.Debug("discarded stale input", slog.Int("bytes", n))
	}
}

// Exec sends a command terminated with CRLF and collects the response until the
// prompt marker shows up or one of the deadlines elapses. Deadlines are not errors:
// the caller decides what an incomplete response means.
func (s *Session) Exec(ctx context.Context, command string, d Deadlines) (*Response, error) {
	if err := s.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("resetting input buffer: %w", err)
	}
	if _, err := s.port.Write([]byte(command + "\r\n")); err != nil {
		return nil, fmt.Errorf("writing command '%s': %w", command, err)
	}
	if err := s.port.SetReadTimeout(s.poll); err != nil {
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)

	resp := Response{Command: command}
	start := s.now()
	var lastData time.Time

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := s.port.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			lastData = s.now()

			if bytes.Contains(buf.Bytes(), s.prompt) {
				resp.PromptSeen = true
				resp.Stop = StopPrompt
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				resp.Stop = StopClosed
				break
			}
			return nil, fmt.Errorf("reading response to '%s': %w", command, err)
		}

		now := s.now()
		if d.Hard > 0 && now.Sub(start) >= d.Hard {
			resp.Stop = StopHardDeadline
			break
		}
		if d.Idle > 0 && n == 0 && !lastData.IsZero() && now.Sub(lastData) >= d.Idle {
			resp.Stop = StopIdle
			break
		}
	}

	resp.Bytes = buf.Len()
	resp.Text = strings.ToValidUTF8(buf.String(), "�")
	resp.Elapsed = s.now().Sub(start)

	s.logger.Debug("command completed",
		slog.String("command", command),
		slog.Int("bytes", resp.Bytes),
		slog.String("stop", string(resp.Stop)),
		slog.Duration("elapsed", resp.Elapsed))

	return &resp, nil
}

// Wake sends a bare newline to get a fresh prompt and discards the answer
func (s *Session) Wake(ctx context.Context, d Deadlines) error {
	if _, err := s.Exec(ctx, "", d); err != nil {
		return fmt.Errorf("waking CLI: %w", err)
	}
	return nil
}

// StatFile asks the device about a file. A response mentioning an error or "not found"
// yields a *ResponseError wrapping ErrRemoteNotFound.
func (s *Session) StatFile(ctx context.Context, path string, d Deadlines) (*Response, error) {
	resp, err := s.Exec(ctx, "storage stat "+path, d)
	if err != nil {
		return nil, err
	}

	if strings.Contains(resp.Text, "Error") || strings.Contains(strings.ToLower(resp.Text), "not found") {
		return resp, &ResponseError{Command: resp.Command, Response: resp.Text, Err: ErrRemoteNotFound}
	}
	return resp, nil
}

// ReadFile streams a file through the CLI and returns the raw response, command echo
// and prompt included
func (s *Session) ReadFile(ctx context.Context, path string, d Deadlines) (*Response, error) {
	return s.Exec(ctx, "storage read "+path, d)
}

// Close closes the serial port
func (s *Session) Close() error {
	return s.port.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
