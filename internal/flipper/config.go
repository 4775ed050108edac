package flipper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaudRate is the baud rate of the Flipper Zero USB CLI
	DefaultBaudRate = 230400

	// DefaultPromptMarker is printed by the Flipper CLI when it is ready for the next command
	DefaultPromptMarker = ">:"

	DefaultPollInterval   = 10 * time.Millisecond
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultIdleTimeout    = 2 * time.Second
	DefaultCommandTimeout = 5 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

// DefaultPortPatterns are tried in order when no port name is configured.
var DefaultPortPatterns = []string{
	"/dev/cu.usbmodemflip*", // macOS
	"/dev/ttyACM*",          // Linux
	"COM*",                  // Windows
}

type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("flipper.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *TimeDuration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("flipper.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d)
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// Config describes how to reach the device and how long to wait for its answers.
type Config struct {
	PortName     string   `yaml:"portName" json:"portName,omitempty"`         // explicit port, skips discovery
	PortPatterns []string `yaml:"portPatterns" json:"portPatterns,omitempty"` // glob patterns used for discovery
	BaudRate     int      `yaml:"baudRate" json:"baudRate"`
	PromptMarker string   `yaml:"promptMarker" json:"promptMarker"`

	PollInterval   TimeDuration `yaml:"pollInterval" json:"pollInterval"`     // serial read timeout per poll
	SettleDelay    TimeDuration `yaml:"settleDelay" json:"settleDelay"`       // wait after opening the port
	IdleTimeout    TimeDuration `yaml:"idleTimeout" json:"idleTimeout"`       // stop when no bytes arrive for this long
	CommandTimeout TimeDuration `yaml:"commandTimeout" json:"commandTimeout"` // hard deadline for short commands
	ReadTimeout    TimeDuration `yaml:"readTimeout" json:"readTimeout"`       // hard deadline for file transfers
}

// NewConfig returns the configuration matching the Flipper Zero USB CLI defaults
func NewConfig() *Config {
	return &Config{
		PortPatterns:   append([]string(nil), DefaultPortPatterns...),
		BaudRate:       DefaultBaudRate,
		PromptMarker:   DefaultPromptMarker,
		PollInterval:   NewTimeDuration(DefaultPollInterval),
		SettleDelay:    NewTimeDuration(DefaultSettleDelay),
		IdleTimeout:    NewTimeDuration(DefaultIdleTimeout),
		CommandTimeout: NewTimeDuration(DefaultCommandTimeout),
		ReadTimeout:    NewTimeDuration(DefaultReadTimeout),
	}
}

func (c *Config) Validate() error {
	if c.PortName == "" && len(c.PortPatterns) == 0 {
		return NewConfigError("flipper.Config: either port name or port patterns must be set")
	}
	if c.BaudRate <= 0 {
		return NewConfigError(fmt.Sprintf("flipper.Config: baud rate must be positive: %d", c.BaudRate))
	}
	if strings.TrimSpace(c.PromptMarker) == "" {
		return NewConfigError("flipper.Config: prompt marker must not be empty")
	}

	durations := []struct {
		name     string
		value    TimeDuration
		required bool
	}{
		{"poll interval", c.PollInterval, true},
		{"settle delay", c.SettleDelay, false},
		{"idle timeout", c.IdleTimeout, false},
		{"command timeout", c.CommandTimeout, true},
		{"read timeout", c.ReadTimeout, true},
	}
	for _, d := range durations {
		if d.value < 0 {
			return NewConfigError(fmt.Sprintf("flipper.Config: %s must not be negative: %s", d.name, d.value))
		}
		if d.required && d.value == 0 {
			return NewConfigError(fmt.Sprintf("flipper.Config: %s is required", d.name))
		}
	}

	if c.PollInterval > c.CommandTimeout {
		return NewConfigError(fmt.Sprintf("flipper.Config: poll interval %s exceeds command timeout %s", c.PollInterval, c.CommandTimeout))
	}

	return nil
}

// CommandDeadlines returns the deadlines used for short request/response commands
func (c *Config) CommandDeadlines() Deadlines {
	return Deadlines{Idle: c.IdleTimeout.Duration(), Hard: c.CommandTimeout.Duration()}
}

// TransferDeadlines returns the deadlines used while a file is being streamed
func (c *Config) TransferDeadlines() Deadlines {
	return Deadlines{Idle: c.IdleTimeout.Duration(), Hard: c.ReadTimeout.Duration()}
}
