package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/sensorlog/internal/flipper"
	"github.com/roman-kulish/sensorlog/internal/retrieve"
	"github.com/roman-kulish/sensorlog/internal/sensorlog"
)

const defaultPreviewLines = 10

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings" json:"-"`
	Device    flipper.Config  `yaml:"device" json:"device"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Archive   ArchiveConfig   `yaml:"archive" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// RetrievalConfig describes which file to read and where to put it
type RetrievalConfig struct {
	RemotePath  string `yaml:"remotePath" json:"remotePath"`
	Output      string `yaml:"output" json:"output"`
	Policy      string `yaml:"policy" json:"policy"`
	HeaderToken string `yaml:"headerToken" json:"headerToken,omitempty"` // empty keeps the policy default
	Preview     int    `yaml:"preview" json:"-"`                         // data lines printed after success
}

// ArchiveConfig represents the optional SQLite archive
type ArchiveConfig struct {
	Path string `yaml:"path"` // archive is disabled when empty
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo.String()},
		Device:   *flipper.NewConfig(),
		Retrieval: RetrievalConfig{
			RemotePath: retrieve.DefaultRemotePath,
			Output:     retrieve.DefaultOutputPath,
			Policy:     sensorlog.PolicyHeader,
			Preview:    defaultPreviewLines,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	c := NewConfig()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return c, nil
}

// NewConfigFromCLI builds the configuration from an optional config file (-c) and
// flags. Flags that are set explicitly override the file.
func NewConfigFromCLI(args []string) (*Config, error) {
	fs := flag.NewFlagSet("retriever", flag.ContinueOnError)

	var configPath, port, remote, output, policy, header, archive string
	var debugLog bool
	var preview int
	fs.StringVar(&configPath, "c", "", "Path to the configuration file")
	fs.StringVar(&port, "port", "", "Serial port, discovered when empty")
	fs.StringVar(&remote, "remote", retrieve.DefaultRemotePath, "Path of the log on the device")
	fs.StringVar(&output, "o", retrieve.DefaultOutputPath, "Path to the output file")
	fs.StringVar(&policy, "policy", sensorlog.PolicyHeader, "Extraction policy. [header, digit]")
	fs.StringVar(&header, "header", "", "Header row prefix, policy default when empty")
	fs.StringVar(&archive, "archive", "", "Path to the SQLite archive, disabled when empty")
	fs.BoolVar(&debugLog, "debug-log", false, "Retrieve debug_log.csv with the digit policy")
	fs.IntVar(&preview, "preview", defaultPreviewLines, "Number of data lines to print")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		var err error
		if c, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}

	if debugLog {
		c.Retrieval.RemotePath = retrieve.DefaultDebugRemotePath
		c.Retrieval.Output = "debug_log.csv"
		c.Retrieval.Policy = sensorlog.PolicyDigit
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			c.Device.PortName = port
		case "remote":
			c.Retrieval.RemotePath = remote
		case "o":
			c.Retrieval.Output = output
		case "policy":
			c.Retrieval.Policy = policy
		case "header":
			c.Retrieval.HeaderToken = header
		case "archive":
			c.Archive.Path = archive
		case "preview":
			c.Retrieval.Preview = preview
		}
	})

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}

func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if err := c.Device.Validate(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}

	switch {
	case strings.TrimSpace(c.Retrieval.RemotePath) == "":
		return errors.New("remote path is required")
	case strings.TrimSpace(c.Retrieval.Output) == "":
		return errors.New("output file is required")
	case c.Retrieval.Preview < 0:
		return fmt.Errorf("invalid preview line count: %d", c.Retrieval.Preview)
	}

	return nil
}

// LogLevel parses settings.logLevel
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Settings.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level '%s': %w", c.Settings.LogLevel, err)
	}
	return level, nil
}

// Policy returns the configured extraction policy, ending on the device prompt
func (c *Config) Policy() (sensorlog.Policy, error) {
	return sensorlog.PolicyByName(c.Retrieval.Policy, c.Retrieval.HeaderToken, c.Device.PromptMarker)
}
