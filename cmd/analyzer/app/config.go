package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/roman-kulish/sensorlog/internal/retrieve"
)

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"
)

type ColorTheme string

var validThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	ThermalTheme:   {},
}

type Config struct {
	CSVPath    string
	DBPath     string
	SessionID  int64
	ChartFile  string
	Theme      ColorTheme
	Reuse      *bool // nil asks on a terminal and reuses otherwise
	NoRetrieve bool
	NoColor    bool
	Verbose    bool

	// Used when the local log is missing and has to be downloaded
	PortName   string
	RemotePath string
}

func NewConfig() *Config {
	return &Config{
		CSVPath:    retrieve.DefaultOutputPath,
		Theme:      ClassicTheme,
		RemotePath: retrieve.DefaultRemotePath,
	}
}

func NewConfigFromCLI(args []string) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)

	var theme string
	var reuse, noReuse bool
	fs.StringVar(&c.CSVPath, "f", c.CSVPath, "Path to the sensor log CSV")
	fs.StringVar(&c.DBPath, "db", "", "Path to the retrieval archive, lists sessions unless -s is set")
	fs.Int64Var(&c.SessionID, "s", 0, "Archived session ID to analyze")
	fs.StringVar(&c.ChartFile, "chart", "", "Render an RSSI chart to this PNG file")
	fs.StringVar(&theme, "theme", string(ClassicTheme), "Chart color theme. [classic, grayscale, thermal]")
	fs.BoolVar(&reuse, "reuse", false, "Use an existing log without asking")
	fs.BoolVar(&noReuse, "no-reuse", false, "Never use an existing log")
	fs.BoolVar(&c.NoRetrieve, "no-retrieve", false, "Do not download a missing log from the device")
	fs.BoolVar(&c.NoColor, "no-color", false, "Disable report styling")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.StringVar(&c.PortName, "port", "", "Serial port used to download a missing log, discovered when empty")
	fs.StringVar(&c.RemotePath, "remote", c.RemotePath, "Path of the log on the device")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	theme = strings.ToLower(theme)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "reuse":
			c.Reuse = &reuse
		case "no-reuse":
			v := !noReuse
			c.Reuse = &v
		}
	})

	var err error
	if reuse && noReuse {
		err = errors.New("-reuse and -no-reuse are mutually exclusive")
	} else if c.DBPath == "" && strings.TrimSpace(c.CSVPath) == "" {
		err = errors.New("log file path is required")
	} else if c.SessionID < 0 {
		err = fmt.Errorf("invalid session id: %d", c.SessionID)
	} else if c.SessionID > 0 && c.DBPath == "" {
		err = errors.New("session id requires an archive (-db)")
	} else if _, ok := validThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Theme = ColorTheme(theme)
	return c, nil
}
