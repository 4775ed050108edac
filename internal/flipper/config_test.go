package flipper

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestConfig_Defaults(t *testing.T) {
	c := NewConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if c.BaudRate != 230400 {
		t.Errorf("Expected baud rate 230400, got %d", c.BaudRate)
	}
	if c.PromptMarker != ">:" {
		t.Errorf("Expected prompt marker '>:', got %q", c.PromptMarker)
	}
	if got := c.TransferDeadlines().Hard; got != 30*time.Second {
		t.Errorf("Expected transfer deadline 30s, got %s", got)
	}
	if got := c.CommandDeadlines().Hard; got != 5*time.Second {
		t.Errorf("Expected command deadline 5s, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no port and no patterns", func(c *Config) { c.PortPatterns = nil }},
		{"zero baud rate", func(c *Config) { c.BaudRate = 0 }},
		{"blank prompt", func(c *Config) { c.PromptMarker = "  " }},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = NewTimeDuration(-time.Second) }},
		{"missing read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"poll longer than command timeout", func(c *Config) { c.PollInterval = NewTimeDuration(time.Minute) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			tc.mutate(c)

			err := c.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if _, ok := err.(*ConfigError); !ok {
				t.Errorf("Expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestTimeDuration_YAML(t *testing.T) {
	var c Config
	doc := "portName: /dev/ttyACM0\nidleTimeout: 750ms\nreadTimeout: 1m\n"
	if err := yaml.Unmarshal([]byte(doc), &c); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if c.IdleTimeout.Duration() != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %s", c.IdleTimeout)
	}
	if c.ReadTimeout.Duration() != time.Minute {
		t.Errorf("Expected 1m, got %s", c.ReadTimeout)
	}

	if err := yaml.Unmarshal([]byte("idleTimeout: soon\n"), &c); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestTimeDuration_JSON(t *testing.T) {
	d := NewTimeDuration(1500 * time.Millisecond)

	p, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if string(p) != `"1.5s"` {
		t.Errorf("Expected \"1.5s\", got %s", p)
	}

	var back TimeDuration
	if err = json.Unmarshal(p, &back); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("Expected %s, got %s", d, back)
	}
}
