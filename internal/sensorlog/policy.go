package sensorlog

import (
	"fmt"
	"strings"
)

const (
	PolicyHeader = "header"
	PolicyDigit  = "digit"

	// DefaultHeaderToken starts the header row of sensor_log.csv
	DefaultHeaderToken = "timestamp_ms"

	// DefaultDebugHeaderToken starts the header row of debug_log.csv
	DefaultDebugHeaderToken = "sample,"

	// DefaultCommandKeyword is the keyword the CLI echoes back for storage commands
	DefaultCommandKeyword = "storage"

	defaultPromptMarker = ">:"
)

// Policy decides which lines of a captured CLI response belong to the CSV payload.
// Starts is consulted until capture begins, then Ends and Keeps for every later line.
// Lines are passed trimmed.
type Policy interface {
	Name() string
	HeaderToken() string
	Starts(line string) bool
	Ends(line string) bool
	Keeps(line string) bool
}

// HeaderPolicy requires the literal header token to begin capture and keeps every
// non-empty line until the prompt or an echoed command shows up.
type HeaderPolicy struct {
	Token   string // header row prefix
	Prompt  string // prompt marker, capture ends on a line starting with its first character
	Keyword string // command keyword, capture ends on a line containing it (any case)
}

func NewHeaderPolicy() *HeaderPolicy {
	return &HeaderPolicy{
		Token:   DefaultHeaderToken,
		Prompt:  defaultPromptMarker,
		Keyword: DefaultCommandKeyword,
	}
}

func (p *HeaderPolicy) Name() string {
	return PolicyHeader
}

func (p *HeaderPolicy) HeaderToken() string {
	return p.Token
}

func (p *HeaderPolicy) Starts(line string) bool {
	return strings.HasPrefix(line, p.Token)
}

func (p *HeaderPolicy) Ends(line string) bool {
	if p.Prompt != "" && strings.HasPrefix(line, p.Prompt[:1]) {
		return true
	}
	return p.Keyword != "" && strings.Contains(strings.ToLower(line), strings.ToLower(p.Keyword))
}

func (p *HeaderPolicy) Keeps(line string) bool {
	return line != ""
}

// DigitPolicy begins capture on the header token or on any line starting with a digit,
// so logs without a header row are still found. Only digit-led lines are kept.
type DigitPolicy struct {
	Token   string // header row prefix
	Prompt  string // prompt marker, capture ends on a line containing it
	Keyword string // command keyword, capture ends on a line starting with it
}

func NewDigitPolicy() *DigitPolicy {
	return &DigitPolicy{
		Token:   DefaultDebugHeaderToken,
		Prompt:  defaultPromptMarker,
		Keyword: DefaultCommandKeyword,
	}
}

func (p *DigitPolicy) Name() string {
	return PolicyDigit
}

func (p *DigitPolicy) HeaderToken() string {
	return p.Token
}

func (p *DigitPolicy) Starts(line string) bool {
	return strings.HasPrefix(line, p.Token) || startsWithDigit(line)
}

func (p *DigitPolicy) Ends(line string) bool {
	return strings.Contains(line, p.Prompt) ||
		(p.Keyword != "" && strings.HasPrefix(line, p.Keyword))
}

func (p *DigitPolicy) Keeps(line string) bool {
	return startsWithDigit(line)
}

func startsWithDigit(line string) bool {
	return line != "" && line[0] >= '0' && line[0] <= '9'
}

// PolicyByName returns a policy with default tokens. An empty header token or prompt
// keeps the policy default.
func PolicyByName(name, headerToken, prompt string) (Policy, error) {
	switch strings.ToLower(name) {
	case PolicyHeader, "":
		p := NewHeaderPolicy()
		if headerToken != "" {
			p.Token = headerToken
		}
		if prompt != "" {
			p.Prompt = prompt
		}
		return p, nil

	case PolicyDigit:
		p := NewDigitPolicy()
		if headerToken != "" {
			p.Token = headerToken
		}
		if prompt != "" {
			p.Prompt = prompt
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown extraction policy '%s', expected one of [%s, %s]", name, PolicyHeader, PolicyDigit)
	}
}
