package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInstance = errors.New("malformed instance")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// MalformedError locates a parse or consistency failure inside one instance file.
type MalformedError struct {
	File     string
	Line     int
	Customer int
	Msg      string
	Err      error
}

func (e *MalformedError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Customer > 0 {
		loc = fmt.Sprintf("%s customer %d", loc, e.Customer)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrMalformedInstance, loc, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedInstance, loc, e.Msg)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedInstance }

func (e *MalformedError) Unwrap() error { return e.Err }

// ConfigError names the offending configuration key.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }
