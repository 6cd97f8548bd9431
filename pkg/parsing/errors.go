package parsing

import (
	"errors"
	"fmt"
)

var (
	ErrRange       = errors.New("value out of range")
	ErrFormat      = errors.New("malformed value")
	ErrUnknownCode = errors.New("unknown code")
)

// RangeError reports a numeric value outside its plausible range.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s has to be within %d and %d, but was %d", e.Field, e.Min, e.Max, e.Value)
}

func (e RangeError) Unwrap() error {
	return ErrRange
}

// FormatError reports a value that does not match its expected shape.
type FormatError struct {
	Field string
	Value string
	Want  string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s", e.Field, e.Value, e.Want)
}

func (e FormatError) Unwrap() error {
	return ErrFormat
}

// UnknownCodeError reports a registry code missing from its lookup table.
type UnknownCodeError struct {
	Table string
	Code  string
}

func (e UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown %s code %q", e.Table, e.Code)
}

func (e UnknownCodeError) Unwrap() error {
	return ErrUnknownCode
}

func IsRangeError(err error) bool {
	var re RangeError
	return errors.As(err, &re)
}

func IsFormatError(err error) bool {
	var fe FormatError
	return errors.As(err, &fe)
}

func IsUnknownCodeError(err error) bool {
	var ue UnknownCodeError
	return errors.As(err, &ue)
}
