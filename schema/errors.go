// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax           = errors.New("syntax error")
	ErrVersionMismatch  = errors.New("struct version does not match ConfigVersion")
	ErrAlignment        = errors.New("field alignment mismatch")
	ErrUnknownType      = errors.New("unknown field type")
	ErrUnsupportedArray = errors.New("only char arrays are supported")
	ErrDefaultOverflow  = errors.New("default value does not fit field")
	ErrDuplicateField   = errors.New("duplicate field")
	ErrDuplicateEnum    = errors.New("duplicate enum")
	ErrMissingVersion   = errors.New("version not specified (or zero)")
	ErrVersionOrder     = errors.New("LC_ConfigVersion is greater than ConfigVersion")
	ErrSizeNotAligned   = errors.New("config size is not aligned to 4")
	ErrImageTooLarge    = errors.New("config size exceeds the image limit")
	ErrMissingStruct    = errors.New("no Config struct declared")
	ErrMissingHeader    = errors.New("config struct must start with crc, size and version")
	ErrUnexpectedEOF    = errors.New("unexpected end of schema")
)

// LineError attaches a source line number to a compile error.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Unwrap() error { return e.Err }

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func lineErrorf(num int, format string, a ...any) error {
	return &LineError{
		Line: num,
		Err:  fmt.Errorf(format, a...),
	}
}
