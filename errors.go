// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"errors"

	"github.com/bpowers/cfgc/internal/header"
)

var (
	ErrUnknownField     = errors.New("unknown field")
	ErrFillerField      = errors.New("reserved fields cannot be set")
	ErrTypeMismatch     = errors.New("value type does not match field")
	ErrEncodingOverflow = errors.New("value does not fit field")
	ErrUnsafeImage      = errors.New("unsafe config image (raise the force level to accept it)")

	// Image validation failures, rejected unless validation is skipped.
	ErrImageTooShort     = header.ErrImageTooShort
	ErrChecksumMismatch  = header.ErrChecksumMismatch
	ErrVersionOutOfRange = header.ErrVersionOutOfRange
)
