// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"go.uber.org/zap"
)

// Option configures a Record.
type Option func(*recordOptions)

type recordOptions struct {
	logger *zap.Logger
}

// WithLogger sets an optional logger for conversion warnings, such as
// truncated strings or images that failed non-fatal validation.  If not
// provided, no logging output will be produced.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *recordOptions) {
		opts.logger = logger
	}
}
