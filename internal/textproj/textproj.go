// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package textproj renders and parses the flat TOML mapping used as the
// text form of a config record.
package textproj

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrUnsupportedValue = errors.New("only integer and string values are supported")

// KeyValue is one top-level assignment.  Value is an int64 or a string.
type KeyValue struct {
	Key   string
	Value any
}

// Parse decodes a flat TOML document, keeping the order keys appear in.
func Parse(text string) ([]KeyValue, error) {
	var m map[string]any
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, fmt.Errorf("toml.Decode: %w", err)
	}

	var kvs []KeyValue
	for _, key := range md.Keys() {
		if len(key) != 1 {
			// members of a table, which is rejected below
			continue
		}
		name := key[0]
		switch v := m[name].(type) {
		case int64, string:
			kvs = append(kvs, KeyValue{Key: name, Value: v})
		default:
			return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedValue, name, md.Type(name))
		}
	}
	return kvs, nil
}

// Writer emits `key = value` lines with optional preceding comments.
// The first write error is kept and returned by Err; later calls are
// no-ops.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) printf(format string, a ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, a...)
}

// Comment writes each line of text as a # comment.
func (w *Writer) Comment(text string) {
	for _, l := range strings.Split(text, "\n") {
		w.printf("# %s\n", l)
	}
}

func (w *Writer) Int(key string, v int64) {
	w.printf("%s = %s\n", key, strconv.FormatInt(v, 10))
}

// Uint fails with ErrUnsupportedValue above math.MaxInt64, which TOML
// integers cannot hold.
func (w *Writer) Uint(key string, v uint64) {
	if v > math.MaxInt64 {
		if w.err == nil {
			w.err = fmt.Errorf("%w: %s = %d is outside the TOML integer range", ErrUnsupportedValue, key, v)
		}
		return
	}
	w.printf("%s = %s\n", key, strconv.FormatUint(v, 10))
}

func (w *Writer) String(key, v string) {
	w.printf("%s = %s\n", key, Quote(v))
}

func (w *Writer) Err() error {
	return w.err
}
