// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bpowers/cfgc/schema"
)

// Record holds one value per field of a compiled schema.  A Record is
// not safe for concurrent mutation; the schema it was built from may be
// shared freely.
type Record struct {
	schema *schema.Schema
	fields []*schema.Field
	index  map[string]int
	slots  []Value
	logger *zap.Logger
}

// NewRecord creates a Record with every slot unset.
func NewRecord(s *schema.Schema, opts ...Option) *Record {
	var options recordOptions
	options.logger = zap.NewNop()
	for _, opt := range opts {
		opt(&options)
	}

	fields := s.Fields()
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Record{
		schema: s,
		fields: fields,
		index:  index,
		slots:  make([]Value, len(fields)),
		logger: options.logger,
	}
}

func (r *Record) Schema() *schema.Schema {
	return r.schema
}

func (r *Record) lookup(name string) (int, *schema.Field, error) {
	i, ok := r.index[name]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return i, r.fields[i], nil
}

// Value returns the effective value of a field: the stored value, or the
// schema default when the slot is unset.  Fillers always read as zero.
func (r *Record) Value(name string) (Value, error) {
	i, f, err := r.lookup(name)
	if err != nil {
		return Value{}, err
	}
	return r.effective(i, f), nil
}

// IsSet reports whether a value has been stored for the field.
func (r *Record) IsSet(name string) bool {
	i, ok := r.index[name]
	return ok && r.slots[i].kind != Unset
}

func (r *Record) effective(i int, f *schema.Field) Value {
	v := r.slots[i]
	if f.Kind == schema.Filler {
		return UintValue(0)
	}
	if v.kind != Unset {
		return v
	}
	var def uint64
	if f.Default != nil {
		def = *f.Default
	}
	switch f.Kind {
	case schema.Signed:
		return IntValue(schema.SignExtend(def, f.Size))
	case schema.Chars:
		return Value{kind: Bytes}
	default:
		return UintValue(def)
	}
}

// Set stores v in the named field.  Integer fields accept Go integer
// types, enum fields accept their symbolic form as a string, and char
// arrays accept a string or []byte.  Strings longer than the array are
// truncated to leave room for a terminating zero, with a warning.
func (r *Record) Set(name string, v any) error {
	i, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	val, err := r.coerce(f, v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.slots[i] = val
	return nil
}

// SetString stores a value written on a command line: integers are parsed
// with base prefix detection, other kinds are taken verbatim.
func (r *Record) SetString(name, raw string) error {
	_, f, err := r.lookup(name)
	if err != nil {
		return err
	}
	switch f.Kind {
	case schema.Signed, schema.Unsigned:
		if n, err := strconv.ParseInt(raw, 0, 64); err == nil {
			return r.Set(name, n)
		}
		u, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return fmt.Errorf("%s: %w: %q", name, parseErr(err), raw)
		}
		return r.Set(name, u)
	default:
		return r.Set(name, raw)
	}
}

func parseErr(err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return ErrEncodingOverflow
	}
	return ErrTypeMismatch
}

func (r *Record) coerce(f *schema.Field, v any) (Value, error) {
	switch f.Kind {
	case schema.Filler:
		return Value{}, ErrFillerField
	case schema.Signed, schema.Unsigned:
		return coerceInt(f, v)
	case schema.Enum:
		s, ok := v.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: enum %s expects a string, got %T", ErrTypeMismatch, f.Type, v)
		}
		n, err := f.Enum.Encode(s)
		if err != nil {
			return Value{}, err
		}
		if _, high := f.Range(); n > high {
			return Value{}, fmt.Errorf("%w: %q is 0x%X", ErrEncodingOverflow, s, n)
		}
		return UintValue(n), nil
	case schema.Chars:
		var b []byte
		switch s := v.(type) {
		case string:
			b = []byte(s)
		case []byte:
			b = s
		default:
			return Value{}, fmt.Errorf("%w: char[%d] expects a string, got %T", ErrTypeMismatch, f.Size, v)
		}
		return BytesValue(r.fit(f, b)), nil
	}
	return Value{}, fmt.Errorf("%w: field kind %s", ErrTypeMismatch, f.Kind)
}

// fit applies the char array overflow rules.
func (r *Record) fit(f *schema.Field, b []byte) []byte {
	switch {
	case len(b) > f.Size:
		r.logger.Warn("field overflow, value truncated",
			zap.String("field", f.Name),
			zap.Int("size", f.Size),
			zap.Int("length", len(b)))
		return b[:runeBoundary(b, f.Size-1)]
	case len(b) == f.Size:
		r.logger.Warn("field overflow, no room for terminating zero",
			zap.String("field", f.Name),
			zap.Int("size", f.Size))
	}
	return b
}

// runeBoundary backs n off so that b[:n] does not split a UTF-8 sequence.
// Bytes that are not valid UTF-8 are cut at n.
func runeBoundary(b []byte, n int) int {
	if !utf8.Valid(b) {
		return n
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return n
}

func coerceInt(f *schema.Field, v any) (Value, error) {
	// n holds signed inputs, u unsigned ones; non-negative n moves to u
	var (
		n      int64
		u      uint64
		signed = true
	)
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		u, signed = uint64(x), false
	case uint8:
		u, signed = uint64(x), false
	case uint16:
		u, signed = uint64(x), false
	case uint32:
		u, signed = uint64(x), false
	case uint64:
		u, signed = x, false
	default:
		return Value{}, fmt.Errorf("%w: %s expects an integer, got %T", ErrTypeMismatch, f.Type, v)
	}
	negative := signed && n < 0
	if signed && !negative {
		u = uint64(n)
	}

	low, high := f.Range()
	switch {
	case negative && !f.Signed():
		return Value{}, fmt.Errorf("%w: %d is negative", ErrEncodingOverflow, n)
	case negative && n < low:
		return Value{}, fmt.Errorf("%w: %d < %d", ErrEncodingOverflow, n, low)
	case negative:
		return IntValue(n), nil
	case u > high:
		return Value{}, fmt.Errorf("%w: %d > %d", ErrEncodingOverflow, u, high)
	case f.Signed():
		return IntValue(int64(u)), nil
	default:
		return UintValue(u), nil
	}
}

// clone copies the slots so a failed bulk import can be rolled back.
func (r *Record) clone() []Value {
	return append([]Value(nil), r.slots...)
}
