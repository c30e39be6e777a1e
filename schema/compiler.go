// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bpowers/cfgc/enum"
)

const structPrefix = "Config_V"

// Option configures Compile.
type Option func(*compileOptions)

type compileOptions struct {
	logger *zap.Logger
}

// WithLogger sets a logger for compile diagnostics.  If not provided, no
// logging output will be produced.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *compileOptions) {
		opts.logger = logger
	}
}

type state uint8

const (
	stateTop state = iota
	stateEnum
	stateStruct
	stateDone
)

type compiler struct {
	logger *zap.Logger
	state  state

	version    uint64
	minVersion uint64
	maxSize    uint64
	sawStruct  bool

	enum     *enum.Builder
	enumName string
	enums    map[string]*enum.Table
	order    []string

	fields []*Field
	byName map[string]*Field
	offset int
}

// CompileString compiles schema source held in a string.
func CompileString(src string, opts ...Option) (*Schema, error) {
	return Compile(strings.NewReader(src), opts...)
}

// Compile parses a config header and returns the compiled layout.  No
// partially compiled schema is ever returned: any error aborts compilation.
func Compile(r io.Reader, opts ...Option) (*Schema, error) {
	var options compileOptions
	options.logger = zap.NewNop()
	for _, opt := range opts {
		opt(&options)
	}

	c := &compiler{
		logger:  options.logger,
		maxSize: DefaultMaxImageSize,
		enums:   make(map[string]*enum.Table),
		byName:  make(map[string]*Field),
	}

	lx := newLexer(r)
	lastLine := 0
	for c.state != stateDone {
		l, err := lx.next()
		if err != nil {
			return nil, err
		}
		if l == nil {
			break
		}
		lastLine = l.num
		switch c.state {
		case stateTop:
			err = c.top(l)
		case stateEnum:
			err = c.enumLine(l)
		case stateStruct:
			err = c.structLine(l)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := lx.drain(); err != nil {
		return nil, err
	}

	s, err := c.finish(lastLine)
	if err != nil {
		return nil, err
	}
	s.source = lx.source()

	c.logger.Debug("compiled schema",
		zap.Uint8("version", s.Version),
		zap.Uint8("minVersion", s.MinVersion),
		zap.Int("size", s.Size),
		zap.Int("fields", len(s.fields)),
		zap.Int("enums", len(s.enums)))
	return s, nil
}

func parseUint(num int, text string, limit uint64) (uint64, error) {
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, lineErrorf(num, "%w: bad integer literal %q", ErrSyntax, text)
	}
	if v > limit {
		return 0, lineErrorf(num, "%w: %s exceeds %d", ErrSyntax, text, limit)
	}
	return v, nil
}

// assignment matches `... NAME = <int> ;` at the end of a line.
func assignment(l *line) (name, value string, ok bool) {
	n := len(l.tokens)
	if n < 4 {
		return "", "", false
	}
	t := l.tokens[n-4:]
	if t[0].kind != tokIdent || !t[1].is(tokPunct, "=") || t[2].kind != tokNumber || !t[3].is(tokPunct, ";") {
		return "", "", false
	}
	return t[0].text, t[2].text, true
}

func (c *compiler) top(l *line) error {
	if name, value, ok := assignment(l); ok {
		var err error
		switch name {
		case "MAX_CFG_SIZE":
			c.maxSize, err = parseUint(l.num, value, math.MaxInt32)
		case "ConfigVersion":
			c.version, err = parseUint(l.num, value, math.MaxUint8)
		case "LC_ConfigVersion":
			c.minVersion, err = parseUint(l.num, value, math.MaxUint8)
		}
		return err
	}

	if len(l.tokens) == 0 || l.tokens[0].kind != tokIdent {
		return nil
	}
	switch l.tokens[0].text {
	case "enum":
		return c.openEnum(l)
	case "struct":
		return c.openStruct(l)
	}
	return nil
}

// openEnum handles `enum [class] Name : type {`.
func (c *compiler) openEnum(l *line) error {
	t := l.tokens[1:]
	if len(t) > 0 && (t[0].is(tokIdent, "class") || t[0].is(tokIdent, "struct")) {
		t = t[1:]
	}
	if len(t) != 4 || t[0].kind != tokIdent || !t[1].is(tokPunct, ":") || t[2].kind != tokIdent || !t[3].is(tokPunct, "{") {
		return lineErrorf(l.num, "%w: malformed enum declaration %q", ErrSyntax, l.code)
	}
	name, base := t[0].text, t[2].text
	width, ok := baseSizes[base]
	if !ok {
		return lineErrorf(l.num, "%w: enum %s storage type %q", ErrUnknownType, name, base)
	}
	if _, dup := c.enums[name]; dup {
		return lineErrorf(l.num, "%w: %s", ErrDuplicateEnum, name)
	}
	c.enum = enum.NewBuilder(name, width)
	c.enumName = name
	c.state = stateEnum
	return nil
}

// openStruct handles `struct Config_V<N> {`.  Other structs are ignored.
func (c *compiler) openStruct(l *line) error {
	t := l.tokens[1:]
	if len(t) < 1 || t[0].kind != tokIdent || !strings.HasPrefix(t[0].text, structPrefix) {
		return nil
	}
	if len(t) > 2 && t[1].is(tokPunct, "{") {
		return lineErrorf(l.num, "%w: struct %s: fields must start on the line after %q", ErrSyntax, t[0].text, "{")
	}
	if len(t) != 2 || !t[1].is(tokPunct, "{") {
		return lineErrorf(l.num, "%w: malformed struct declaration %q", ErrSyntax, l.code)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(t[0].text, structPrefix), 10, 8)
	if err != nil {
		return lineErrorf(l.num, "%w: bad struct name %q", ErrSyntax, t[0].text)
	}
	if v != c.version {
		return lineErrorf(l.num, "%w: Config_V%d, ConfigVersion=%d", ErrVersionMismatch, v, c.version)
	}
	c.sawStruct = true
	c.state = stateStruct
	return nil
}

func isBlockEnd(l *line) bool {
	return l.punct("}", ";") || l.punct("}")
}

func (c *compiler) enumLine(l *line) error {
	if l.empty() {
		return nil
	}
	if isBlockEnd(l) {
		table, err := c.enum.Compile()
		if err != nil {
			return &LineError{Line: l.num, Err: err}
		}
		c.enums[c.enumName] = table
		c.order = append(c.order, c.enumName)
		c.enum = nil
		c.state = stateTop
		return nil
	}

	t := l.tokens
	if len(t) == 4 && t[3].is(tokPunct, ",") {
		t = t[:3]
	}
	if len(t) != 3 || t[0].kind != tokIdent || !t[1].is(tokPunct, "=") || t[2].kind != tokNumber {
		return lineErrorf(l.num, "%w: malformed enum item %q", ErrSyntax, l.code)
	}
	v, err := parseUint(l.num, t[2].text, math.MaxUint64)
	if err != nil {
		return err
	}
	c.enum.Add(enum.Item{Name: t[0].text, Value: v, Comment: l.comment})
	return nil
}

func (c *compiler) structLine(l *line) error {
	if l.empty() {
		return nil
	}
	if isBlockEnd(l) {
		c.state = stateDone
		return nil
	}

	t := l.tokens
	if len(t) < 3 || t[0].kind != tokIdent || t[1].kind != tokIdent || !t[len(t)-1].is(tokPunct, ";") {
		return lineErrorf(l.num, "%w: malformed field %q", ErrSyntax, l.code)
	}
	typ, name := t[0].text, t[1].text
	if _, dup := c.byName[name]; dup {
		return lineErrorf(l.num, "%w: %s", ErrDuplicateField, name)
	}

	var f *Field
	var err error
	switch {
	case t[2].is(tokPunct, "["):
		f, err = c.arrayField(l, typ, name)
	case t[2].is(tokPunct, "=") || t[2].is(tokPunct, ";"):
		f, err = c.scalarField(l, typ, name)
	default:
		err = lineErrorf(l.num, "%w: malformed field %q", ErrSyntax, l.code)
	}
	if err != nil {
		return err
	}

	if c.offset%f.Align() != 0 {
		return lineErrorf(l.num, "%w: field %q, align/size = %d, offset = %d", ErrAlignment, name, f.Align(), c.offset)
	}
	f.Offset = c.offset
	f.Comment = l.comment
	c.offset += f.Size
	c.fields = append(c.fields, f)
	c.byName[name] = f
	return nil
}

// arrayField handles `char name[N] [= {...}];`.  Initializers are ignored.
func (c *compiler) arrayField(l *line, typ, name string) (*Field, error) {
	t := l.tokens
	if len(t) < 6 || t[3].kind != tokNumber || !t[4].is(tokPunct, "]") {
		return nil, lineErrorf(l.num, "%w: malformed array %q", ErrSyntax, l.code)
	}
	if !t[5].is(tokPunct, ";") && !t[5].is(tokPunct, "=") {
		return nil, lineErrorf(l.num, "%w: malformed array %q", ErrSyntax, l.code)
	}
	if typ != "char" {
		return nil, lineErrorf(l.num, "%w: %s %s[]", ErrUnsupportedArray, typ, name)
	}
	size, err := parseUint(l.num, t[3].text, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, lineErrorf(l.num, "%w: zero-length array %s", ErrSyntax, name)
	}
	return &Field{Name: name, Type: typ, Kind: Chars, Size: int(size)}, nil
}

func (c *compiler) scalarField(l *line, typ, name string) (*Field, error) {
	f := &Field{Name: name, Type: typ}
	if size, ok := baseSizes[typ]; ok {
		f.Size = size
		f.Kind = Unsigned
		if isSignedType(typ) {
			f.Kind = Signed
		}
	} else if table, ok := c.enums[typ]; ok {
		f.Size = table.Width()
		f.Kind = Enum
		f.Enum = table
	} else {
		return nil, lineErrorf(l.num, "%w: %q is not an integer type or a declared enum (enums: %s)",
			ErrUnknownType, typ, strings.Join(c.order, ", "))
	}

	if strings.HasPrefix(name, FillerPrefix) {
		var zero uint64
		f.Kind = Filler
		f.Enum = nil
		f.Default = &zero
		return f, nil
	}

	_, init, hasInit := strings.Cut(l.code, "=")
	if !hasInit {
		return f, nil
	}
	init = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(init), ";"))
	v, err := c.parseDefault(f, init)
	if err != nil {
		return nil, &LineError{Line: l.num, Err: err}
	}
	f.Default = &v
	return f, nil
}

func (c *compiler) parseDefault(f *Field, text string) (uint64, error) {
	low, high := f.Range()
	if f.Kind == Enum {
		v, err := f.Enum.Encode(text)
		if err != nil {
			return 0, fmt.Errorf("default of %s: %w", f.Name, err)
		}
		if v > high {
			return 0, fmt.Errorf("%w: %s = %s", ErrDefaultOverflow, f.Name, text)
		}
		return v, nil
	}

	if strings.HasPrefix(text, "-") {
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return 0, parseDefaultErr(f, text, err)
		}
		if !f.Signed() || v < low {
			return 0, fmt.Errorf("%w: %s = %s", ErrDefaultOverflow, f.Name, text)
		}
		return uint64(v) & mask(f.Size), nil
	}
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, parseDefaultErr(f, text, err)
	}
	if v > high {
		return 0, fmt.Errorf("%w: %s = %s", ErrDefaultOverflow, f.Name, text)
	}
	return v, nil
}

func parseDefaultErr(f *Field, text string, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("%w: %s = %s", ErrDefaultOverflow, f.Name, text)
	}
	return fmt.Errorf("%w: default of %s: bad integer literal %q", ErrSyntax, f.Name, text)
}

func mask(size int) uint64 {
	if size >= 8 {
		return math.MaxUint64
	}
	return 1<<(8*uint(size)) - 1
}

func (c *compiler) finish(lastLine int) (*Schema, error) {
	switch c.state {
	case stateEnum:
		return nil, lineErrorf(lastLine, "%w: enum %s is not terminated", ErrUnexpectedEOF, c.enumName)
	case stateStruct:
		return nil, lineErrorf(lastLine, "%w: struct is not terminated", ErrUnexpectedEOF)
	}
	if c.minVersion == 0 {
		return nil, fmt.Errorf("LC_ConfigVersion: %w", ErrMissingVersion)
	}
	if c.version == 0 {
		return nil, fmt.Errorf("ConfigVersion: %w", ErrMissingVersion)
	}
	if c.minVersion > c.version {
		return nil, fmt.Errorf("%w (%d > %d)", ErrVersionOrder, c.minVersion, c.version)
	}
	if !c.sawStruct {
		return nil, fmt.Errorf("%w: expected struct %s%d", ErrMissingStruct, structPrefix, c.version)
	}
	if err := c.checkHeader(); err != nil {
		return nil, err
	}
	if c.offset%4 != 0 {
		return nil, fmt.Errorf("%w: size %d", ErrSizeNotAligned, c.offset)
	}
	if uint64(c.offset) > c.maxSize {
		return nil, fmt.Errorf("%w: size %d > MAX_CFG_SIZE %d", ErrImageTooLarge, c.offset, c.maxSize)
	}
	if c.offset/4-1 > MaxWords {
		return nil, fmt.Errorf("%w: size %d does not fit the header size field", ErrImageTooLarge, c.offset)
	}

	return &Schema{
		Version:      uint8(c.version),
		MinVersion:   uint8(c.minVersion),
		MaxImageSize: int(c.maxSize),
		Size:         c.offset,
		fields:       c.fields,
		byName:       c.byName,
		enums:        c.enums,
		order:        c.order,
	}, nil
}

// checkHeader verifies the struct starts with the fields the bootloader
// reads before it knows anything else about the layout.
func (c *compiler) checkHeader() error {
	expected := []struct {
		name string
		size int
	}{
		{FieldCRC, 4},
		{FieldSize, 2},
		{FieldVersion, 1},
	}
	for i, e := range expected {
		if i >= len(c.fields) {
			return fmt.Errorf("%w: missing %s", ErrMissingHeader, e.name)
		}
		f := c.fields[i]
		if f.Name != e.name || f.Kind != Unsigned || f.Size != e.size {
			return fmt.Errorf("%w: field %d is %s %s, expected uint%d_t %s", ErrMissingHeader, i, f.Type, f.Name, 8*e.size, e.name)
		}
	}
	return nil
}
