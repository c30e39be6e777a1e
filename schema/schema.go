// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/samber/lo"

	"github.com/bpowers/cfgc/enum"
)

// Names of the synthetic header fields every schema starts with.
const (
	FieldCRC     = "crc"
	FieldSize    = "size"
	FieldVersion = "version"

	// FillerPrefix marks fields that occupy bytes but carry no value.
	FillerPrefix = "reserved"

	DefaultMaxImageSize = 4096
	// MaxWords is the largest word count the 10-bit header size field holds.
	MaxWords = 0x3FF
)

// Kind is the storage class of a field.
type Kind uint8

const (
	Signed Kind = iota
	Unsigned
	Chars
	Enum
	Filler
)

func (k Kind) String() string {
	switch k {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case Chars:
		return "chars"
	case Enum:
		return "enum"
	case Filler:
		return "filler"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// IsInteger reports whether values of this kind are stored as integers.
func (k Kind) IsInteger() bool {
	return k == Signed || k == Unsigned || k == Enum
}

var baseSizes = map[string]int{
	"int8_t": 1, "uint8_t": 1,
	"int16_t": 2, "uint16_t": 2,
	"int32_t": 4, "uint32_t": 4,
	"int64_t": 8, "uint64_t": 8,
}

func isSignedType(typ string) bool {
	return strings.HasPrefix(typ, "int")
}

// Field is a single member of the config struct.
type Field struct {
	Name   string
	Type   string // declared type name: an integer type, an enum name or "char"
	Kind   Kind
	Size   int
	Offset int
	// Default is nil when the declaration has no initializer.  For signed
	// fields it holds the two's complement bits.
	Default *uint64
	Enum    *enum.Table
	Comment string
}

// Signed reports whether integer values of this field are signed.
func (f *Field) Signed() bool {
	return f.Kind == Signed
}

// Align is the alignment unit: the element size for scalars, 1 for char arrays.
func (f *Field) Align() int {
	if f.Kind == Chars {
		return 1
	}
	return f.Size
}

// Range returns the representable integer range of the field.
func (f *Field) Range() (low int64, high uint64) {
	bits := uint(8 * f.Size)
	if f.Signed() {
		return -1 << (bits - 1), 1<<(bits-1) - 1
	}
	if bits == 64 {
		return 0, math.MaxUint64
	}
	return 0, 1<<bits - 1
}

func (f *Field) String() string {
	var sb strings.Builder
	if f.Kind == Chars {
		fmt.Fprintf(&sb, "char %s[%d];", f.Name, f.Size)
	} else {
		fmt.Fprintf(&sb, "%s %s", f.Type, f.Name)
		if f.Default != nil {
			fmt.Fprintf(&sb, " = %s", f.formatDefault())
		}
		sb.WriteString(";")
	}
	fmt.Fprintf(&sb, " // size=%d, offset=%d", f.Size, f.Offset)
	if f.Comment != "" {
		fmt.Fprintf(&sb, " %s", f.Comment)
	}
	return sb.String()
}

func (f *Field) formatDefault() string {
	switch {
	case f.Kind == Enum:
		return f.Enum.Decode(*f.Default)
	case f.Signed():
		return fmt.Sprint(SignExtend(*f.Default, f.Size))
	default:
		return fmt.Sprintf("0x%X", *f.Default)
	}
}

// SignExtend interprets the low size bytes of v as a two's complement integer.
func SignExtend(v uint64, size int) int64 {
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}

// Schema is a compiled config layout.  It is immutable and may be shared
// between goroutines.
type Schema struct {
	Version      uint8
	MinVersion   uint8
	MaxImageSize int
	Size         int

	fields []*Field
	byName map[string]*Field
	enums  map[string]*enum.Table
	order  []string // enum declaration order
	source string
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []*Field {
	return append([]*Field(nil), s.fields...)
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Enum looks an enumeration up by name.
func (s *Schema) Enum(name string) (*enum.Table, bool) {
	e, ok := s.enums[name]
	return e, ok
}

// FieldNames returns the names of all non-filler fields in declaration order.
func (s *Schema) FieldNames() []string {
	return lo.FilterMap(s.fields, func(f *Field, _ int) (string, bool) {
		return f.Name, f.Kind != Filler
	})
}

// Fingerprint is a 64-bit hash of the schema source text, stable across
// runs and platforms.
func (s *Schema) Fingerprint() uint64 {
	return farm.Fingerprint64([]byte(s.source))
}

// Describe writes a human readable dump of the compiled layout.
func (s *Schema) Describe(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MAX_CFG_SIZE = %d\n", s.MaxImageSize)
	fmt.Fprintf(&sb, "LC_Version = %d\n", s.MinVersion)
	fmt.Fprintf(&sb, "Cfg Size = %d (%d*4)\n", s.Size, s.Size/4)
	for _, name := range s.order {
		sb.WriteString(s.enums[name].String())
	}
	fmt.Fprintf(&sb, "struct Config_V%d {\n", s.Version)
	for _, f := range s.fields {
		fmt.Fprintf(&sb, "  %s\n", f)
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
