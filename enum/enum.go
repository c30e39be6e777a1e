// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package enum compiles bit-flag enumerations declared in a config schema
// and converts values between their integer and symbolic forms.
//
// Item names are made of a prefix and a suffix joined by an underscore
// (WFOP_Auto).  The suffix alone (the short name) may be used when no
// other item shares it.  An item named <prefix>_MASK declares the bits
// owned by a group of mutually exclusive values sharing that prefix:
//
//	WFOP_No   = 0x00
//	WFOP_AP   = 0x01
//	WFOP_Auto = 0x04
//	WFOP_MASK = 0x07
//	Nxt_Options = 0x08
//
// Decode(0x0C) renders "Auto|Options".
package enum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Separator splits an item name into prefix and short name.
	Separator = "_"
	// MaskSuffix marks an item as a mask declaration.
	MaskSuffix = "_MASK"

	residuePrefix = "#0x"
)

var (
	ErrBadItemName   = errors.New("enum item name must contain a separator")
	ErrDuplicateItem = errors.New("duplicate enum item")
	ErrValueOverflow = errors.New("enum value does not fit storage width")
	ErrBadWidth      = errors.New("unsupported enum storage width")
	ErrUnknownItem   = errors.New("unknown enum item")
	ErrAmbiguousItem = errors.New("ambiguous enum item")
)

// Item is a single NAME = value declaration.
type Item struct {
	Name    string
	Value   uint64
	Comment string
}

// IsMask reports whether the item declares a mask rather than a value.
func (it Item) IsMask() bool {
	return strings.HasSuffix(it.Name, MaskSuffix)
}

func (it Item) String() string {
	s := fmt.Sprintf("%s = 0x%X,", it.Name, it.Value)
	if it.Comment != "" {
		s += " // " + it.Comment
	}
	return s
}

// Builder collects items for an enumeration.  Nothing derived from the
// items is visible until Compile returns a Table.
type Builder struct {
	name  string
	width int
	items []Item
}

func NewBuilder(name string, width int) *Builder {
	return &Builder{name: name, width: width}
}

// Add appends an item in declaration order.
func (b *Builder) Add(it Item) {
	b.items = append(b.items, it)
}

// shortName marks a suffix claimed by more than one item.
type shortName struct {
	full      string
	ambiguous bool
}

type value struct {
	name   string
	prefix string
	suffix string
	value  uint64
}

// Table is a compiled, immutable enumeration.  It is safe for concurrent use.
type Table struct {
	name   string
	width  int
	items  []Item
	values []value // declaration order, masks excluded
	byName map[string]uint64
	masks  map[string]uint64
	short  map[string]shortName
}

// Compile validates the collected items and builds the lookup tables.
func (b *Builder) Compile() (*Table, error) {
	switch b.width {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("enum %s: %w: %d", b.name, ErrBadWidth, b.width)
	}
	// wraps to all ones for 8-byte tables
	limit := uint64(1)<<(8*uint(b.width)) - 1

	t := &Table{
		name:   b.name,
		width:  b.width,
		items:  append([]Item(nil), b.items...),
		byName: make(map[string]uint64),
		masks:  make(map[string]uint64),
		short:  make(map[string]shortName),
	}
	seen := make(map[string]bool, len(b.items))
	for _, it := range b.items {
		if seen[it.Name] {
			return nil, fmt.Errorf("enum %s: %w: %s", b.name, ErrDuplicateItem, it.Name)
		}
		seen[it.Name] = true
		if it.Value > limit {
			return nil, fmt.Errorf("enum %s: %w: %s = 0x%X (max 0x%X)", b.name, ErrValueOverflow, it.Name, it.Value, limit)
		}

		prefix, suffix, ok := strings.Cut(it.Name, Separator)
		if !ok {
			return nil, fmt.Errorf("enum %s: %w: %q", b.name, ErrBadItemName, it.Name)
		}
		if it.IsMask() {
			t.masks[prefix] = it.Value
			continue
		}

		t.values = append(t.values, value{name: it.Name, prefix: prefix, suffix: suffix, value: it.Value})
		t.byName[it.Name] = it.Value
		if _, claimed := t.short[suffix]; claimed {
			t.short[suffix] = shortName{ambiguous: true}
		} else {
			t.short[suffix] = shortName{full: it.Name}
		}
	}

	return t, nil
}

func (t *Table) Name() string {
	return t.name
}

// Width is the storage width in bytes.
func (t *Table) Width() int {
	return t.width
}

// Items returns the declared items, masks included, in declaration order.
func (t *Table) Items() []Item {
	return append([]Item(nil), t.items...)
}

// Names returns the names of value items in declaration order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.values))
	for _, v := range t.values {
		names = append(names, v.name)
	}
	return names
}

// Lookup returns the value of a fully qualified item name.
func (t *Table) Lookup(name string) (uint64, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// Decode renders v as a |-separated list of item names.  An item matches
// when all of its bits are set in v and, if its prefix owns a mask, when
// the masked bits of v equal the item value exactly.  Bits not covered by
// any matching item are appended as a #0x residue.
func (t *Table) Decode(v uint64) string {
	var tokens []string
	var consumed uint64
	for _, it := range t.values {
		if it.value&v != it.value {
			continue
		}
		if mask, ok := t.masks[it.prefix]; ok && v&mask != it.value {
			continue
		}
		consumed |= it.value
		tokens = append(tokens, t.render(it))
	}
	if rest := v &^ consumed; rest != 0 {
		tokens = append(tokens, fmt.Sprintf("%s%X", residuePrefix, rest))
	}
	return strings.Join(tokens, "|")
}

// render returns the short name unless it is ambiguous or would collide
// with another item's full name.
func (t *Table) render(it value) string {
	if sn := t.short[it.suffix]; !sn.ambiguous {
		if _, clash := t.byName[it.suffix]; !clash {
			return it.suffix
		}
	}
	return it.prefix + "." + it.suffix
}

func isTokenSep(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v', ',', '|':
		return true
	}
	return false
}

func hasSeparator(tok string) bool {
	return strings.Contains(tok, Separator) || strings.Contains(tok, ".") || strings.Contains(tok, "::")
}

func normalize(tok string) string {
	tok = strings.ReplaceAll(tok, "::", Separator)
	return strings.ReplaceAll(tok, ".", Separator)
}

// Encode parses a list of item names separated by whitespace, commas or
// pipes and returns the OR of their values.  Matching is exact.
func (t *Table) Encode(s string) (uint64, error) {
	var result uint64
	for _, tok := range strings.FieldsFunc(s, isTokenSep) {
		v, err := t.resolve(tok)
		if err != nil {
			return 0, err
		}
		result |= v
	}
	return result, nil
}

func (t *Table) resolve(tok string) (uint64, error) {
	if strings.HasPrefix(tok, residuePrefix) {
		v, err := strconv.ParseUint(tok[len(residuePrefix):], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("enum %s: %w: %q", t.name, ErrUnknownItem, tok)
		}
		return v, nil
	}
	if hasSeparator(tok) {
		if v, ok := t.byName[normalize(tok)]; ok {
			return v, nil
		}
		// short names may contain the separator themselves
		if sn, ok := t.short[tok]; ok {
			return t.fromShort(tok, sn)
		}
		return 0, t.unknown(tok)
	}
	if sn, ok := t.short[tok]; ok {
		return t.fromShort(tok, sn)
	}
	if v, ok := t.byName[tok]; ok {
		return v, nil
	}
	return 0, t.unknown(tok)
}

func (t *Table) fromShort(tok string, sn shortName) (uint64, error) {
	if sn.ambiguous {
		return 0, fmt.Errorf("enum %s: %w: %q (items are %s)", t.name, ErrAmbiguousItem, tok, strings.Join(t.Names(), ", "))
	}
	return t.byName[sn.full], nil
}

func (t *Table) unknown(tok string) error {
	return fmt.Errorf("enum %s: %w: %q (valid values are %s)", t.name, ErrUnknownItem, tok, strings.Join(t.Names(), ", "))
}

func (t *Table) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "enum %s : %d bytes {\n", t.name, t.width)
	for _, it := range t.items {
		fmt.Fprintf(&sb, "  %s\n", it)
	}
	sb.WriteString("};\n")
	return sb.String()
}
