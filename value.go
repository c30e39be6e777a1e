// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"fmt"
)

// ValueKind tags the contents of a Value.
type ValueKind uint8

const (
	// Unset slots take the field's schema default.
	Unset ValueKind = iota
	Int
	Uint
	Bytes
)

func (k ValueKind) String() string {
	switch k {
	case Unset:
		return "unset"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Bytes:
		return "bytes"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is the contents of one field slot.  Signed fields hold Int,
// unsigned and enum fields hold Uint, char arrays hold Bytes.
type Value struct {
	kind ValueKind
	i    int64
	u    uint64
	b    []byte
}

func IntValue(v int64) Value {
	return Value{kind: Int, i: v}
}

func UintValue(v uint64) Value {
	return Value{kind: Uint, u: v}
}

// BytesValue copies b.
func BytesValue(b []byte) Value {
	return Value{kind: Bytes, b: append([]byte{}, b...)}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) Int() int64 {
	return v.i
}

func (v Value) Uint() uint64 {
	return v.u
}

// Bytes returns a copy of the stored bytes.
func (v Value) Bytes() []byte {
	return append([]byte{}, v.b...)
}

func (v Value) String() string {
	switch v.kind {
	case Unset:
		return "<unset>"
	case Int:
		return fmt.Sprint(v.i)
	case Uint:
		return fmt.Sprint(v.u)
	case Bytes:
		return fmt.Sprintf("%q", v.b)
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}
