// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/bpowers/cfgc/internal/header"
	"github.com/bpowers/cfgc/schema"
)

// Force selects how much image validation ImportBinary performs.
type Force int

const (
	// ForceStrict rejects images that fail validation or raise warnings.
	ForceStrict Force = iota
	// ForceWarn logs validation warnings but still rejects invalid images.
	ForceWarn
	// ForceSkip performs no validation.
	ForceSkip
)

// ImportBinary loads field values from a binary image.  Filler fields are
// skipped.  An image shorter than the layout (an older compatible version,
// or anything at ForceSkip) leaves fields past its end untouched.
func (r *Record) ImportBinary(img []byte, force Force) error {
	if force < ForceSkip {
		warnings, err := header.Check(img, r.schema.MinVersion, r.schema.Version)
		if err != nil {
			return err
		}
		if warnings != nil {
			if force == ForceStrict {
				return fmt.Errorf("%w: %w", ErrUnsafeImage, warnings)
			}
			for _, w := range warnings.Errors {
				r.logger.Warn("unsafe config image", zap.Error(w))
			}
		}
	}

	if len(img) < r.schema.Size {
		r.logger.Warn("config image shorter than layout, remaining fields keep their values",
			zap.Int("imageSize", len(img)),
			zap.Int("layoutSize", r.schema.Size))
	}
	for i, f := range r.fields {
		if f.Kind == schema.Filler || f.Offset >= len(img) {
			continue
		}
		raw := make([]byte, f.Size)
		copy(raw, img[f.Offset:])
		r.slots[i] = decodeField(f, raw)
	}
	return nil
}

func decodeField(f *schema.Field, raw []byte) Value {
	if f.Kind == schema.Chars {
		return BytesValue(raw)
	}
	v := getUint(raw)
	if f.Signed() {
		return IntValue(schema.SignExtend(v, f.Size))
	}
	return UintValue(v)
}

func getUint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func putUint(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

// ExportBinary encodes every field at its offset.  Unset fields take
// their defaults, char arrays are zero padded and fillers are zero.
func (r *Record) ExportBinary() ([]byte, error) {
	img := make([]byte, r.schema.Size)
	for i, f := range r.fields {
		if f.Kind == schema.Filler {
			continue
		}
		dst := img[f.Offset : f.Offset+f.Size]
		v := r.effective(i, f)
		switch v.kind {
		case Bytes:
			if len(v.b) > f.Size {
				return nil, fmt.Errorf("%s: %w: %d bytes in char[%d]", f.Name, ErrEncodingOverflow, len(v.b), f.Size)
			}
			copy(dst, v.b)
		case Int:
			if low, high := f.Range(); v.i < low || (v.i > 0 && uint64(v.i) > high) {
				return nil, fmt.Errorf("%s: %w: %d", f.Name, ErrEncodingOverflow, v.i)
			}
			putUint(dst, uint64(v.i))
		case Uint:
			if _, high := f.Range(); v.u > high {
				return nil, fmt.Errorf("%s: %w: %d", f.Name, ErrEncodingOverflow, v.u)
			}
			putUint(dst, v.u)
		}
	}
	return img, nil
}

// PatchSyntheticFields recomputes the header fields in order: version,
// size, then crc over everything after it.  With computeChecksum false a
// non-zero crc already in the record is kept as supplied by the caller;
// a zero crc becomes header.DeferredChecksum.
func (r *Record) PatchSyntheticFields(computeChecksum bool) error {
	if err := r.Set(schema.FieldVersion, uint64(r.schema.Version)); err != nil {
		return err
	}
	img, err := r.ExportBinary()
	if err != nil {
		return err
	}
	if err := r.Set(schema.FieldSize, uint64(header.SizeFieldFor(len(img)))); err != nil {
		return err
	}

	var sum uint64
	if computeChecksum {
		if img, err = r.ExportBinary(); err != nil {
			return err
		}
		sum = uint64(header.Checksum(img))
	} else {
		current, err := r.Value(schema.FieldCRC)
		if err != nil {
			return err
		}
		if current.Uint() != 0 {
			r.logger.Debug("keeping caller supplied checksum", zap.Uint64("crc", current.Uint()))
			return nil
		}
		sum = header.DeferredChecksum
	}
	return r.Set(schema.FieldCRC, sum)
}

// SaveBinary patches the synthetic fields and returns the image.
func (r *Record) SaveBinary(computeChecksum bool) ([]byte, error) {
	if err := r.PatchSyntheticFields(computeChecksum); err != nil {
		return nil, err
	}
	return r.ExportBinary()
}
