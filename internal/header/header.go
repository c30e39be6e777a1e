// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package header reads and validates the fixed 7-byte prefix every config
// image starts with.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/bpowers/cfgc/internal/crc"
)

const (
	// Size is the encoded header length: crc, size field and version.
	Size = 4 + 2 + 1

	// DeferredChecksum in the crc slot asks the receiving firmware to
	// compute the checksum itself.
	DeferredChecksum = 0xFFFFFFFF

	// checksumStart is the first byte covered by the checksum.
	checksumStart = 4
	sizeMask      = 0x3FF
)

var (
	ErrImageTooShort     = errors.New("config image too short")
	ErrChecksumMismatch  = errors.New("config image checksum mismatch")
	ErrVersionOutOfRange = errors.New("config image version out of range")
)

// Warning is a validation finding that does not make the image unusable.
type Warning struct {
	msg string
}

func (w *Warning) Error() string {
	return w.msg
}

func warnf(format string, a ...any) *Warning {
	return &Warning{msg: fmt.Sprintf(format, a...)}
}

type Header struct {
	Checksum uint32
	// SizeField holds the image length as a count of 32-bit words minus
	// one in its low 10 bits.
	SizeField uint16
	Version   uint8
}

// SizeFieldFor returns the size field describing an image of n bytes.
func SizeFieldFor(n int) uint16 {
	return uint16(n/4 - 1)
}

// ImageSize is the image length in bytes the header declares.
func (h *Header) ImageSize() int {
	return int(h.SizeField&sizeMask)*4 + 4
}

func (h *Header) MarshalTo(buf []byte) error {
	if len(buf) < Size {
		return fmt.Errorf("buf too short: %d < %d", len(buf), Size)
	}
	binary.LittleEndian.PutUint32(buf[:4], h.Checksum)
	binary.LittleEndian.PutUint16(buf[4:6], h.SizeField)
	buf[6] = h.Version
	return nil
}

func (h *Header) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < Size {
		return fmt.Errorf("%w: %d < %d header bytes", ErrImageTooShort, len(headerBytes), Size)
	}
	headerBytes = headerBytes[:Size]

	h.Checksum = binary.LittleEndian.Uint32(headerBytes[:4])
	h.SizeField = binary.LittleEndian.Uint16(headerBytes[4:6])
	h.Version = headerBytes[6]
	return nil
}

// Checksum computes the checksum the crc slot of img should hold.
func Checksum(img []byte) uint32 {
	if len(img) <= checksumStart {
		return crc.Checksum(nil)
	}
	return crc.Checksum(img[checksumStart:])
}

// Check validates img against the accepted version range.  A non-nil
// error means the image must be rejected; warnings describe problems
// the caller may choose to tolerate.
func Check(img []byte, minVersion, maxVersion uint8) (*multierror.Error, error) {
	var h Header
	if err := h.UnmarshalBytes(img); err != nil {
		return nil, err
	}

	var warnings *multierror.Error
	size := h.ImageSize()
	if size > len(img) {
		return nil, fmt.Errorf("%w: %d bytes, header declares %d", ErrImageTooShort, len(img), size)
	}
	if extra := len(img) - size; extra > 0 {
		warnings = multierror.Append(warnings, warnf("%d bytes of extra data at end of image", extra))
	}

	if h.Checksum == DeferredChecksum {
		warnings = multierror.Append(warnings, warnf("deferred checksum (0x%08X) in image, contents are not verified", h.Checksum))
	} else if sum := Checksum(img[:size]); sum != h.Checksum {
		return nil, fmt.Errorf("%w: computed 0x%08X, stored 0x%08X", ErrChecksumMismatch, sum, h.Checksum)
	}

	if h.Version < minVersion || h.Version > maxVersion {
		return nil, fmt.Errorf("%w: version %d not in %d..%d", ErrVersionOutOfRange, h.Version, minVersion, maxVersion)
	}
	return warnings, nil
}
