// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/cfgc/internal/header"
	"github.com/bpowers/cfgc/schema"
)

func populated(t *testing.T, r *Record) {
	t.Helper()
	for name, v := range map[string]any{
		"ssid":        "it's\nme",
		"trim":        -128,
		"temp_offset": 32767,
		"baud":        uint32(math.MaxUint32),
		"options1":    "Sta|Options",
		"contrast":    0,
		"counter":     12345,
		"big":         int64(math.MinInt64),
		"ubig":        uint64(math.MaxInt64),
	} {
		require.NoError(t, r.Set(name, v), name)
	}
}

// assertSameValues compares every field, ignoring zero padding after
// char array contents.
func assertSameValues(t *testing.T, expected, actual *Record) {
	t.Helper()
	canonical := func(v Value) Value {
		if v.Kind() == Bytes {
			return BytesValue(bytes.TrimRight(v.Bytes(), "\x00"))
		}
		return v
	}
	for _, name := range expected.Schema().FieldNames() {
		assert.Equal(t, canonical(mustValue(t, expected, name)), canonical(mustValue(t, actual, name)), name)
	}
}

func TestBinary_RoundTrip(t *testing.T) {
	s := compileTestSchema(t)
	r := NewRecord(s)
	populated(t, r)

	img, err := r.SaveBinary(true)
	require.NoError(t, err)
	require.Len(t, img, testSize)

	assert.Equal(t, uint16(testSize/4-1), binary.LittleEndian.Uint16(img[4:6]))
	assert.Equal(t, byte(2), img[6])
	assert.Equal(t, []byte("it's\nme\x00\x00"), img[7:16])
	assert.Equal(t, byte(0x80), img[16])
	assert.Equal(t, byte(0), img[17], "filler")
	assert.Equal(t, byte(0x0A), img[24])
	assert.Equal(t, header.Checksum(img), binary.LittleEndian.Uint32(img[:4]))

	again := NewRecord(s)
	require.NoError(t, again.ImportBinary(img, ForceStrict))
	assertSameValues(t, r, again)

	img2, err := again.ExportBinary()
	require.NoError(t, err)
	assert.Equal(t, img, img2)
}

func TestBinary_FreshRecord(t *testing.T) {
	s, err := schema.CompileString(`
ConfigVersion = 1;
LC_ConfigVersion = 1;
struct Config_V1 {
    uint32_t crc;
    uint16_t size;
    uint8_t version;
    uint8_t contrast = 0xCF;
};
`)
	require.NoError(t, err)
	require.Equal(t, 8, s.Size)

	img, err := NewRecord(s).SaveBinary(true)
	require.NoError(t, err)
	require.Len(t, img, 8)
	assert.Equal(t, byte(1), img[6])
	assert.Equal(t, byte(0xCF), img[7])

	warnings, err := header.Check(img, s.MinVersion, s.Version)
	require.NoError(t, err)
	assert.Nil(t, warnings)
}

func TestBinary_DeferredChecksum(t *testing.T) {
	s := compileTestSchema(t)

	// a zero crc becomes the sentinel
	img, err := NewRecord(s).SaveBinary(false)
	require.NoError(t, err)
	assert.Equal(t, uint32(header.DeferredChecksum), binary.LittleEndian.Uint32(img[:4]))

	// a caller supplied crc is preserved
	r := NewRecord(s)
	require.NoError(t, r.Set("crc", uint32(0x12345678)))
	img, err = r.SaveBinary(false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), binary.LittleEndian.Uint32(img[:4]))

	// computing the checksum replaces whatever was there
	img, err = r.SaveBinary(true)
	require.NoError(t, err)
	assert.Equal(t, header.Checksum(img), binary.LittleEndian.Uint32(img[:4]))
}

func validImage(t *testing.T) []byte {
	t.Helper()
	r := NewRecord(compileTestSchema(t))
	populated(t, r)
	img, err := r.SaveBinary(true)
	require.NoError(t, err)
	return img
}

func TestImportBinary_ForceLevels(t *testing.T) {
	s := compileTestSchema(t)

	corrupt := validImage(t)
	corrupt[20] ^= 0xFF
	for _, force := range []Force{ForceStrict, ForceWarn} {
		err := NewRecord(s).ImportBinary(corrupt, force)
		assert.ErrorIs(t, err, ErrChecksumMismatch, "force %d", force)
	}
	require.NoError(t, NewRecord(s).ImportBinary(corrupt, ForceSkip))

	short := validImage(t)
	short = short[:len(short)-1]
	for _, force := range []Force{ForceStrict, ForceWarn} {
		err := NewRecord(s).ImportBinary(short, force)
		assert.ErrorIs(t, err, ErrImageTooShort, "force %d", force)
	}

	future := validImage(t)
	future[6] = 3
	binary.LittleEndian.PutUint32(future[:4], header.Checksum(future))
	err := NewRecord(s).ImportBinary(future, ForceWarn)
	assert.ErrorIs(t, err, ErrVersionOutOfRange)
}

func TestImportBinary_Warnings(t *testing.T) {
	deferred := validImage(t)
	binary.LittleEndian.PutUint32(deferred[:4], header.DeferredChecksum)

	r, logs := observedRecord(t)
	err := r.ImportBinary(deferred, ForceStrict)
	require.ErrorIs(t, err, ErrUnsafeImage)
	assert.Contains(t, err.Error(), "deferred checksum")
	assert.False(t, r.IsSet("trim"))

	require.NoError(t, r.ImportBinary(deferred, ForceWarn))
	assert.Equal(t, 1, logs.FilterMessage("unsafe config image").Len())
	assert.Equal(t, IntValue(-128), mustValue(t, r, "trim"))

	trailing := append(validImage(t), 0, 0, 0, 0)
	require.ErrorIs(t, NewRecord(compileTestSchema(t)).ImportBinary(trailing, ForceStrict), ErrUnsafeImage)
	require.NoError(t, NewRecord(compileTestSchema(t)).ImportBinary(trailing, ForceWarn))
}

func TestImportBinary_OlderImage(t *testing.T) {
	// a version 1 image covering only the first 20 bytes of the layout
	old := validImage(t)[:20]
	binary.LittleEndian.PutUint16(old[4:6], header.SizeFieldFor(len(old)))
	old[6] = 1
	binary.LittleEndian.PutUint32(old[:4], header.Checksum(old))

	r, logs := observedRecord(t)
	require.NoError(t, r.ImportBinary(old, ForceStrict))
	assert.Equal(t, 1, logs.FilterMessage("config image shorter than layout, remaining fields keep their values").Len())

	assert.Equal(t, IntValue(32767), mustValue(t, r, "temp_offset"))
	assert.False(t, r.IsSet("baud"))
	assert.Equal(t, UintValue(115200), mustValue(t, r, "baud"))

	img, err := r.SaveBinary(true)
	require.NoError(t, err)
	assert.Len(t, img, testSize)
	assert.Equal(t, byte(2), img[6])
}

func TestImportBinary_PartialField(t *testing.T) {
	r := NewRecord(compileTestSchema(t))
	img := validImage(t)

	// temp_offset starts at 18; only its low byte is present
	require.NoError(t, r.ImportBinary(img[:19], ForceSkip))
	assert.Equal(t, IntValue(0xFF), mustValue(t, r, "temp_offset"))
	assert.False(t, r.IsSet("baud"))
}
