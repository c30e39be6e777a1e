// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cfgc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/cfgc/internal/textproj"
)

func TestExportText_Defaults(t *testing.T) {
	r := NewRecord(compileTestSchema(t))

	text, err := r.ExportText(false)
	require.NoError(t, err)
	assert.Equal(t, `# WiFi network name
ssid = ''
trim = -3
temp_offset = -100
baud = 115200
options1 = 'Auto'
contrast = 207
counter = 0
big = 0
ubig = 0
`, text)
}

func TestExportText_Hidden(t *testing.T) {
	r := NewRecord(compileTestSchema(t))

	text, err := r.SaveText(true, true)
	require.NoError(t, err)
	kvs, err := textproj.Parse(text)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(kvs), 3)
	assert.Equal(t, "crc", kvs[0].Key)
	assert.Equal(t, textproj.KeyValue{Key: "size", Value: int64(testSize/4 - 1)}, kvs[1])
	assert.Equal(t, textproj.KeyValue{Key: "version", Value: int64(2)}, kvs[2])
	assert.NotContains(t, text, "reserved")
}

func TestExportText_StripsTrailingZeros(t *testing.T) {
	r := NewRecord(compileTestSchema(t))
	require.NoError(t, r.Set("ssid", []byte("ab\x00\x00\x00")))

	text, err := r.ExportText(false)
	require.NoError(t, err)
	assert.Contains(t, text, "ssid = 'ab'\n")
}

func TestExportText_InvalidUTF8(t *testing.T) {
	r := NewRecord(compileTestSchema(t))
	require.NoError(t, r.Set("ssid", []byte("a\xffb")))

	text, err := r.ExportText(false)
	require.NoError(t, err)
	assert.Contains(t, text, `ssid = "a\uFFFDb"`+"\n")
	kvs, err := textproj.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, textproj.KeyValue{Key: "ssid", Value: "a\uFFFDb"}, kvs[0])
}

func TestText_TruncatedMultibyteRoundTrip(t *testing.T) {
	s := compileTestSchema(t)
	r := NewRecord(s)
	// 11 bytes into char[9]: the cut lands inside the fourth rune
	require.NoError(t, r.Set("ssid", "aééééé"))
	assert.Equal(t, "aééé", string(mustValue(t, r, "ssid").Bytes()))

	text, err := r.ExportText(true)
	require.NoError(t, err)
	assert.Contains(t, text, "ssid = 'aééé'\n")

	again := NewRecord(s)
	require.NoError(t, again.ImportText(text, false))
	assertSameValues(t, r, again)
}

func TestExportText_UintOutOfRange(t *testing.T) {
	r := NewRecord(compileTestSchema(t))
	require.NoError(t, r.Set("ubig", uint64(math.MaxInt64)))
	_, err := r.ExportText(false)
	require.NoError(t, err)

	require.NoError(t, r.Set("ubig", uint64(math.MaxInt64)+1))
	_, err = r.ExportText(false)
	require.ErrorIs(t, err, textproj.ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "ubig")
}

func TestText_RoundTrip(t *testing.T) {
	s := compileTestSchema(t)
	r := NewRecord(s)
	populated(t, r)

	text, err := r.SaveText(true, true)
	require.NoError(t, err)
	assert.Contains(t, text, "options1 = 'Sta|Options'\n")
	assert.Contains(t, text, "ssid = '''it's\nme'''\n")

	again := NewRecord(s)
	require.NoError(t, again.ImportText(text, false))
	assertSameValues(t, r, again)

	// binary and text describe the same image
	img1, err := r.ExportBinary()
	require.NoError(t, err)
	img2, err := again.ExportBinary()
	require.NoError(t, err)
	assert.Equal(t, img1, img2)
}

func TestImportText_UnknownFields(t *testing.T) {
	r, logs := observedRecord(t)

	err := r.ImportText("trim = 5\nbogus = 1\n", false)
	require.ErrorIs(t, err, ErrUnknownField)
	assert.False(t, r.IsSet("trim"))

	err = r.ImportText("reserved1 = 1\n", false)
	require.ErrorIs(t, err, ErrFillerField)

	require.NoError(t, r.ImportText("trim = 5\nbogus = 1\nreserved1 = 1\n", true))
	assert.Equal(t, IntValue(5), mustValue(t, r, "trim"))
	assert.Equal(t, 2, logs.FilterMessage("unknown field ignored").Len())
}

func TestImportText_Errors(t *testing.T) {
	r := NewRecord(compileTestSchema(t))

	// nothing is applied when a later assignment fails
	err := r.ImportText("trim = 5\ncontrast = 300\n", true)
	require.ErrorIs(t, err, ErrEncodingOverflow)
	assert.False(t, r.IsSet("trim"))

	require.ErrorIs(t, r.ImportText("options1 = 4\n", false), ErrTypeMismatch)
	require.ErrorIs(t, r.ImportText("ssid = 4\n", false), ErrTypeMismatch)
	require.ErrorIs(t, r.ImportText("contrast = 1.5\n", false), textproj.ErrUnsupportedValue)
	require.Error(t, r.ImportText("contrast = \n", false))
}
