// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package textproj

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected string
	}{
		{"", "''"},
		{"my-ssid", "'my-ssid'"},
		{`C:\path`, `'C:\path'`},
		{"tab\there", "'tab\there'"},
		{"it's", "'''it's'''"},
		{"two\nlines", "'''two\nlines'''"},
		{"ends'", `"ends'"`},
		{"\nleading", `"\nleading"`},
		{"a'''b", `"a'''b"`},
		{"it's\r\n", `"it's\r\n"`},
		{"bell\x07", `"bell\u0007"`},
		{"q\"'\\", `'''q"'\'''`},
		{"bad\xffbyte", `"bad\uFFFDbyte"`},
		{"a\uFFFDb", `"a\uFFFDb"`},
		{"it's\uFFFD", `"it's\uFFFD"`},
	} {
		assert.Equal(t, tc.expected, Quote(tc.in), "%q", tc.in)
	}
}

// Every quoted form must decode back to the original string.
func TestQuote_ParsesBack(t *testing.T) {
	for _, s := range []string{
		"", "plain", "it's", "two\nlines", "ends'", "\nleading", "a'''b",
		"it's\r\n", "bell\x07", "q\"'\\", "tab\tand'quote", "\x7f", "multi\n'''\nline",
		"a\uFFFDb", "\uFFFD",
	} {
		kvs, err := Parse("v = " + Quote(s) + "\n")
		require.NoError(t, err, "%q", s)
		require.Len(t, kvs, 1)
		assert.Equal(t, s, kvs[0].Value, "%q", s)
	}
}

func TestParse(t *testing.T) {
	kvs, err := Parse(`
# comment
ssid = 'home'
oled_contrast = 207
offset = -12
options1 = "Auto|Options"
`)
	require.NoError(t, err)
	assert.Equal(t, []KeyValue{
		{Key: "ssid", Value: "home"},
		{Key: "oled_contrast", Value: int64(207)},
		{Key: "offset", Value: int64(-12)},
		{Key: "options1", Value: "Auto|Options"},
	}, kvs)
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{
		"a = 1.5\n",
		"a = true\n",
		"a = [1, 2]\n",
		"[table]\na = 1\n",
		"a = 1979-05-27\n",
	} {
		_, err := Parse(text)
		assert.True(t, errors.Is(err, ErrUnsupportedValue), "%q: %v", text, err)
	}

	_, err := Parse("a = \n")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedValue))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Comment("WiFi network name")
	w.String("ssid", "home")
	w.Int("offset", -3)
	w.Uint("crc", 0xFFFFFFFF)
	require.NoError(t, w.Err())

	assert.Equal(t, "# WiFi network name\nssid = 'home'\noffset = -3\ncrc = 4294967295\n", buf.String())

	kvs, err := Parse(buf.String())
	require.NoError(t, err)
	require.Len(t, kvs, 3)
	assert.Equal(t, int64(0xFFFFFFFF), kvs[2].Value)
}

func TestWriter_UintOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Uint("big", math.MaxInt64)
	w.Uint("bigger", math.MaxInt64+1)
	w.Uint("after", 1)
	require.ErrorIs(t, w.Err(), ErrUnsupportedValue)
	assert.Equal(t, "big = 9223372036854775807\n", buf.String())
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriter_KeepsFirstError(t *testing.T) {
	w := NewWriter(failWriter{})
	w.Int("a", 1)
	w.String("b", "x")
	require.EqualError(t, w.Err(), "disk full")
}
