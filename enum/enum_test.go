// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func options1(t *testing.T) *Table {
	b := NewBuilder("Options1", 1)
	b.Add(Item{Name: "WFOP_No", Value: 0x00, Comment: "WiFi turned off"})
	b.Add(Item{Name: "WFOP_AP", Value: 0x01})
	b.Add(Item{Name: "WFOP_Sta", Value: 0x02})
	b.Add(Item{Name: "WFOP_Both", Value: 0x03})
	b.Add(Item{Name: "WFOP_Auto", Value: 0x04})
	b.Add(Item{Name: "WFOP_MASK", Value: 0x07})
	b.Add(Item{Name: "Nxt_Options", Value: 0x08})
	table, err := b.Compile()
	require.NoError(t, err)
	return table
}

func TestCompile_Errors(t *testing.T) {
	b := NewBuilder("Bad", 1)
	b.Add(Item{Name: "NoSeparator", Value: 1})
	_, err := b.Compile()
	require.ErrorIs(t, err, ErrBadItemName)

	b = NewBuilder("Bad", 1)
	b.Add(Item{Name: "A_X", Value: 0x100})
	_, err = b.Compile()
	require.ErrorIs(t, err, ErrValueOverflow)

	b = NewBuilder("Bad", 2)
	b.Add(Item{Name: "A_X", Value: 1})
	b.Add(Item{Name: "A_X", Value: 2})
	_, err = b.Compile()
	require.ErrorIs(t, err, ErrDuplicateItem)

	_, err = NewBuilder("Bad", 3).Compile()
	require.ErrorIs(t, err, ErrBadWidth)

	b = NewBuilder("Wide", 8)
	b.Add(Item{Name: "W_All", Value: ^uint64(0)})
	_, err = b.Compile()
	require.NoError(t, err)
}

func TestDecode(t *testing.T) {
	table := options1(t)

	for _, tc := range []struct {
		in       uint64
		expected string
	}{
		{0x00, "No"},
		{0x01, "AP"},
		{0x03, "Both"},
		{0x04, "Auto"},
		{0x0C, "Auto|Options"},
		{0x08, "No|Options"},
		{0x05, "#0x5"},
		{0x30, "No|#0x30"},
	} {
		assert.Equal(t, tc.expected, table.Decode(tc.in), "0x%X", tc.in)
	}
}

func TestDecode_NoMaskSubsetContainment(t *testing.T) {
	b := NewBuilder("Flags", 2)
	b.Add(Item{Name: "F_A", Value: 0x1})
	b.Add(Item{Name: "F_B", Value: 0x2})
	b.Add(Item{Name: "F_AB", Value: 0x3})
	table, err := b.Compile()
	require.NoError(t, err)

	// partial overlap with F_AB must not report it
	assert.Equal(t, "A", table.Decode(0x1))
	assert.Equal(t, "A|B|AB", table.Decode(0x3))
}

func TestEncode(t *testing.T) {
	table := options1(t)

	for _, tc := range []struct {
		in       string
		expected uint64
	}{
		{"", 0},
		{"Auto", 0x04},
		{"WFOP_Auto", 0x04},
		{"WFOP.Auto", 0x04},
		{"WFOP::Auto", 0x04},
		{"Auto|Options", 0x0C},
		{"Auto, Options", 0x0C},
		{" Sta  Nxt_Options ", 0x0A},
		{"No|#0x30", 0x30},
	} {
		v, err := table.Encode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.expected, v, tc.in)
	}

	for _, in := range []string{"auto", "WFOP_Nope", "Bogus", "#0xZZ", "WFOP.MASK"} {
		_, err := table.Encode(in)
		assert.ErrorIs(t, err, ErrUnknownItem, in)
	}
}

func TestEncode_AmbiguousShortName(t *testing.T) {
	b := NewBuilder("Modes", 1)
	b.Add(Item{Name: "LED_Off", Value: 0x01})
	b.Add(Item{Name: "BEEP_Off", Value: 0x02})
	b.Add(Item{Name: "BEEP_On", Value: 0x04})
	table, err := b.Compile()
	require.NoError(t, err)

	_, err = table.Encode("Off")
	require.ErrorIs(t, err, ErrAmbiguousItem)

	v, err := table.Encode("LED_Off")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x01), v)
	v, err = table.Encode("BEEP_Off")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x02), v)

	assert.Equal(t, "LED.Off|BEEP.Off|On", table.Decode(0x07))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	b := NewBuilder("Mixed", 2)
	b.Add(Item{Name: "LED_Off", Value: 0x0001})
	b.Add(Item{Name: "BEEP_Off", Value: 0x0002})
	b.Add(Item{Name: "Mode_Slow_Start", Value: 0x0004})
	b.Add(Item{Name: "Lvl_Low", Value: 0x0010})
	b.Add(Item{Name: "Lvl_Mid", Value: 0x0020})
	b.Add(Item{Name: "Lvl_High", Value: 0x0030})
	b.Add(Item{Name: "Lvl_MASK", Value: 0x0030})
	b.Add(Item{Name: "X_Turbo", Value: 0x0100})
	table, err := b.Compile()
	require.NoError(t, err)

	singles := []uint64{0x0001, 0x0002, 0x0004, 0x0100}
	levels := []uint64{0, 0x10, 0x20, 0x30}
	for mask := 0; mask < 1<<len(singles); mask++ {
		for _, lvl := range levels {
			v := lvl
			for i, s := range singles {
				if mask&(1<<i) != 0 {
					v |= s
				}
			}
			s := table.Decode(v)
			got, err := table.Encode(s)
			require.NoError(t, err, "0x%X -> %q", v, s)
			require.Equal(t, v, got, "0x%X -> %q", v, s)
		}
	}
}

func TestTable_Accessors(t *testing.T) {
	table := options1(t)
	assert.Equal(t, "Options1", table.Name())
	assert.Equal(t, 1, table.Width())
	assert.Len(t, table.Items(), 7)
	assert.Equal(t, []string{"WFOP_No", "WFOP_AP", "WFOP_Sta", "WFOP_Both", "WFOP_Auto", "Nxt_Options"}, table.Names())
	v, ok := table.Lookup("WFOP_Both")
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v)
	_, ok = table.Lookup("WFOP_MASK")
	assert.False(t, ok)
	assert.Contains(t, table.String(), "WFOP_No = 0x0, // WiFi turned off")
}
