// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package textproj

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Quote renders s as a TOML string using the least escaping form that
// reads back unchanged: a literal string, then a multi-line literal
// string, then a basic string with escapes.  Invalid UTF-8 becomes
// U+FFFD, which is always written as an escape because the decoder
// rejects the raw rune.
func Quote(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	if strings.ContainsRune(s, utf8.RuneError) {
		return basic(s)
	}
	if !strings.Contains(s, "'") && !hasControl(s, "\t") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, "'''") && !strings.HasPrefix(s, "\n") && !strings.HasSuffix(s, "'") && !hasControl(s, "\t\n") {
		return "'''" + s + "'''"
	}
	return basic(s)
}

// hasControl reports whether s holds a control character not in allowed.
func hasControl(s, allowed string) bool {
	for _, r := range s {
		if isControl(r) && !strings.ContainsRune(allowed, r) {
			return true
		}
	}
	return false
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7F
}

var escapes = map[rune]string{
	'\b': `\b`,
	'\t': `\t`,
	'\n': `\n`,
	'\f': `\f`,
	'\r': `\r`,
	'"':  `\"`,
	'\\': `\\`,
}

func basic(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		if esc, ok := escapes[r]; ok {
			sb.WriteString(esc)
		} else if isControl(r) || r == utf8.RuneError {
			fmt.Fprintf(&sb, `\u%04X`, r)
		} else {
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
