// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// line is one source line split into tokens, with any trailing // comment
// kept separately.
type line struct {
	num     int
	code    string // text before the comment
	tokens  []token
	comment string
}

func (l *line) empty() bool {
	return len(l.tokens) == 0
}

// punct reports whether the line consists of exactly the given punctuation.
func (l *line) punct(p ...string) bool {
	if len(l.tokens) != len(p) {
		return false
	}
	for i, s := range p {
		if !l.tokens[i].is(tokPunct, s) {
			return false
		}
	}
	return true
}

func (l *line) String() string {
	parts := make([]string, len(l.tokens))
	for i, t := range l.tokens {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenize splits a single line.  Any character that is not part of an
// identifier or number becomes a single punctuation token; the classifier
// decides whether it is acceptable where it appears.
func tokenize(num int, text string) *line {
	l := &line{num: num}
	if code, comment, ok := strings.Cut(text, "//"); ok {
		text = code
		l.comment = strings.TrimSpace(comment)
	}
	l.code = strings.TrimSpace(text)

	rs := []rune(text)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isIdentStart(r):
			j := i + 1
			for j < len(rs) && isIdentPart(rs[j]) {
				j++
			}
			l.tokens = append(l.tokens, token{kind: tokIdent, text: string(rs[i:j])})
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && isIdentPart(rs[j]) {
				j++
			}
			l.tokens = append(l.tokens, token{kind: tokNumber, text: string(rs[i:j])})
			i = j
		case r == ':' && i+1 < len(rs) && rs[i+1] == ':':
			l.tokens = append(l.tokens, token{kind: tokPunct, text: "::"})
			i += 2
		default:
			l.tokens = append(l.tokens, token{kind: tokPunct, text: string(r)})
			i++
		}
	}
	return l
}

// lexer yields tokenized lines from a reader.
type lexer struct {
	s   *bufio.Scanner
	num int
	src strings.Builder
}

func newLexer(r io.Reader) *lexer {
	return &lexer{s: bufio.NewScanner(r)}
}

// next returns the next line, or nil at end of input.
func (lx *lexer) next() (*line, error) {
	if !lx.s.Scan() {
		if err := lx.s.Err(); err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		return nil, nil
	}
	lx.num++
	text := lx.s.Text()
	lx.src.WriteString(text)
	lx.src.WriteByte('\n')
	return tokenize(lx.num, text), nil
}

// drain consumes the remaining input so source covers the whole text.
func (lx *lexer) drain() error {
	for lx.s.Scan() {
		lx.src.WriteString(lx.s.Text())
		lx.src.WriteByte('\n')
	}
	if err := lx.s.Err(); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return nil
}

// source returns the text consumed so far.
func (lx *lexer) source() string {
	return lx.src.String()
}
