// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Python quoted string utilities.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// unesc maps single-letter chars following \ to their actual values.
var unesc = [256]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
}

// esc maps escape-worthy bytes to the char that should follow \.
var esc = [256]byte{
	'\a': 'a',
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	'\v': 'v',
	'\\': '\\',
	'"':  '"',
}

// unquote unquotes the quoted string, returning the actual
// string value, whether the original was triple-quoted, and
// whether it was a bytes literal.
//
// The quoted text may carry any Python string prefix.  Raw strings
// keep their backslashes; f-strings are returned undecoded, and the
// parser locates their replacement fields with fieldSpans.
func unquote(quoted string) (s string, triple, isBytes bool, err error) {
	raw, fstring := false, false
	for len(quoted) > 0 && quoted[0] != '"' && quoted[0] != '\'' {
		switch quoted[0] {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
			isBytes = true
		case 'f', 'F':
			fstring = true
		case 'u', 'U':
		default:
			err = fmt.Errorf("invalid string prefix %q", quoted[0])
			return
		}
		quoted = quoted[1:]
	}

	if len(quoted) < 2 {
		err = fmt.Errorf("string literal too short")
		return
	}

	if quoted[0] != '"' && quoted[0] != '\'' || quoted[0] != quoted[len(quoted)-1] {
		err = fmt.Errorf("string literal has invalid quotes")
		return
	}

	// Check for triple quoted string.
	quote := quoted[0]
	if len(quoted) >= 6 && quoted[1] == quote && quoted[2] == quote && quoted[:3] == quoted[len(quoted)-3:] {
		triple = true
		quoted = quoted[3 : len(quoted)-3]
	} else {
		quoted = quoted[1 : len(quoted)-1]
	}

	// Now quoted is the quoted data, but no quotes.
	// If we're in raw mode or there are no escapes or
	// carriage returns, we're done.
	var unquoteChars string
	if raw || fstring {
		unquoteChars = "\r"
	} else {
		unquoteChars = "\\\r"
	}
	if !strings.ContainsAny(quoted, unquoteChars) {
		s = quoted
		return
	}

	// Otherwise process quoted string.
	// Each iteration processes one escape sequence along with the
	// plain text leading up to it.
	buf := new(strings.Builder)
	for {
		// Remove prefix before escape sequence.
		i := strings.IndexAny(quoted, unquoteChars)
		if i < 0 {
			i = len(quoted)
		}
		buf.WriteString(quoted[:i])
		quoted = quoted[i:]

		if len(quoted) == 0 {
			break
		}

		// Process carriage return.
		if quoted[0] == '\r' {
			buf.WriteByte('\n')
			if len(quoted) > 1 && quoted[1] == '\n' {
				quoted = quoted[2:]
			} else {
				quoted = quoted[1:]
			}
			continue
		}

		// Process escape sequence.
		if len(quoted) == 1 {
			err = fmt.Errorf(`truncated escape sequence \`)
			return
		}

		switch quoted[1] {
		default:
			// In Python, an unknown escape sequence is
			// left in the string unchanged.
			buf.WriteString(quoted[:2])
			quoted = quoted[2:]

		case '\n':
			// Ignore the escape and the line break.
			quoted = quoted[2:]

		case 'a', 'b', 'f', 'n', 'r', 't', 'v', '\\', '\'', '"':
			// One-char escape
			buf.WriteByte(unesc[quoted[1]])
			quoted = quoted[2:]

		case '0', '1', '2', '3', '4', '5', '6', '7':
			// Octal escape, up to 3 digits.
			n := int(quoted[1] - '0')
			quoted = quoted[2:]
			for i := 1; i < 3; i++ {
				if len(quoted) == 0 || quoted[0] < '0' || '7' < quoted[0] {
					break
				}
				n = n*8 + int(quoted[0]-'0')
				quoted = quoted[1:]
			}
			if n >= 256 {
				err = fmt.Errorf(`invalid escape sequence \%03o`, n)
				return
			}
			buf.WriteByte(byte(n))

		case 'x':
			// Hexadecimal escape, exactly 2 digits.
			if len(quoted) < 4 {
				err = fmt.Errorf(`truncated escape sequence %s`, quoted)
				return
			}
			n, err1 := strconv.ParseUint(quoted[2:4], 16, 0)
			if err1 != nil {
				err = fmt.Errorf(`invalid escape sequence %s`, quoted[:4])
				return
			}
			if isBytes {
				buf.WriteByte(byte(n))
			} else {
				buf.WriteRune(rune(n))
			}
			quoted = quoted[4:]

		case 'u', 'U':
			if isBytes {
				// No unicode escapes in bytes literals.
				buf.WriteString(quoted[:2])
				quoted = quoted[2:]
				break
			}
			sz := 6
			if quoted[1] == 'U' {
				sz = 10
			}
			if len(quoted) < sz {
				err = fmt.Errorf(`truncated escape sequence %s`, quoted)
				return
			}
			n, err1 := strconv.ParseUint(quoted[2:sz], 16, 0)
			if err1 != nil || n > utf8.MaxRune {
				err = fmt.Errorf(`invalid escape sequence %s`, quoted[:sz])
				return
			}
			buf.WriteRune(rune(n))
			quoted = quoted[sz:]
		}
	}

	s = buf.String()
	return
}

// Quote returns a Python literal that denotes s.
// If b, it returns a bytes literal.
func Quote(s string, b bool) string {
	const hex = "0123456789abcdef"
	var buf strings.Builder
	if b {
		buf.WriteByte('b')
	}
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if e := esc[c]; e != 0 {
			buf.WriteByte('\\')
			buf.WriteByte(e)
			i++
			continue
		}
		if c < utf8.RuneSelf {
			if c < 0x20 || c == 0x7f {
				buf.WriteString(`\x`)
				buf.WriteByte(hex[c>>4])
				buf.WriteByte(hex[c&0xf])
			} else {
				buf.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 || b {
			// Invalid UTF-8 and bytes are written byte by byte.
			for _, c := range []byte(s[i : i+size]) {
				buf.WriteString(`\x`)
				buf.WriteByte(hex[c>>4])
				buf.WriteByte(hex[c&0xf])
			}
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
	return buf.String()
}

// fieldSpans returns the byte offsets of the expression text of each
// replacement field of raw, the source text of a string literal, in
// order of appearance. It returns nil unless raw is an f-string.
// The offsets exclude surrounding spaces and any conversion, format
// spec or = suffix; fields nested in a format spec follow their
// enclosing field.
func fieldSpans(raw string) ([][2]int, error) {
	i := strings.IndexAny(raw, `"'`)
	if i < 0 || !strings.ContainsAny(raw[:i], "fF") {
		return nil, nil
	}
	isRaw := strings.ContainsAny(raw[:i], "rR")
	q := 1
	if strings.HasPrefix(raw[i:], strings.Repeat(raw[i:i+1], 3)) && len(raw)-i >= 6 {
		q = 3
	}
	fs := fieldScanner{raw: raw, end: len(raw) - q}
	for j := i + q; j < fs.end; {
		switch c := raw[j]; {
		case c == '\\' && !isRaw:
			j = fs.skipEscape(j)
		case c == '{' && j+1 < fs.end && raw[j+1] == '{',
			c == '}' && j+1 < fs.end && raw[j+1] == '}':
			j += 2
		case c == '{':
			k, err := fs.field(j + 1)
			if err != nil {
				return nil, err
			}
			j = k
		case c == '}':
			return nil, fmt.Errorf("f-string: single '}' is not allowed")
		default:
			j++
		}
	}
	return fs.spans, nil
}

type fieldScanner struct {
	raw   string
	end   int // offset of the closing quotes
	spans [][2]int
}

// skipEscape returns the offset after the escape sequence at j.
// A named character \N{...} is skipped whole so that its braces
// do not open a field.
func (fs *fieldScanner) skipEscape(j int) int {
	if j+1 >= fs.end {
		return j + 1
	}
	if fs.raw[j+1] == 'N' && j+2 < fs.end && fs.raw[j+2] == '{' {
		if k := strings.IndexByte(fs.raw[j:fs.end], '}'); k >= 0 {
			return j + k + 1
		}
	}
	if fs.raw[j+1] == '\\' {
		return j + 2
	}
	return j + 1
}

// field scans the replacement field whose expression starts at j and
// returns the offset after its closing brace.
func (fs *fieldScanner) field(j int) (int, error) {
	raw := fs.raw
	depth := 0
	k := j
scan:
	for k < fs.end {
		switch c := raw[k]; c {
		case '\'', '"':
			next, err := fs.skipString(k)
			if err != nil {
				return 0, err
			}
			k = next
			continue
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				break scan
			}
			depth--
		case '!':
			if depth == 0 && (k+1 >= fs.end || raw[k+1] != '=') {
				break scan
			}
			if k+1 < fs.end {
				k++ // !=
			}
		case ':':
			if depth == 0 {
				break scan
			}
		case '=':
			if k+1 < fs.end && raw[k+1] == '=' {
				k++ // ==
			} else if depth == 0 && !strings.ContainsRune("=!<>", rune(raw[k-1])) {
				break scan // self-documenting x=
			}
		}
		k++
	}

	start, stop := j, k
	for start < stop && isSpace(raw[start]) {
		start++
	}
	for stop > start && isSpace(raw[stop-1]) {
		stop--
	}
	if start == stop {
		return 0, fmt.Errorf("f-string: empty expression not allowed")
	}
	fs.spans = append(fs.spans, [2]int{start, stop})

	if k < fs.end && raw[k] == '=' {
		k++
		for k < fs.end && isSpace(raw[k]) {
			k++
		}
	}
	if k < fs.end && raw[k] == '!' {
		k += 2 // conversion character
	}
	if k < fs.end && raw[k] == ':' {
		k++
		for k < fs.end && raw[k] != '}' {
			if raw[k] == '{' {
				next, err := fs.field(k + 1)
				if err != nil {
					return 0, err
				}
				k = next
				continue
			}
			k++
		}
	}
	if k >= fs.end || raw[k] != '}' {
		return 0, fmt.Errorf("f-string: expecting '}'")
	}
	return k + 1, nil
}

// skipString returns the offset after the string literal starting at
// k within a replacement field.
func (fs *fieldScanner) skipString(k int) (int, error) {
	raw := fs.raw
	quote := raw[k : k+1]
	if strings.HasPrefix(raw[k:fs.end], strings.Repeat(quote, 3)) {
		quote = strings.Repeat(quote, 3)
	}
	for j := k + len(quote); j < fs.end; j++ {
		if raw[j] == '\\' {
			j++
			continue
		}
		if strings.HasPrefix(raw[j:fs.end], quote) {
			return j + len(quote), nil
		}
	}
	return 0, fmt.Errorf("f-string: unterminated string")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
