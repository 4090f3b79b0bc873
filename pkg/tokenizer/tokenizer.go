// Package tokenizer splits arbitrary byte blobs into candidate substrings bounded by
// delimiter pairs, whitespace or line endings.
//
// Every token method returns an iter.Seq that rescans the blob each time it is ranged
// over, so sequences are lazy and can be consumed more than once.
package tokenizer

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Tokenizer holds a blob and its lossy UTF-8 decoding.
type Tokenizer struct {
	blob []byte
	text string
}

// New creates a Tokenizer. Bytes that are not valid UTF-8 are dropped from the text view;
// ASCIIStrings still scans the original bytes.
func New(blob []byte) *Tokenizer {
	return &Tokenizer{
		blob: blob,
		text: strings.ToValidUTF8(string(blob), ""),
	}
}

// NewString creates a Tokenizer over a string.
func NewString(s string) *Tokenizer {
	return New([]byte(s))
}

// Text returns the decoded text the token methods operate on.
func (t *Tokenizer) Text() string {
	return t.text
}

// TokensBetween yields the text between open and close.
//
// The first character of open is the delimiter; any remaining characters are a prefix
// the token must start with and which is kept in the token, so ("(http", ")") over
// "(https://x.com)" yields "https://x.com".
//
// In strict mode every occurrence of open is paired with the first close that follows
// it. In loose mode the text is cut at every delimiter and each piece yields its text up
// to each close it contains. Empty spans are yielded in both modes.
func (t *Tokenizer) TokensBetween(open, close string, strict bool) iter.Seq[string] {
	if strict {
		return t.strictTokensBetween(open, close)
	}
	return t.looseTokensBetween(open, close)
}

func (t *Tokenizer) strictTokensBetween(open, close string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if open == "" || close == "" {
			return
		}
		_, delimLen := utf8.DecodeRuneInString(open)
		text := t.text

		pos := 0
		for {
			i := strings.Index(text[pos:], open)
			if i < 0 {
				return
			}
			openAt := pos + i
			searchFrom := openAt + len(open)
			j := strings.Index(text[searchFrom:], close)
			if j < 0 {
				// No close after this open means none after any later open either
				return
			}
			if !yield(text[openAt+delimLen : searchFrom+j]) {
				return
			}
			pos = openAt + delimLen
		}
	}
}

func (t *Tokenizer) looseTokensBetween(open, close string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if open == "" || close == "" {
			return
		}
		_, delimLen := utf8.DecodeRuneInString(open)
		delim, prefix := open[:delimLen], open[delimLen:]

		chunks := strings.Split(t.text, delim)
		for _, chunk := range chunks[1:] {
			if !strings.HasPrefix(chunk, prefix) {
				continue
			}
			pos := len(prefix)
			for {
				j := strings.Index(chunk[pos:], close)
				if j < 0 {
					break
				}
				if !yield(chunk[:pos+j]) {
					return
				}
				pos += j + len(close)
			}
		}
	}
}

// tokensBetweenSame yields every span between consecutive occurrences of delim.
func (t *Tokenizer) tokensBetweenSame(delim string) iter.Seq[string] {
	return func(yield func(string) bool) {
		parts := strings.Split(t.text, delim)
		if len(parts) < 3 {
			return
		}
		for _, part := range parts[1 : len(parts)-1] {
			if !yield(part) {
				return
			}
		}
	}
}

func nonEmpty(seq iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for token := range seq {
			if token == "" {
				continue
			}
			if !yield(token) {
				return
			}
		}
	}
}

func (t *Tokenizer) TokensBetweenAngleBrackets(strict bool) iter.Seq[string] {
	return nonEmpty(t.TokensBetween("<", ">", strict))
}

func (t *Tokenizer) TokensBetweenBrackets(strict bool) iter.Seq[string] {
	return nonEmpty(t.TokensBetween("[", "]", strict))
}

func (t *Tokenizer) TokensBetweenCurlyBrackets(strict bool) iter.Seq[string] {
	return nonEmpty(t.TokensBetween("{", "}", strict))
}

func (t *Tokenizer) TokensBetweenParentheses(strict bool) iter.Seq[string] {
	return nonEmpty(t.TokensBetween("(", ")", strict))
}

func (t *Tokenizer) TokensBetweenBackticks() iter.Seq[string] {
	return nonEmpty(t.tokensBetweenSame("`"))
}

func (t *Tokenizer) TokensBetweenDoubleQuotes() iter.Seq[string] {
	return nonEmpty(t.tokensBetweenSame(`"`))
}

func (t *Tokenizer) TokensBetweenSingleQuotes() iter.Seq[string] {
	return nonEmpty(t.tokensBetweenSame("'"))
}

// TokensBetweenSpaces yields words that have a space on both sides.
func (t *Tokenizer) TokensBetweenSpaces() iter.Seq[string] {
	return nonEmpty(between(t.text, " "))
}

// TokensBetweenSpacesAfterReplace is TokensBetweenSpaces after every string in chars has
// been turned into a space.
func (t *Tokenizer) TokensBetweenSpacesAfterReplace(chars []string) iter.Seq[string] {
	return nonEmpty(between(replaceWithSpace(t.text, chars), " "))
}

// SplitTokens yields the text split on any whitespace.
func (t *Tokenizer) SplitTokens() iter.Seq[string] {
	return fields(t.text)
}

// SplitTokensAfterReplace is SplitTokens after every string in chars has been turned
// into a space.
func (t *Tokenizer) SplitTokensAfterReplace(chars []string) iter.Seq[string] {
	return fields(replaceWithSpace(t.text, chars))
}

// LineTokens yields the non-empty lines of the text. "\n", "\r\n" and "\r" all end a line.
func (t *Tokenizer) LineTokens() iter.Seq[string] {
	return func(yield func(string) bool) {
		text := t.text
		for len(text) > 0 {
			end := strings.IndexAny(text, "\r\n")
			var line string
			if end < 0 {
				line, text = text, ""
			} else {
				line = text[:end]
				if text[end] == '\r' && end+1 < len(text) && text[end+1] == '\n' {
					end++
				}
				text = text[end+1:]
			}
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// ASCIIStrings yields maximal runs of printable ASCII bytes (0x20 to 0x7e) in the raw
// blob that are at least minLength bytes long.
func (t *Tokenizer) ASCIIStrings(minLength int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if minLength < 1 {
			minLength = 1
		}
		start := -1
		for i := 0; i <= len(t.blob); i++ {
			printable := i < len(t.blob) && t.blob[i] >= 0x20 && t.blob[i] <= 0x7e
			if printable {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 && i-start >= minLength {
				if !yield(string(t.blob[start:i])) {
					return
				}
			}
			start = -1
		}
	}
}

func between(text, sep string) iter.Seq[string] {
	return func(yield func(string) bool) {
		parts := strings.Split(text, sep)
		if len(parts) < 3 {
			return
		}
		for _, part := range parts[1 : len(parts)-1] {
			if !yield(part) {
				return
			}
		}
	}
}

func fields(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, field := range strings.Fields(text) {
			if !yield(field) {
				return
			}
		}
	}
}

func replaceWithSpace(text string, chars []string) string {
	for _, c := range chars {
		if c == "" {
			continue
		}
		text = strings.ReplaceAll(text, c, " ")
	}
	return text
}
