package finder

import (
	"iter"
	"regexp"
	"strings"

	"github.com/Sriram-PR/urlfinder/pkg/collect"
	"github.com/Sriram-PR/urlfinder/pkg/parse"
	"github.com/Sriram-PR/urlfinder/pkg/tokenizer"
)

// Characters that end a URL in running text; they are turned into spaces before the
// final whitespace split
var textDelimiters = []string{"<", ">", "`", "[", "]", "{", "}", `"`, "'", "(", ")"}

const trailingPunctuation = ".,;:!?"

// A delimiter directly followed by another scheme means two URLs were glued together,
// like "http://domain.com/text<http://domain.com/actual>". The delimited token streams
// already yield both halves.
var gluedURLPattern = regexp.MustCompile("[<>\\[\\]{}()\"'`][a-zA-Z][a-zA-Z0-9+.-]*://")

// text runs the text front end. Bare domains only count as URLs when domainAsURL is set,
// which Find does for top-level text blobs alone.
func (f *finder) text(blob []byte, strict, domainAsURL bool) *collect.List {
	tok := tokenizer.New(blob)
	streams := []iter.Seq[string]{
		tok.LineTokens(),
		tok.TokensBetweenAngleBrackets(strict),
		tok.TokensBetweenBackticks(),
		tok.TokensBetweenBrackets(strict),
		tok.TokensBetweenCurlyBrackets(strict),
		tok.TokensBetweenDoubleQuotes(),
		tok.TokensBetweenParentheses(strict),
		tok.TokensBetweenSingleQuotes(),
		tok.TokensBetweenSpaces(),
		tok.SplitTokensAfterReplace(textDelimiters),
	}

	list := collect.New(f.cache, f.log)
	seen := make(map[string]bool)
	for _, stream := range streams {
		for token := range stream {
			if seen[token] {
				continue
			}
			seen[token] = true

			if candidate, ok := f.textCandidate(token, domainAsURL); ok {
				list.Append(candidate)
			}
		}
	}
	return list.RemovePartialURLs()
}

func (f *finder) textCandidate(token string, domainAsURL bool) (string, bool) {
	value := strings.TrimRight(parse.FixPossibleValue(token), trailingPunctuation)
	if value == "" || gluedURLPattern.MatchString(value) {
		return "", false
	}
	if strings.Contains(value, "://") {
		return value, true
	}
	if !domainAsURL {
		return "", false
	}
	return f.domainAsURL(value)
}

// domainAsURL promotes scheme-less "domain.com" or "domain.com/path" tokens. Email
// addresses and anything without a dot stay out.
func (f *finder) domainAsURL(value string) (string, bool) {
	if !strings.Contains(value, ".") || strings.Contains(value, "@") || strings.ContainsAny(value, " \t") {
		return "", false
	}
	value = strings.TrimPrefix(strings.TrimPrefix(value, ":"), "//")
	return f.opts.DefaultScheme + "://" + value, true
}

// data reads the printable ASCII runs of a binary blob as text
func (f *finder) data(blob []byte) *collect.List {
	var runs []string
	for run := range tokenizer.New(blob).ASCIIStrings(f.opts.MinASCIILength) {
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return collect.New(f.cache, f.log)
	}
	return f.text([]byte(strings.Join(runs, "\n")), f.opts.Strict, false)
}
