// Package finder pulls candidate URLs out of raw blobs. It picks a front end from the
// detected content kind, runs the candidates through the collection layer and returns
// every URL reachable through redirect wrappers.
package finder

import (
	"bytes"
	"net/mail"
	"regexp"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/urlfinder/pkg/collect"
	"github.com/Sriram-PR/urlfinder/pkg/config"
	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// Kind is the front end a blob is routed to
type Kind int

const (
	KindData Kind = iota
	KindText
	KindHTML
	KindMail
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHTML:
		return "html"
	case KindMail:
		return "mail"
	default:
		return "data"
	}
}

// Options controls a single Find call
type Options struct {
	BaseURL          string           // Joined with relative links found in HTML
	Strict           bool             // Bracket tokens must be explicitly opened and closed
	DomainAsURL      bool             // Bare "domain.com" tokens become DefaultScheme URLs
	DefaultScheme    string           // Scheme given to bare domains
	MinASCIILength   int              // Shortest printable run read from binary blobs
	MaxRedirectDepth int              // Wrapper layers unwrapped below each found URL
	ExcludePatterns  []*regexp.Regexp // Results matching any pattern are dropped
	Log              *logrus.Entry
}

// DefaultOptions returns the options used when a field is left at its zero value
func DefaultOptions() Options {
	return Options{
		Strict:           true,
		DefaultScheme:    config.DefaultScheme,
		MinASCIILength:   config.DefaultMinASCIILength,
		MaxRedirectDepth: collect.DefaultMaxRedirectDepth,
	}
}

// OptionsFromConfig builds options from a validated configuration
func OptionsFromConfig(cfg *config.Config, entry *logrus.Entry) (Options, error) {
	patterns, err := utils.CompileExcludePatterns(cfg.ExcludePatterns)
	if err != nil {
		return Options{}, err
	}
	return Options{
		BaseURL:          cfg.BaseURL,
		Strict:           cfg.IsStrict(),
		DomainAsURL:      cfg.DomainAsURL,
		DefaultScheme:    cfg.DefaultScheme,
		MinASCIILength:   cfg.MinASCIILength,
		MaxRedirectDepth: cfg.MaxRedirectDepth,
		ExcludePatterns:  patterns,
		Log:              entry,
	}, nil
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.DefaultScheme == "" {
		o.DefaultScheme = defaults.DefaultScheme
	}
	if o.MinASCIILength <= 0 {
		o.MinASCIILength = defaults.MinASCIILength
	}
	if o.MaxRedirectDepth <= 0 {
		o.MaxRedirectDepth = defaults.MaxRedirectDepth
	}
	return o
}

type finder struct {
	opts  Options
	cache *collect.Cache
	log   *logrus.Entry
}

func newFinder(opts Options) *finder {
	opts = opts.withDefaults()
	return &finder{
		opts:  opts,
		cache: collect.NewCache(),
		log:   log.Component(opts.Log, "finder"),
	}
}

// Find returns the sorted set of URLs in blob, including every URL recovered from
// redirect wrappers, in their original encoding.
func Find(blob []byte, opts Options) []string {
	f := newFinder(opts)
	opts = f.opts

	kind, blob := detectKind(blob, f.log)

	list := collect.New(f.cache, f.log)
	switch kind {
	case KindMail:
		f.log.Debug("Skipping mail message")
	case KindHTML:
		list.Extend(f.html(unescapeASCII(blob), opts.BaseURL, 0))
	case KindText:
		if mightBeHTML(blob) {
			list.Extend(f.html(blob, opts.BaseURL, 0))
		}
		list.Extend(f.text(blob, opts.Strict, opts.DomainAsURL))
	default:
		list.Extend(f.data(blob))
	}

	var found []string
	for _, v := range list.Flatten(opts.MaxRedirectDepth) {
		if utils.MatchesAny(opts.ExcludePatterns, v) {
			continue
		}
		found = append(found, v)
	}

	f.log.WithFields(logrus.Fields{
		"kind":       kind,
		"candidates": list.Len(),
		"urls":       len(found),
		"cached":     f.cache.Size(),
	}).Debug("Extraction finished")
	return found
}

// DetectKind reports which front end Find routes blob to.
func DetectKind(blob []byte) Kind {
	kind, _ := detectKind(blob, log.Discard())
	return kind
}

func detectKind(blob []byte, entry *logrus.Entry) (Kind, []byte) {
	mt := mimetype.Detect(blob)
	if isUTF16(blob, mt) {
		blob = removeUTF16Chars(blob)
		mt = mimetype.Detect(blob)
	}

	kind := KindData
	switch {
	case mt.Is("message/rfc822"):
		kind = KindMail
	case mt.Is("text/html"):
		kind = KindHTML
	case isText(mt) && hasMailHeaders(blob):
		kind = KindMail
	case isText(mt):
		kind = KindText
	}
	entry.WithFields(logrus.Fields{"mime": mt.String(), "kind": kind}).Debug("Detected content kind")
	return kind, blob
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Headers that only show up at the top of a mail message
var mailHeaders = []string{"From", "Message-Id", "Received", "Return-Path"}

// hasMailHeaders reports whether blob opens with a parseable RFC 5322 header block
// carrying at least one of mailHeaders
func hasMailHeaders(blob []byte) bool {
	msg, err := mail.ReadMessage(bytes.NewReader(blob))
	if err != nil {
		return false
	}
	for _, name := range mailHeaders {
		if msg.Header.Get(name) != "" {
			return true
		}
	}
	return false
}

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func isUTF16(blob []byte, mt *mimetype.MIME) bool {
	return bytes.Contains([]byte(mt.String()), []byte("utf-16")) ||
		bytes.HasPrefix(blob, bomUTF16LE) || bytes.HasPrefix(blob, bomUTF16BE)
}

// removeUTF16Chars drops a leading byte order mark and every NUL byte, which turns
// UTF-16 encoded ASCII into plain ASCII
func removeUTF16Chars(blob []byte) []byte {
	blob = bytes.TrimPrefix(blob, bomUTF16LE)
	blob = bytes.TrimPrefix(blob, bomUTF16BE)
	return bytes.ReplaceAll(blob, []byte{0}, nil)
}

var escapedASCIIPattern = regexp.MustCompile(`\\(?:u00|x)([0-9a-fA-F]{2})`)

// unescapeASCII turns \u00XX and \xXX escapes of printable, non-space ASCII characters
// back into the characters themselves. Other escapes are left alone.
func unescapeASCII(blob []byte) []byte {
	return escapedASCIIPattern.ReplaceAllFunc(blob, func(m []byte) []byte {
		n, err := strconv.ParseUint(string(m[len(m)-2:]), 16, 8)
		if err != nil || n < 0x21 || n > 0x7E {
			return m
		}
		return []byte{byte(n)}
	})
}

var htmlMarkers = [][]byte{[]byte("<html"), []byte("<body"), []byte("<a "), []byte("href="), []byte("src=")}

func mightBeHTML(blob []byte) bool {
	lower := bytes.ToLower(blob)
	for _, marker := range htmlMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
