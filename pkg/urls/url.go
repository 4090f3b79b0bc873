// Package urls models a single candidate URL string: whether it is a URL at all, its
// canonical identity, the encoding permutations used to compare it with other values and
// the child URLs hidden inside it by redirect wrappers.
package urls

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/parse"
)

// pathSafe are the characters left alone when percent-encoding a path. Line breaks are
// kept so that tokens spanning lines never turn into valid URLs by being encoded.
const pathSafe = "/\n\r"

var logger atomic.Pointer[logrus.Entry]

func init() {
	logger.Store(log.Discard())
}

// SetLogger sets the entry decoders report to. A nil entry discards output.
func SetLogger(entry *logrus.Entry) {
	logger.Store(log.Component(entry, "urls"))
}

type lazy[T any] struct {
	once sync.Once
	val  T
}

func (l *lazy[T]) get(compute func() T) T {
	l.once.Do(func() { l.val = compute() })
	return l.val
}

// PathForms holds the six encodings of a URL's path, query and fragment
type PathForms struct {
	Original       string
	PercentDecoded string
	PercentEncoded string
	HTMLDecoded    string
	HTMLEncoded    string
	AllDecoded     string
}

// URL is an immutable candidate URL. Every derived attribute is computed on first use
// and cached; a URL is safe for concurrent use.
type URL struct {
	raw string

	split         lazy[parse.SplitResult]
	netlocIDNA    lazy[string]
	netlocUnicode lazy[string]
	paths         lazy[PathForms]
	validTLD      lazy[bool]
	validFormat   lazy[bool]
	isURL         lazy[bool]
	permutations  lazy[[]string]
	queryDict     lazy[map[string][]string]
	fragmentDict  lazy[map[string][]string]
	children      lazy[[]*URL]
}

// New wraps raw as a URL. Bytes that are not valid UTF-8 are dropped and trailing
// slashes, then trailing backslashes, are stripped.
func New(raw string) *URL {
	value := strings.ToValidUTF8(raw, "")
	value = strings.TrimRight(value, "/")
	value = strings.TrimRight(value, `\`)
	return &URL{raw: value}
}

// IsURL reports whether s is a URL.
func IsURL(s string) bool {
	return New(s).IsURL()
}

// Permutations returns the encoding permutations of s.
func Permutations(s string) []string {
	return New(s).Permutations()
}

func (u *URL) String() string {
	return u.raw
}

// Split returns the components of the value. A value that cannot be split yields
// empty components.
func (u *URL) Split() parse.SplitResult {
	return u.split.get(func() parse.SplitResult {
		res, err := parse.Split(u.raw)
		if err != nil {
			return parse.SplitResult{}
		}
		return res
	})
}

func (u *URL) Scheme() string {
	return u.Split().Scheme
}

func (u *URL) Hostname() string {
	return u.Split().Hostname()
}

// NetlocOriginal is the netloc lowercased and otherwise untouched
func (u *URL) NetlocOriginal() string {
	return strings.ToLower(u.Split().Netloc)
}

// NetlocIDNA is the netloc with its hostname in ASCII-compatible form, or "" when the
// hostname cannot be encoded.
func (u *URL) NetlocIDNA() string {
	return u.netlocIDNA.get(func() string {
		return netlocToASCII(u.Split())
	})
}

// NetlocUnicode is the netloc with punycode labels decoded where possible
func (u *URL) NetlocUnicode() string {
	return u.netlocUnicode.get(func() string {
		return netlocToUnicode(u.Split())
	})
}

// Netlocs returns the idna, original and unicode netloc forms in that order.
func (u *URL) Netlocs() []string {
	return []string{u.NetlocIDNA(), u.NetlocOriginal(), u.NetlocUnicode()}
}

// Paths returns every encoding of the path, query and fragment.
func (u *URL) Paths() PathForms {
	return u.paths.get(func() PathForms {
		var p PathForms
		p.Original = pathOriginal(u.Split())
		p.PercentDecoded = parse.Unquote(p.Original)
		p.HTMLDecoded = parse.HTMLUnescape(p.Original)
		p.AllDecoded = parse.HTMLUnescape(p.PercentDecoded)
		p.HTMLEncoded = parse.HTMLEscape(p.AllDecoded)
		p.PercentEncoded = parse.Quote(p.AllDecoded, pathSafe)
		return p
	})
}

func pathOriginal(split parse.SplitResult) string {
	path := split.Path
	if (path != "" || split.Query != "" || split.Fragment != "") && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if split.Query != "" {
		path += "?" + split.Query
	}
	if split.Fragment != "" {
		path += "#" + split.Fragment
	}
	return path
}

func (u *URL) PathOriginal() string       { return u.Paths().Original }
func (u *URL) PathPercentDecoded() string { return u.Paths().PercentDecoded }
func (u *URL) PathPercentEncoded() string { return u.Paths().PercentEncoded }
func (u *URL) PathHTMLDecoded() string    { return u.Paths().HTMLDecoded }
func (u *URL) PathHTMLEncoded() string    { return u.Paths().HTMLEncoded }
func (u *URL) PathAllDecoded() string     { return u.Paths().AllDecoded }

// OriginalURL rebuilds the value from its scheme, original netloc and original path.
func (u *URL) OriginalURL() string {
	return parse.BuildURL(u.Scheme(), u.NetlocOriginal(), u.PathOriginal())
}

// IDNAPercentEncoded rebuilds the value with the idna netloc and the percent-encoded path.
// This is the form the strict syntax check runs against.
func (u *URL) IDNAPercentEncoded() string {
	return parse.BuildURL(u.Scheme(), u.NetlocIDNA(), u.PathPercentEncoded())
}

// IsURL reports whether the value contains ".", ":" and "/", has a hostname that is a
// listed domain, an IPv4 address or localhost, and passes the strict syntax check.
func (u *URL) IsURL() bool {
	return u.isURL.get(func() bool {
		if !strings.Contains(u.raw, ".") || !strings.Contains(u.raw, ":") || !strings.Contains(u.raw, "/") {
			return false
		}
		if !u.IsNetlocValidTLD() && !u.IsNetlocIPv4() && !u.IsNetlocLocalhost() {
			return false
		}
		return u.IsValidFormat()
	})
}

// IsURLASCII reports whether the value with every non-ASCII byte dropped is a URL.
func (u *URL) IsURLASCII() bool {
	return IsURL(parse.ASCIIOnly(u.raw))
}

// Permutations returns every scheme://netloc+path combination of the three netloc forms
// and six path forms, deduplicated and sorted.
func (u *URL) Permutations() []string {
	return u.permutations.get(func() []string {
		scheme := u.Scheme()
		paths := u.Paths()
		pathList := []string{
			paths.AllDecoded,
			paths.Original,
			paths.HTMLDecoded,
			paths.HTMLEncoded,
			paths.PercentDecoded,
			paths.PercentEncoded,
		}

		perms := make([]string, 0, 18)
		for _, netloc := range u.Netlocs() {
			for _, path := range pathList {
				perms = append(perms, parse.BuildURL(scheme, netloc, path))
			}
		}
		slices.Sort(perms)
		return slices.Compact(perms)
	})
}

// Key is the canonical identity used to deduplicate values: the scheme, the idna netloc
// and the fully decoded path. Values without a scheme or encodable netloc fall back to
// their decoded text. Equal values do not always share a key: "/x%2520" and "/x%20"
// have the permutation "/x%20" in common but decode once to different paths.
func (u *URL) Key() string {
	scheme, netloc := u.Scheme(), u.NetlocIDNA()
	if scheme == "" || netloc == "" {
		return parse.HTMLUnescape(parse.Unquote(u.raw))
	}
	return parse.BuildURL(scheme, netloc, u.PathAllDecoded())
}

// Equal reports whether both values are the same text or share any permutation.
func (u *URL) Equal(other *URL) bool {
	if other == nil {
		return false
	}
	if u.raw == other.raw {
		return true
	}
	mine := u.Permutations()
	for _, p := range other.Permutations() {
		if _, found := slices.BinarySearch(mine, p); found {
			return true
		}
	}
	return false
}

// QueryDict parses the query string of the value.
func (u *URL) QueryDict() map[string][]string {
	return u.queryDict.get(func() map[string][]string {
		return parse.ParseQuery(u.Split().Query)
	})
}

// FragmentDict parses the fragment of the value as if it were a query string.
func (u *URL) FragmentDict() map[string][]string {
	return u.fragmentDict.get(func() map[string][]string {
		return parse.ParseQuery(u.Split().Fragment)
	})
}

// QueryValues returns every query value found in any permutation of the value.
func (u *URL) QueryValues() []string {
	return u.harvest((*URL).QueryDict)
}

// FragmentValues returns every fragment value found in any permutation of the value.
func (u *URL) FragmentValues() []string {
	return u.harvest((*URL).FragmentDict)
}

func (u *URL) harvest(dict func(*URL) map[string][]string) []string {
	var values []string
	for _, p := range u.Permutations() {
		for _, vs := range dict(New(p)) {
			values = append(values, vs...)
		}
	}
	slices.Sort(values)
	return slices.Compact(values)
}

// ChildURLs returns the URLs every matching redirect decoder recovers from the value,
// deduplicated by Key and sorted.
func (u *URL) ChildURLs() []*URL {
	return u.children.get(func() []*URL {
		return decodeChildren(u)
	})
}
