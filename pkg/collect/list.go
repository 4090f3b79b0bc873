// Package collect gathers candidate strings into validated URL values and expands them
// into their full redirect chains.
package collect

import (
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/urlfinder/pkg/config"
	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/parse"
	"github.com/Sriram-PR/urlfinder/pkg/urls"
)

// DefaultMaxRedirectDepth bounds how many wrapper layers Flatten unwraps below a root
const DefaultMaxRedirectDepth = config.DefaultMaxRedirectDepth

// List is an insertion-ordered set of URL values. Values that are not URLs never make it in.
type List struct {
	cache *Cache
	log   *logrus.Entry

	raws map[string]bool
	urls []*urls.URL
}

// NewList creates an empty list with a private cache and no logging
func NewList() *List {
	return New(nil, nil)
}

// New creates an empty list that resolves values through cache and logs traversal
// limits to entry. Either may be nil.
func New(cache *Cache, entry *logrus.Entry) *List {
	if cache == nil {
		cache = NewCache()
	}
	return &List{
		cache: cache,
		log:   log.Component(entry, "collect"),
		raws:  make(map[string]bool),
	}
}

// Append adds value when it is a URL, or its ASCII-only form when only that is a URL.
// It reports whether anything new was added.
func (l *List) Append(value string) bool {
	u := l.cache.Get(value)
	if !u.IsURL() {
		if !u.IsURLASCII() {
			return false
		}
		u = l.cache.Get(parse.ASCIIOnly(u.String()))
	}
	return l.add(u)
}

// AppendURL adds an already constructed value under the same rules as Append.
func (l *List) AppendURL(u *urls.URL) bool {
	if u == nil {
		return false
	}
	return l.Append(u.String())
}

// Extend appends every value of other
func (l *List) Extend(other *List) {
	for _, u := range other.urls {
		l.add(u)
	}
}

func (l *List) add(u *urls.URL) bool {
	if l.raws[u.String()] {
		return false
	}
	l.raws[u.String()] = true
	l.urls = append(l.urls, u)
	return true
}

// Len returns the number of values in the list
func (l *List) Len() int {
	return len(l.urls)
}

// URLs returns the values in insertion order
func (l *List) URLs() []*urls.URL {
	return slices.Clone(l.urls)
}

// Values returns the raw values sorted
func (l *List) Values() []string {
	values := make([]string, 0, len(l.urls))
	for _, u := range l.urls {
		values = append(values, u.String())
	}
	slices.Sort(values)
	return values
}

type frame struct {
	url   *urls.URL
	depth int
}

// Flatten returns the raw values of every list entry and of every child URL reachable
// from them, sorted. Each Key is expanded once, so cycles terminate, but every raw value
// met along the way is emitted. Children are followed at most maxDepth levels down (the
// default when maxDepth <= 0); a value cut off by the limit may still be expanded when it
// is met again higher up.
func (l *List) Flatten(maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRedirectDepth
	}

	stack := make([]frame, 0, len(l.urls))
	for i := len(l.urls) - 1; i >= 0; i-- {
		stack = append(stack, frame{url: l.urls[i]})
	}

	emitted := make(map[string]bool)
	expanded := make(map[string]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		emitted[f.url.String()] = true
		key := f.url.Key()
		if expanded[key] {
			continue
		}

		children := f.url.ChildURLs()
		if len(children) == 0 {
			expanded[key] = true
			continue
		}
		if f.depth >= maxDepth {
			l.log.WithField("depth", f.depth).Warnf("Redirect depth limit reached at %s, %d children not followed", f.url, len(children))
			continue
		}
		expanded[key] = true
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{url: children[i], depth: f.depth + 1})
		}
	}

	values := make([]string, 0, len(emitted))
	for v := range emitted {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

// RemovePartialURLs returns a new list without the values that are a prefix of another,
// different value, unless they have no path.
func (l *List) RemovePartialURLs() *List {
	out := New(l.cache, l.log)
	for _, a := range l.urls {
		if isPartial(a, l.urls) {
			continue
		}
		out.add(a)
	}
	return out
}

func isPartial(a *urls.URL, all []*urls.URL) bool {
	if a.Split().Path == "" {
		return false
	}
	for _, b := range all {
		if b.String() != a.String() && strings.HasPrefix(b.String(), a.String()) && !b.Equal(a) {
			return true
		}
	}
	return false
}

// RemovePartialURLs drops every value that is a prefix of another, different value in
// values, unless it has no path. Values that are not URLs are dropped as well.
func RemovePartialURLs(values []string) []string {
	l := NewList()
	for _, v := range values {
		l.Append(v)
	}
	return l.RemovePartialURLs().Values()
}

// ValidURLs returns the sorted, deduplicated values that are URLs, with the ASCII-only
// form standing in for values that are only URLs once non-ASCII bytes are dropped.
func ValidURLs(values []string) []string {
	l := NewList()
	for _, v := range values {
		l.Append(v)
	}
	return l.Values()
}
