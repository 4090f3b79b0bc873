package parse

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// SplitResult holds the five components of a URL split the lenient, non-validating way:
// scheme://netloc/path?query#fragment
type SplitResult struct {
	Scheme   string
	Netloc   string
	Path     string
	Query    string
	Fragment string
}

const schemeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+-."

var ipvFuturePattern = regexp.MustCompile(`^v[a-fA-F0-9]+\..+$`)

// Split breaks raw into its components without validating them.
// Leading control characters and spaces are stripped and tabs/line breaks are removed
// everywhere before splitting. Only structurally impossible netlocs (unbalanced or
// malformed IPv6 brackets, NFKC forms that introduce URL delimiters) return an error.
func Split(raw string) (SplitResult, error) {
	var res SplitResult

	s := strings.TrimLeftFunc(raw, func(r rune) bool { return r <= ' ' })
	s = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(s)

	if i := strings.IndexByte(s, ':'); i > 0 && isASCIILetter(s[0]) && onlySchemeChars(s[:i]) {
		res.Scheme = strings.ToLower(s[:i])
		s = s[i+1:]
	}

	if strings.HasPrefix(s, "//") {
		rest := s[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		res.Netloc, s = rest[:end], rest[end:]

		hasOpen := strings.Contains(res.Netloc, "[")
		hasClose := strings.Contains(res.Netloc, "]")
		if hasOpen != hasClose {
			return SplitResult{}, fmt.Errorf("%w: invalid IPv6 URL %q", utils.ErrParsing, raw)
		}
		if hasOpen {
			if err := checkBracketedNetloc(res.Netloc); err != nil {
				return SplitResult{}, fmt.Errorf("%w: %v in URL %q", utils.ErrParsing, err, raw)
			}
		}
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s, res.Fragment = s[:i], s[i+1:]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s, res.Query = s[:i], s[i+1:]
	}
	res.Path = s

	if err := checkNetlocNormalization(res.Netloc); err != nil {
		return SplitResult{}, fmt.Errorf("%w: %v in URL %q", utils.ErrParsing, err, raw)
	}

	return res, nil
}

// Hostname returns the lowercased host part of the netloc, without userinfo, port or
// IPv6 brackets. It is empty when the netloc has no host.
func (r SplitResult) Hostname() string {
	host := r.Netloc
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.IndexByte(host, '['); i >= 0 {
		host = host[i+1:]
		if j := strings.IndexByte(host, ']'); j >= 0 {
			host = host[:j]
		}
	} else if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return ""
	}
	if i := strings.IndexByte(host, '%'); i >= 0 {
		return strings.ToLower(host[:i]) + host[i:]
	}
	return strings.ToLower(host)
}

// Port returns the text after the host's port separator, or "" when there is none.
func (r SplitResult) Port() string {
	host := r.Netloc
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.IndexByte(host, ']'); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[i+1:]
	}
	return ""
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func onlySchemeChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(schemeChars, s[i]) < 0 {
			return false
		}
	}
	return true
}

func checkBracketedNetloc(netloc string) error {
	hostPort := netloc
	if i := strings.LastIndexByte(hostPort, '@'); i >= 0 {
		hostPort = hostPort[i+1:]
	}

	var host string
	if before, bracketed, ok := strings.Cut(hostPort, "["); ok {
		if before != "" {
			return fmt.Errorf("invalid IPv6 URL")
		}
		var port string
		host, port, _ = strings.Cut(bracketed, "]")
		if port != "" && !strings.HasPrefix(port, ":") {
			return fmt.Errorf("invalid IPv6 URL")
		}
	} else {
		host, _, _ = strings.Cut(hostPort, ":")
	}

	if strings.HasPrefix(host, "v") {
		if !ipvFuturePattern.MatchString(host) {
			return fmt.Errorf("IPvFuture address is invalid")
		}
		return nil
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !addr.Is6() {
		return fmt.Errorf("%q does not appear to be an IPv6 address", host)
	}
	return nil
}

func checkNetlocNormalization(netloc string) error {
	if netloc == "" || isASCII(netloc) {
		return nil
	}
	n := strings.NewReplacer("@", "", ":", "", "#", "", "?", "").Replace(netloc)
	normalized := norm.NFKC.String(n)
	if normalized == n {
		return nil
	}
	if strings.ContainsAny(normalized, "/?#@:") {
		return fmt.Errorf("netloc %q contains invalid characters under NFKC normalization", netloc)
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// ParseQuery parses a query string into its values. Fields without "=" or with an
// empty value are skipped; "+" is read as a space before percent-decoding.
func ParseQuery(query string) map[string][]string {
	values := make(map[string][]string)
	for _, field := range strings.Split(query, "&") {
		if field == "" {
			continue
		}
		name, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			continue
		}
		name = Unquote(strings.ReplaceAll(name, "+", " "))
		value = Unquote(strings.ReplaceAll(value, "+", " "))
		values[name] = append(values[name], value)
	}
	return values
}
