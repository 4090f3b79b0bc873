package parse

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

var (
	schemeSlashesPattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*):/+`)
	validate             = validator.New()
)

// BuildURL joins a scheme, netloc and an already-formed path (which carries its own
// query and fragment).
func BuildURL(scheme, netloc, path string) string {
	return scheme + "://" + netloc + path
}

// RemoveNullCharacters strips every NUL byte.
func RemoveNullCharacters(value string) string {
	return strings.ReplaceAll(value, "\x00", "")
}

// RemoveSurroundingQuotes strips one matching pair of single or double quotes.
func RemoveSurroundingQuotes(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// FixSlashes turns backslashes into slashes and repairs the slashes after the scheme,
// so "http:/\domain.com" becomes "http://domain.com"
func FixSlashes(value string) string {
	value = strings.ReplaceAll(value, `\`, "/")
	return schemeSlashesPattern.ReplaceAllString(value, "$1://")
}

// RemoveMailtoIfNotEmailAddress drops a "mailto:" prefix unless what follows is an
// email address.
func RemoveMailtoIfNotEmailAddress(value string) string {
	if len(value) < len("mailto:") || !strings.EqualFold(value[:len("mailto:")], "mailto:") {
		return value
	}
	rest := value[len("mailto:"):]
	if validate.Var(rest, "required,email") == nil {
		return value
	}
	return rest
}

// PrependMissingScheme adds "http:" to values that look like a URL without a scheme:
// protocol-relative values ("//host/path", "://host/path") and host/path values whose
// first segment contains a dot. A bare "domain.com" is left alone, as is anything that
// already has a scheme or cannot be split.
func PrependMissingScheme(value string) string {
	split, err := Split(value)
	if err != nil || split.Scheme != "" {
		return value
	}

	switch {
	case strings.HasPrefix(value, "//"):
		return "http:" + value
	case strings.HasPrefix(value, "://"):
		return "http" + value
	}

	first, _, hasSlash := strings.Cut(value, "/")
	if hasSlash && strings.Contains(first, ".") {
		return "http://" + value
	}
	return value
}

// FixPossibleValue cleans up a raw candidate string without guessing a scheme.
func FixPossibleValue(value string) string {
	value = RemoveNullCharacters(value)
	value = strings.TrimSpace(value)
	for strings.HasPrefix(value, "%20") {
		value = value[len("%20"):]
	}
	value = RemoveSurroundingQuotes(value)
	value = FixSlashes(value)
	return RemoveMailtoIfNotEmailAddress(value)
}

// FixPossibleURL is FixPossibleValue followed by PrependMissingScheme.
func FixPossibleURL(value string) string {
	return PrependMissingScheme(FixPossibleValue(value))
}

// ASCIIOnly drops every non-ASCII byte.
func ASCIIOnly(value string) string {
	if isASCII(value) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] < 0x80 {
			b.WriteByte(value[i])
		}
	}
	return b.String()
}

// DecodeBase64 decodes s leniently: characters outside the alphabet are skipped, data
// after completed padding is ignored and missing padding is tolerated. urlSafe selects
// the "-_" alphabet instead of "+/".
func DecodeBase64(s string, urlSafe bool) ([]byte, error) {
	enc := base64.RawStdEncoding
	inAlphabet := func(c byte) bool { return c == '+' || c == '/' }
	if urlSafe {
		enc = base64.RawURLEncoding
		inAlphabet = func(c byte) bool { return c == '-' || c == '_' }
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '=' {
			if len(buf)%4 >= 2 {
				break
			}
			continue
		}
		if isASCIILetter(c) || ('0' <= c && c <= '9') || inAlphabet(c) {
			buf = append(buf, c)
		}
	}
	if len(buf)%4 == 1 {
		return nil, fmt.Errorf("%w: %d data characters cannot be 1 more than a multiple of 4", utils.ErrDecodeBase64, len(buf))
	}

	out := make([]byte, enc.DecodedLen(len(buf)))
	n, err := enc.Decode(out, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDecodeBase64, err)
	}
	return out[:n], nil
}

// IsBase64ASCII reports whether value is ASCII and decodes to a non-empty ASCII payload.
func IsBase64ASCII(value string) bool {
	if value == "" || !isASCII(value) {
		return false
	}
	decoded, err := DecodeBase64(value, false)
	if err != nil || len(decoded) == 0 {
		return false
	}
	return isASCII(string(decoded))
}

// ResolveReference resolves ref against base the way a browser resolves a relative link.
// Absolute references, and references where either side does not parse, are returned
// unchanged.
func ResolveReference(base, ref string) string {
	if base == "" {
		return ref
	}
	if split, err := Split(ref); err != nil || split.Scheme != "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
