package urls

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"

	"github.com/Sriram-PR/urlfinder/pkg/parse"
)

const maxLabelLength = 63

var (
	errEmptyLabel      = errors.New("empty label")
	errLabelTooLong    = errors.New("label too long")
	errProhibitedRune  = errors.New("prohibited character")
	errACEPrefixedName = errors.New("label already carries the ACE prefix")

	labelDots = strings.NewReplacer("。", ".", "．", ".", "｡", ".")
)

// IsNetlocIPv4 reports whether the hostname is an IPv4 address
func (u *URL) IsNetlocIPv4() bool {
	host := u.Hostname()
	if host == "" {
		return false
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is4()
}

// IsNetlocLocalhost reports whether the hostname is localhost or localhost.localdomain
func (u *URL) IsNetlocLocalhost() bool {
	host := u.Hostname()
	return host == "localhost" || host == "localhost.localdomain"
}

// IsNetlocValidTLD reports whether the hostname is a name under a public suffix,
// ICANN or privately listed.
func (u *URL) IsNetlocValidTLD() bool {
	return u.validTLD.get(func() bool {
		host := u.Hostname()
		if host == "" {
			return false
		}
		ascii, err := hostToASCII(host)
		if err != nil {
			return false
		}
		ascii = strings.TrimSuffix(ascii, ".")
		if ascii == "" {
			return false
		}
		if _, err := netip.ParseAddr(ascii); err == nil {
			return false
		}
		suffix, icann := publicsuffix.PublicSuffix(ascii)
		if !icann && !strings.Contains(suffix, ".") {
			return false
		}
		return ascii != suffix
	})
}

func netlocToASCII(split parse.SplitResult) string {
	netloc := split.Netloc
	if isASCII(netloc) {
		return strings.ToLower(netloc)
	}
	host := split.Hostname()
	if host == "" {
		return ""
	}
	encoded, err := hostToASCII(host)
	if err != nil {
		logger.Load().WithField("host", host).Debugf("Hostname has no ASCII form: %v", err)
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(netloc), host, encoded)
}

// hostToASCII encodes host with UTS #46 lookup rules, falling back to the older
// nameprep-style transform for names those rules reject.
func hostToASCII(host string) (string, error) {
	if isASCII(host) {
		return strings.ToLower(host), nil
	}
	if encoded, err := idna.Lookup.ToASCII(host); err == nil && encoded != "" {
		return strings.ToLower(encoded), nil
	}
	encoded, err := legacyToASCII(host)
	if err != nil {
		return "", err
	}
	return strings.ToLower(encoded), nil
}

func legacyToASCII(host string) (string, error) {
	labels := strings.Split(labelDots.Replace(host), ".")
	for i, label := range labels {
		if label == "" {
			if i == len(labels)-1 && i > 0 {
				continue
			}
			return "", errEmptyLabel
		}
		encoded, err := legacyLabelToASCII(label)
		if err != nil {
			return "", fmt.Errorf("label %q: %w", label, err)
		}
		labels[i] = encoded
	}
	return strings.Join(labels, "."), nil
}

func legacyLabelToASCII(label string) (string, error) {
	if !isASCII(label) {
		label = norm.NFKC.String(strings.ToLower(label))
		for _, r := range label {
			if isProhibited(r) {
				return "", fmt.Errorf("%w %U", errProhibitedRune, r)
			}
		}
	}
	if isASCII(label) {
		if len(label) > maxLabelLength {
			return "", errLabelTooLong
		}
		return label, nil
	}
	if strings.HasPrefix(label, "xn--") {
		return "", errACEPrefixedName
	}
	encoded, err := idna.Punycode.ToASCII(label)
	if err != nil {
		return "", err
	}
	if len(encoded) > maxLabelLength {
		return "", errLabelTooLong
	}
	return encoded, nil
}

func isProhibited(r rune) bool {
	switch {
	case r >= 0x80 && unicode.IsControl(r):
		return true
	case r >= 0x80 && unicode.Is(unicode.Zs, r):
		return true
	case unicode.Is(unicode.Co, r), unicode.Is(unicode.Cs, r):
		return true
	case r == unicode.ReplacementChar, r == 0xFFFE, r == 0xFFFF:
		return true
	}
	return false
}

func netlocToUnicode(split parse.SplitResult) string {
	netloc := split.Netloc
	if !isASCII(netloc) {
		return strings.ToLower(netloc)
	}
	if decoded, err := idna.Lookup.ToUnicode(netloc); err == nil {
		return strings.ToLower(decoded)
	}

	// Netlocs with userinfo or a port fail lookup validation, so decode label by label
	labels := strings.Split(netloc, ".")
	for i, label := range labels {
		if len(label) < 4 || !strings.EqualFold(label[:4], "xn--") {
			continue
		}
		if decoded, err := idna.Punycode.ToUnicode(strings.ToLower(label)); err == nil {
			labels[i] = decoded
		}
	}
	return strings.ToLower(strings.Join(labels, "."))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
