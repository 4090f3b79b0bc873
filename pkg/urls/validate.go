package urls

import (
	"regexp"
	"strconv"
)

const (
	ipMiddleOctet = `(?:\.(?:1?\d{1,2}|2[0-4]\d|25[0-5]))`
	ipLastOctet   = `(?:\.(?:0|[1-9]\d?|1\d\d|2[0-4]\d|25[0-5]))`
	maxPort       = 65535
)

var (
	netlocPattern = regexp.MustCompile(`^[a-zA-Z0-9\-\.\:\@]{1,255}$`)

	strictURLPattern = regexp.MustCompile(`(?i)^(?:(?:https?|ftp)://)` +
		// userinfo
		`(?:[-a-z0-9._~%!$&'()*+,;=:]+(?::[-a-z0-9._~%!$&'()*+,;=:]*)?@)?` +
		`(?:` +
		// private ranges
		`(?:(?:10|127)` + ipMiddleOctet + `{2}` + ipLastOctet + `)|` +
		`(?:(?:169\.254|192\.168)` + ipMiddleOctet + ipLastOctet + `)|` +
		`(?:172\.(?:1[6-9]|2\d|3[0-1])` + ipMiddleOctet + ipLastOctet + `)|` +
		`localhost|` +
		// public addresses
		`(?:(?:[1-9]\d?|1\d\d|2[01]\d|22[0-3])` + ipMiddleOctet + `{2}` + ipLastOctet + `)|` +
		// host names
		`(?:(?:(?:xn--)|[a-z0-9]-?)*[a-z0-9]+)(?:\.(?:(?:xn--)|[a-z0-9]-?)*[a-z0-9]+)*` +
		`(?:\.(?:xn--[a-z0-9]{2,}|[a-z]{2,}))` +
		`)` +
		`(?::(\d{2,5}))?` +
		`(?:/[-a-z0-9._~%!$&'()*+,;=:@/]*)?` +
		`(?:\?\S*)?` +
		`(?:#\S*)?$`)
)

// IsValidFormat reports whether the idna netloc only uses host characters and the
// scheme, idna netloc and percent-encoded path together pass the strict syntax check.
// Only http, https and ftp are accepted and ports must fit in 16 bits.
func (u *URL) IsValidFormat() bool {
	return u.validFormat.get(func() bool {
		if !netlocPattern.MatchString(u.NetlocIDNA()) {
			return false
		}
		m := strictURLPattern.FindStringSubmatch(u.IDNAPercentEncoded())
		if m == nil {
			return false
		}
		if m[1] != "" {
			port, err := strconv.Atoi(m[1])
			if err != nil || port > maxPort {
				return false
			}
		}
		return true
	})
}
