package urls

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Sriram-PR/urlfinder/pkg/parse"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// Matches /v3/__<url>__;<base64url replacement characters>!!<org>!<id>$
var proofpointV3Pattern = regexp.MustCompile(`__(.*)__;(.*)!!`)

// runLengthAlphabet maps the character after "**" to a byte count, starting at 2
const runLengthAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func isProofpointV3(u *URL) bool {
	if !strings.Contains(u.Hostname(), "urldefense") {
		return false
	}
	lower := strings.ToLower(u.raw)
	return strings.Contains(lower, "urldefense.proofpoint.com/v3") || strings.Contains(lower, "urldefense.com/v3")
}

func decodeProofpointV3(u *URL) ([]string, error) {
	m := proofpointV3Pattern.FindStringSubmatch(u.raw)
	if m == nil {
		return nil, fmt.Errorf("%w: no __url__;tokens!! section", utils.ErrDecodePattern)
	}
	inner, tokens := m[1], m[2]
	if tokens == "" {
		return []string{inner}, nil
	}

	decoded, err := parse.DecodeBase64(tokens, true)
	if err != nil {
		return nil, utils.WrapErrorf(err, "proofpoint v3 replacement tokens")
	}
	if !utf8.Valid(decoded) {
		return nil, fmt.Errorf("%w: replacement tokens are not UTF-8", utils.ErrDecodeBase64)
	}

	value, err := substituteV3(inner, []rune(string(decoded)))
	if err != nil {
		return nil, err
	}
	return []string{value}, nil
}

// substituteV3 puts the replacement characters back into the wrapped URL. A lone "*"
// takes one character. "**X" takes characters until the byte count X encodes is reached;
// when the next character would overflow the count, the leftover bytes carry over to the
// next "**X" run.
func substituteV3(inner string, replacements []rune) (string, error) {
	runes := []rune(inner)
	var out strings.Builder
	out.Grow(len(inner))

	next := 0
	carry := 0
	take := func() (rune, error) {
		if next >= len(replacements) {
			return 0, fmt.Errorf("%w: %d replacement characters consumed", utils.ErrDecodeExhausted, next)
		}
		r := replacements[next]
		next++
		return r, nil
	}

	for i := 0; i < len(runes); i++ {
		if runes[i] != '*' {
			out.WriteRune(runes[i])
			continue
		}

		if i+2 < len(runes) && runes[i+1] == '*' {
			if idx := strings.IndexRune(runLengthAlphabet, runes[i+2]); idx >= 0 {
				numBytes := idx + 2 + carry
				carry = 0
				for n := 0; n < numBytes; {
					r, err := take()
					if err != nil {
						return "", err
					}
					out.WriteRune(r)
					n += utf8.RuneLen(r)

					if next < len(replacements) && utf8.RuneLen(replacements[next]) > numBytes-n {
						carry = numBytes - n
						n += carry
					}
				}
				i += 2
				continue
			}
		}

		prevStar := i > 0 && runes[i-1] == '*'
		nextStar := i+1 < len(runes) && runes[i+1] == '*'
		if prevStar || nextStar {
			out.WriteRune('*')
			continue
		}
		r, err := take()
		if err != nil {
			return "", err
		}
		out.WriteRune(r)
	}

	return out.String(), nil
}
