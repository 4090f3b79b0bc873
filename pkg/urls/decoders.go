package urls

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Sriram-PR/urlfinder/pkg/parse"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// redirectDecoder recovers child URLs from one kind of wrapped URL
type redirectDecoder struct {
	name    string
	matches func(u *URL) bool // cheap check run before decode
	decode  func(u *URL) ([]string, error)
}

// Gateways that only carry the destination in a plain query value (safelinks,
// barracuda, google redirects, fireeye) are covered by the query decoder.
var decoders = []redirectDecoder{
	{name: "query", matches: always, decode: decodeQueryValues},
	{name: "fragment", matches: always, decode: decodeFragmentValues},
	{name: "base64", matches: hasBase64URL, decode: decodeBase64Values},
	{name: "mandrill", matches: isMandrill, decode: decodeMandrill},
	{name: "proofpoint_v2", matches: isProofpointV2, decode: decodeProofpointV2},
	{name: "proofpoint_v3", matches: isProofpointV3, decode: decodeProofpointV3},
}

// base64 payloads starting with "http" or "ftp", anchored on a delimiter so that runs
// buried inside larger encodings are not picked up
var base64URLPattern = regexp.MustCompile(`["'#/]((?:aHR0c|ZnRw)[a-zA-Z0-9]+)`)

func decodeChildren(u *URL) []*URL {
	var candidates []string
	for _, d := range decoders {
		if !d.matches(u) {
			continue
		}
		found, err := d.decode(u)
		if err != nil {
			logger.Load().WithFields(logrus.Fields{
				"decoder":  d.name,
				"category": utils.CategorizeError(err),
			}).Debugf("Decoder found nothing in %s: %v", u.raw, err)
			continue
		}
		candidates = append(candidates, found...)
	}

	seen := make(map[string]bool, len(candidates))
	children := make([]*URL, 0, len(candidates))
	for _, c := range candidates {
		child := New(c)
		if !child.IsURL() {
			continue
		}
		key := child.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		children = append(children, child)
	}
	slices.SortFunc(children, func(a, b *URL) int { return strings.Compare(a.raw, b.raw) })
	return children
}

func always(*URL) bool { return true }

func onlyURLs(values []string) []string {
	var found []string
	for _, v := range values {
		if IsURL(v) {
			found = append(found, v)
		}
	}
	return found
}

func decodeQueryValues(u *URL) ([]string, error) {
	return onlyURLs(u.QueryValues()), nil
}

func decodeFragmentValues(u *URL) ([]string, error) {
	return onlyURLs(u.FragmentValues()), nil
}

func hasBase64URL(u *URL) bool {
	return base64URLPattern.MatchString(u.PathOriginal())
}

func decodeBase64Values(u *URL) ([]string, error) {
	var found []string
	for _, m := range base64URLPattern.FindAllStringSubmatch(u.PathOriginal(), -1) {
		if !parse.IsBase64ASCII(m[1]) {
			continue
		}
		decoded, err := parse.DecodeBase64(m[1], false)
		if err != nil {
			continue
		}
		value := parse.FixPossibleValue(string(decoded))
		if IsURL(value) {
			found = append(found, value)
		}
	}
	return found, nil
}

func isMandrill(u *URL) bool {
	_, hasP := u.QueryDict()["p"]
	return strings.Contains(u.Hostname(), "mandrillapp.com") && hasP
}

// decodeMandrill unpacks the click-tracking parameter: base64 of a JSON envelope whose
// "p" member is itself a JSON document holding the destination "url".
func decodeMandrill(u *URL) ([]string, error) {
	values := u.QueryDict()["p"]
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: p", utils.ErrDecodeMissingKey)
	}
	// Query parsing turns "+" into a space
	encoded := strings.NewReplacer("_", "/", " ", "+").Replace(values[0])

	decoded, err := parse.DecodeBase64(encoded, false)
	if err != nil {
		return nil, utils.WrapErrorf(err, "mandrill p value")
	}
	if !gjson.ValidBytes(decoded) {
		return nil, fmt.Errorf("%w: mandrill envelope", utils.ErrDecodeJSON)
	}

	inner := gjson.GetBytes(decoded, "p")
	if !inner.Exists() {
		return nil, fmt.Errorf("%w: envelope p", utils.ErrDecodeMissingKey)
	}
	if inner.Type != gjson.String || !gjson.Valid(inner.String()) {
		return nil, fmt.Errorf("%w: mandrill inner document", utils.ErrDecodeJSON)
	}

	target := gjson.Get(inner.String(), "url")
	if !target.Exists() {
		return nil, fmt.Errorf("%w: url", utils.ErrDecodeMissingKey)
	}

	value := parse.FixPossibleURL(target.String())
	if !IsURL(value) {
		return nil, nil
	}
	return []string{value}, nil
}

func isProofpointV2(u *URL) bool {
	if !strings.Contains(u.Hostname(), "urldefense") {
		return false
	}
	lower := strings.ToLower(u.raw)
	if !strings.Contains(lower, "urldefense.proofpoint.com/v2") && !strings.Contains(lower, "urldefense.com/v2") {
		return false
	}
	_, hasU := u.QueryDict()["u"]
	return hasU
}

var proofpointV2Translator = strings.NewReplacer("-", "%", "_", "/")

func decodeProofpointV2(u *URL) ([]string, error) {
	values := u.QueryDict()["u"]
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: u", utils.ErrDecodeMissingKey)
	}

	value := proofpointV2Translator.Replace(values[0])
	value = parse.HTMLUnescape(parse.Unquote(value))
	value = parse.FixPossibleURL(value)
	if !IsURL(value) {
		return nil, nil
	}
	return []string{value}, nil
}
