package finder

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Sriram-PR/urlfinder/pkg/collect"
	"github.com/Sriram-PR/urlfinder/pkg/parse"
	"github.com/Sriram-PR/urlfinder/pkg/tokenizer"
	"github.com/Sriram-PR/urlfinder/pkg/urls"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// document.write calls are parsed as pages of their own, this many levels deep
const maxDocumentWriteDepth = 3

var (
	cssURLPattern        = regexp.MustCompile(`(?i)url\s*\(\s*['"]?(.*?)['"]?\s*\)`)
	documentWritePattern = regexp.MustCompile(`(?i)document\.write\s*\(.*?\)\s*;`)
	refreshPattern       = regexp.MustCompile(`(?i)refresh`)
	refreshURLPattern    = regexp.MustCompile(`(?i)url\s*=`)
)

// Link attributes resolved against the base URL
var baseRelativeAttrs = []string{"action", "background", "href", "src", "xmlns"}

var invisibleParents = map[atom.Atom]bool{
	atom.Style:  true,
	atom.Script: true,
	atom.Head:   true,
	atom.Title:  true,
	atom.Meta:   true,
}

var quotedOpenings = []string{`"http`, `"ftp`, `'http`, `'ftp`, `"HTTP`, `"FTP`, `'HTTP`, `'FTP`}

// html parses blob as a page, and once more percent-decoded when that changes it
func (f *finder) html(blob []byte, baseURL string, depth int) *collect.List {
	page := strings.ToValidUTF8(string(blob), "")
	pages := []string{page}
	if unquoted := parse.UnquoteIgnore(page); unquoted != page {
		pages = append(pages, unquoted)
	}

	list := collect.New(f.cache, f.log)
	for _, p := range pages {
		root, err := html.Parse(strings.NewReader(p))
		if err != nil {
			err = fmt.Errorf("%w: HTML document: %v", utils.ErrParsing, err)
			f.log.WithField("category", utils.CategorizeError(err)).Debugf("Skipping page: %v", err)
			continue
		}
		list.Extend(f.document(goquery.NewDocumentFromNode(root), baseURL, depth))
	}
	return list
}

// document harvests one parsed page. Attribute values are blanked as they are read, so
// the final pass over the rendered page only sees quoted URLs in text and scripts.
func (f *finder) document(doc *goquery.Document, givenBaseURL string, depth int) *collect.List {
	removeObfuscatingFontTags(doc)
	baseURL := pickBaseURL(doc, givenBaseURL)
	list := collect.New(f.cache, f.log)

	if depth < maxDocumentWriteDepth {
		for _, content := range documentWriteContents(f.render(doc)) {
			list.Extend(f.html([]byte(content), baseURL, depth+1))
		}
	}

	for line := range tokenizer.NewString(visibleText(doc)).LineTokens() {
		if strings.Contains(line, ".") && strings.Contains(line, "/") {
			list.Extend(f.text([]byte(line), true, false))
		}
	}

	for _, value := range metaRefreshValues(doc) {
		list.Append(value)
	}

	possible := make(map[string]bool)
	if baseURL != "" {
		for _, value := range f.baseRelativeValues(doc) {
			possible[parse.ResolveReference(baseURL, value)] = true
		}
	}
	srcset := srcsetValues(doc)
	for value := range possible {
		if slices.ContainsFunc(srcset, func(s string) bool { return strings.Contains(value, s) }) {
			delete(possible, value)
		}
	}
	for _, value := range srcset {
		possible[parse.ResolveReference(baseURL, value)] = true
	}
	for _, value := range attributeValues(doc) {
		possible[value] = true
	}
	for _, value := range slices.Sorted(maps.Keys(possible)) {
		list.Append(parse.FixPossibleURL(value))
	}

	tok := tokenizer.NewString(f.render(doc))
	for _, open := range quotedOpenings {
		for token := range tok.TokensBetween(open, open[:1], true) {
			list.Append(token)
		}
	}

	return list
}

// render returns the page markup with character references resolved
func (f *finder) render(doc *goquery.Document) string {
	rendered, err := doc.Html()
	if err != nil {
		f.log.WithField("category", utils.CategorizeError(fmt.Errorf("%w: rendering HTML: %v", utils.ErrParsing, err))).
			Debugf("Could not render page: %v", err)
		return ""
	}
	return parse.HTMLUnescape(rendered)
}

// removeObfuscatingFontTags drops <font id="..."> elements whose only attribute is a
// non-empty id. Such tags are used to break up link text.
func removeObfuscatingFontTags(doc *goquery.Document) {
	doc.Find("font").FilterFunction(func(_ int, s *goquery.Selection) bool {
		n := s.Get(0)
		return len(n.Attr) == 1 && n.Attr[0].Key == "id" && n.Attr[0].Val != ""
	}).Remove()
}

func pickBaseURL(doc *goquery.Document, given string) string {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if found := parse.FixPossibleURL(href); urls.IsURL(found) {
			return found
		}
	}
	return given
}

func documentWriteContents(page string) []string {
	contents := make(map[string]bool)
	for _, call := range documentWritePattern.FindAllString(page, -1) {
		begin := strings.LastIndex(call, "(") + 1
		end := strings.Index(call, ")")
		if end < begin {
			continue
		}
		contents[parse.FixPossibleValue(call[begin:end])] = true
	}
	return slices.Sorted(maps.Keys(contents))
}

// visibleText concatenates the text nodes a browser would display
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	stack := slices.Clone(doc.Nodes)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.TextNode && n.Parent != nil &&
			n.Parent.Type == html.ElementNode && !invisibleParents[n.Parent.DataAtom] {
			b.WriteString(n.Data)
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return strings.TrimSpace(b.String())
}

func metaRefreshValues(doc *goquery.Document) []string {
	var values []string
	doc.Find("meta[http-equiv][content]").Each(func(_ int, s *goquery.Selection) {
		equiv, _ := s.Attr("http-equiv")
		content, _ := s.Attr("content")
		if !refreshPattern.MatchString(equiv) || !refreshURLPattern.MatchString(content) {
			return
		}
		_, target, _ := strings.Cut(content, "=")
		values = append(values, parse.FixPossibleValue(strings.TrimSpace(target)))
	})
	return values
}

// baseRelativeValues reads and blanks the link attributes, then collects CSS url() values
func (f *finder) baseRelativeValues(doc *goquery.Document) []string {
	var values []string
	for _, attr := range baseRelativeAttrs {
		values = append(values, takeAttr(doc, attr)...)
	}
	for _, m := range cssURLPattern.FindAllStringSubmatch(f.render(doc), -1) {
		values = append(values, m[1])
	}
	return values
}

// srcsetValues returns the image candidates of every srcset attribute, without their
// width or density descriptors
func srcsetValues(doc *goquery.Document) []string {
	var values []string
	for _, srcset := range takeAttr(doc, "srcset") {
		for _, candidate := range strings.Split(srcset, ",") {
			candidate, _, _ = strings.Cut(strings.TrimSpace(candidate), " ")
			if candidate != "" {
				values = append(values, candidate)
			}
		}
	}
	return values
}

// attributeValues reads and blanks every remaining attribute
func attributeValues(doc *goquery.Document) []string {
	var values []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		for i, a := range n.Attr {
			if a.Key == "class" {
				for _, class := range strings.Fields(a.Val) {
					values = append(values, parse.FixPossibleValue(class))
				}
			} else {
				values = append(values, parse.FixPossibleValue(a.Val))
			}
			n.Attr[i].Val = ""
		}
	})
	return values
}

func takeAttr(doc *goquery.Document, attr string) []string {
	var values []string
	doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(attr)
		values = append(values, parse.FixPossibleValue(v))
		s.SetAttr(attr, "")
	})
	return values
}
