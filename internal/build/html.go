// Package build renders reStructuredText through external document builders.
package build

import (
	"bytes"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"go-live-rst/internal/contracts"
)

// FixLinks rewrites relative src and href attribute values in doc so they
// resolve against the directory of documentPath through the preview asset
// route. Tags without such values are copied byte for byte.
func FixLinks(doc, documentPath string) string {
	base := filepath.Dir(documentPath)
	z := html.NewTokenizer(strings.NewReader(doc))

	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// TagAttr unescapes in place, so keep the raw bytes first.
		raw := bytes.Clone(z.Raw())
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			tok := z.Token()
			if rewriteLinks(&tok, base) {
				b.WriteString(tok.String())
				continue
			}
		}
		b.Write(raw)
	}
	return b.String()
}

func rewriteLinks(tok *html.Token, base string) bool {
	changed := false
	for i, a := range tok.Attr {
		if a.Namespace != "" || (a.Key != "src" && a.Key != "href") || !isRelative(a.Val) {
			continue
		}
		target, suffix := a.Val, ""
		// Keep fragments and queries out of the file path.
		if j := strings.IndexAny(target, "#?"); j >= 0 {
			target, suffix = target[:j], target[j:]
		}
		tok.Attr[i].Val = contracts.AssetURL(filepath.Join(base, target)) + suffix
		changed = true
	}
	return changed
}

func isRelative(target string) bool {
	t := strings.TrimSpace(target)
	switch {
	case t == "",
		strings.HasPrefix(t, "#"),
		strings.HasPrefix(t, "/"),
		strings.HasPrefix(t, "?"):
		return false
	}
	u, err := url.Parse(t)
	return err == nil && u.Scheme == ""
}

// Fragment reduces a full HTML document to the stylesheet elements of its
// head followed by the inner HTML of its body. Input without a body element
// is returned unchanged.
func Fragment(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))

	var styles, body strings.Builder
	var inHead, inStyle, inBody, sawBody bool
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		// TagName lowercases in place.
		raw := bytes.Clone(z.Raw())

		if inBody {
			if tt == html.EndTagToken && tagName(z) == "body" {
				inBody = false
				continue
			}
			body.Write(raw)
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tagName(z) {
			case "head":
				inHead = true
			case "body":
				inHead, inBody, sawBody = false, true, true
			case "style":
				if inHead {
					inStyle = true
					styles.Write(raw)
				}
			case "link":
				if inHead && isStylesheet(z) {
					styles.Write(raw)
					styles.WriteByte('\n')
				}
			}
		case html.EndTagToken:
			switch tagName(z) {
			case "head":
				inHead = false
			case "style":
				if inStyle {
					styles.Write(raw)
					styles.WriteByte('\n')
					inStyle = false
				}
			}
		case html.TextToken:
			if inStyle {
				styles.Write(raw)
			}
		}
	}

	if !sawBody {
		return doc
	}
	return styles.String() + body.String()
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return string(name)
}

func isStylesheet(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "rel" && slices.Contains(strings.Fields(strings.ToLower(string(val))), "stylesheet") {
			return true
		}
		if !more {
			return false
		}
	}
}

// ErrorSnippet renders err for display in place of a preview.
func ErrorSnippet(err error) string {
	return "<body><pre class=\"go-live-rst-error\">" + html.EscapeString(err.Error()) + "</pre></body>"
}
