package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var embedSource = regexp.MustCompile(`^https://(www\.)?(mixcloud\.com|youtube\.com|youtube-nocookie\.com|player\.vimeo\.com|w\.soundcloud\.com)/`)

// blockBoundary matches tags that separate words when markup is stripped.
var blockBoundary = regexp.MustCompile(`(?i)<(/?(p|div|br|li|h[1-6]|blockquote|tr|td|th|figcaption)\b)`)

var policy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "hr", "h2", "h3", "h4",
		"strong", "b", "em", "i", "u", "s", "del", "sub", "sup", "small",
		"ul", "ol", "li", "blockquote", "figure", "figcaption", "code", "pre",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("img", "iframe")

	p.AllowAttrs("src").Matching(embedSource).OnElements("iframe")
	p.AllowAttrs("allow", "title").OnElements("iframe")
	p.AllowAttrs("allowfullscreen").Matching(regexp.MustCompile(`^(|allowfullscreen|true)$`)).OnElements("iframe")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|right|center)$`)).OnElements("th", "td")
	return p
})

var strict = sync.OnceValue(bluemonday.StrictPolicy)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

// HTML sanitizes s with the site policy.
func HTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return policy().Sanitize(s)
}

// Text strips all markup, decodes entities and collapses whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	spaced := blockBoundary.ReplaceAllString(s, " <$1")
	plain := html.UnescapeString(strict().Sanitize(spaced))
	return strings.Join(strings.Fields(plain), " ")
}

// Excerpt returns at most n runes of Text(s), cut at a word boundary and
// suffixed with an ellipsis when shortened.
func Excerpt(s string, n int) string {
	text := Text(s)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	cut = strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return cut + "…"
}

// Markdown renders markdown to HTML and sanitizes the result. Raw HTML in the
// source is passed through the same policy as HTML.
func Markdown(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return HTML(buf.String()), nil
}
