package migrate

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"

	"wwfm/internal/sanitize"
)

// newMarkdownConverter returns a function turning legacy body HTML into
// markdown. Site-relative image and link URLs are rewritten against
// assetBaseURL so they survive the move off the old domain.
func newMarkdownConverter(assetBaseURL string) func(string) (string, error) {
	assetBaseURL = strings.TrimRight(assetBaseURL, "/")
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	if assetBaseURL != "" {
		conv.Register.RendererFor("img", converter.TagTypeInline,
			func(_ converter.Context, _ converter.Writer, n *html.Node) converter.RenderStatus {
				src := dom.GetAttributeOr(n, "src", "")
				if strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//") {
					setAttribute(n, "src", assetBaseURL+src)
				}
				return converter.RenderTryNext
			},
			converter.PriorityEarly,
		)
	}
	return func(body string) (string, error) {
		clean := sanitize.HTML(body)
		if strings.TrimSpace(clean) == "" {
			return "", nil
		}
		md, err := conv.ConvertString(clean)
		if err != nil {
			return "", fmt.Errorf("markdown conversion: %w", err)
		}
		return strings.TrimSpace(md), nil
	}
}

func setAttribute(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// imageSources returns the src of every <img> in a legacy body, in document
// order and without duplicates.
func imageSources(body string) []string {
	if !strings.Contains(body, "<img") {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			src := strings.TrimSpace(dom.GetAttributeOr(n, "src", ""))
			if src != "" && !strings.HasPrefix(src, "data:") && !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
