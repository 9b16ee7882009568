// Package web is an example plugin-contributed node family: fetch a page,
// sanitize it down to readable content, and hand back a markdown rendering
// plus an HTML preview rendered from that markdown, registered via
// registry.RegisterFromPlugin. It
// exists to demonstrate the shape of a plugin contribution, not as a
// maintained scraping surface.
package web

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/microcosm-cc/bluemonday"

	"github.com/nodeflowgo/nodeflow/node"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/socket"
)

// Category is the registry category this plugin's definitions register
// under.
const Category = "plugin.web"

// Plugin configures the HTTP client used to fetch pages.
type Plugin struct {
	// Client defaults to a 15s-timeout http.Client when nil.
	Client *http.Client
}

// Definitions implements registry.Source.
func (p Plugin) Definitions() []*node.Definition {
	return []*node.Definition{fetchMarkdownDef(p)}
}

func (p Plugin) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

var sanitizer = bluemonday.UGCPolicy()

// fetchMarkdownDef fetches a URL, sanitizes the body against an XSS
// policy, converts the remaining text content to a flat markdown
// rendering, and renders that markdown back to HTML as a preview output.
func fetchMarkdownDef(p Plugin) *node.Definition {
	return registry.NewBuilder("Fetch Markdown", Category, "Fetches a URL and extracts sanitized markdown content").
		ID("plugin.web.fetch_markdown").
		Callable().
		Input(node.DataSocket("URL", "string", true)).
		Output(node.DataSocket("Markdown", "string", false)).
		Output(node.DataSocket("PreviewHTML", "string", false)).
		Executor(func(ctx node.ExecContext) error {
			urlVal, err := ctx.GetInput("URL")
			if err != nil {
				return err
			}
			rawURL, err := socket.To[string](urlVal)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx.Context(), http.MethodGet, rawURL, nil)
			if err != nil {
				return fmt.Errorf("plugin/web: building request for %s: %w", rawURL, err)
			}

			resp, err := p.client().Do(req)
			if err != nil {
				return fmt.Errorf("plugin/web: fetching %s: %w", rawURL, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return fmt.Errorf("plugin/web: %s returned status %d", rawURL, resp.StatusCode)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("plugin/web: reading body from %s: %w", rawURL, err)
			}

			md, err := toMarkdown(body)
			if err != nil {
				return err
			}

			previewHTML := markdown.ToHTML([]byte(md), nil, nil)

			mdOut, err := socket.FromValue(md)
			if err != nil {
				return err
			}
			ctx.SetOutput("Markdown", mdOut)

			htmlOut, err := socket.FromValue(string(previewHTML))
			if err != nil {
				return err
			}
			ctx.SetOutput("PreviewHTML", htmlOut)

			ctx.Trigger("Exit")
			return nil
		}).
		Build()
}

// toMarkdown sanitizes raw HTML and flattens it into a heading/paragraph/
// link markdown rendering. It is a deliberately small converter, not a
// general-purpose HTML-to-markdown library.
func toMarkdown(rawHTML []byte) (string, error) {
	clean := sanitizer.SanitizeBytes(rawHTML)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(clean)))
	if err != nil {
		return "", fmt.Errorf("plugin/web: parsing sanitized HTML: %w", err)
	}

	var b strings.Builder
	doc.Find("body").Children().Each(func(_ int, sel *goquery.Selection) {
		writeNode(&b, sel)
	})
	if b.Len() == 0 {
		// No body wrapper (e.g. a bare fragment): fall back to the whole document.
		doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
			writeNode(&b, sel)
		})
	}
	return strings.TrimSpace(b.String()), nil
}

func writeNode(b *strings.Builder, sel *goquery.Selection) {
	tag := goquery.NodeName(sel)
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return
	}
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := strings.Repeat("#", int(tag[1]-'0'))
		fmt.Fprintf(b, "%s %s\n\n", level, text)
	case "a":
		href, _ := sel.Attr("href")
		fmt.Fprintf(b, "[%s](%s) ", text, href)
	case "li":
		fmt.Fprintf(b, "- %s\n", text)
	case "p", "div":
		fmt.Fprintf(b, "%s\n\n", text)
	default:
		fmt.Fprintf(b, "%s\n\n", text)
	}
}
