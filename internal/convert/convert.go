// Package convert turns fetched HTML pages into Markdown before storage.
// Non-HTML documents never pass through here.
package convert

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/charmbracelet/log"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// Result carries the converted page. Markdown falls back to the raw input
// when conversion fails; Title is empty when the page has none.
type Result struct {
	Title    string
	Markdown string
}

// Converter converts HTML pages to GitHub-flavored Markdown, extracting the
// readable core first. Safe for concurrent use.
type Converter struct {
	md *md.Converter
}

func New() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{md: converter}
}

// Convert transforms one HTML page. pageURL feeds the readability
// extractor's relative-link resolution; it may be empty. Conversion is best
// effort: any failure returns the raw input unchanged rather than losing
// the document.
func (c *Converter) Convert(htmlContent, pageURL string) Result {
	title := Title(htmlContent)

	source := readableCore(htmlContent, pageURL)
	source = scriptRe.ReplaceAllString(source, "")
	source = styleRe.ReplaceAllString(source, "")

	markdown, err := c.md.ConvertString(source)
	if err != nil || strings.TrimSpace(markdown) == "" {
		log.Debug("markdown conversion fell back to raw content", "url", pageURL, "error", err)
		return Result{Title: title, Markdown: htmlContent}
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	return Result{Title: title, Markdown: strings.TrimSpace(markdown) + "\n"}
}

// readableCore runs readability extraction, falling back to the whole page
// for documents that are not article-shaped.
func readableCore(htmlContent, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return htmlContent
	}
	return article.Content
}

// Title returns the text of the first <title> element, or "".
func Title(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
