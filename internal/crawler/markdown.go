package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// htmlToMarkdown converts HTML into a plain markdown rendition: headings,
// paragraphs, lists, links, code blocks and blockquotes. Everything else
// degrades to its text content.
func htmlToMarkdown(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, header, footer, iframe, svg").Remove()

	var sb strings.Builder
	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	for _, node := range sel.Nodes {
		renderNode(&sb, node)
	}

	out := blankRuns.ReplaceAllString(sb.String(), "\n\n")
	return strings.TrimSpace(out), nil
}

func renderNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
		renderElement(sb, n)
	default:
		renderChildren(sb, n)
	}
}

func renderElement(sb *strings.Builder, n *html.Node) {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		sb.WriteString("\n\n")
		sb.WriteString(strings.Repeat("#", level))
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(nodeText(n)))
		sb.WriteString("\n\n")
	case "p", "div", "section", "article", "main", "table", "tr":
		renderChildren(sb, n)
		sb.WriteString("\n\n")
	case "br":
		sb.WriteString("\n")
	case "hr":
		sb.WriteString("\n\n---\n\n")
	case "ul", "ol":
		sb.WriteString("\n")
		renderChildren(sb, n)
		sb.WriteString("\n")
	case "li":
		sb.WriteString("- ")
		renderChildren(sb, n)
		sb.WriteString("\n")
	case "pre":
		sb.WriteString("\n\n```\n")
		sb.WriteString(strings.TrimRight(nodeText(n), "\n"))
		sb.WriteString("\n```\n\n")
	case "code":
		sb.WriteString("`")
		sb.WriteString(nodeText(n))
		sb.WriteString("`")
	case "a":
		text := strings.TrimSpace(nodeText(n))
		href := attrValue(n, "href")
		if text == "" {
			return
		}
		if href == "" || strings.HasPrefix(href, "#") {
			sb.WriteString(text)
			return
		}
		sb.WriteString("[")
		sb.WriteString(text)
		sb.WriteString("](")
		sb.WriteString(href)
		sb.WriteString(")")
	case "strong", "b":
		sb.WriteString("**")
		renderChildren(sb, n)
		sb.WriteString("**")
	case "em", "i":
		sb.WriteString("*")
		renderChildren(sb, n)
		sb.WriteString("*")
	case "blockquote":
		sb.WriteString("\n\n> ")
		sb.WriteString(strings.TrimSpace(nodeText(n)))
		sb.WriteString("\n\n")
	case "img":
		// Images carry no text for retrieval.
	default:
		renderChildren(sb, n)
	}
}

func renderChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

// nodeText returns the concatenated text content of a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace reduces whitespace runs in inline text to single spaces
// while preserving fully blank text as empty.
func collapseSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ") + spaceSuffix(s)
}

func spaceSuffix(s string) string {
	if len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\n' || s[len(s)-1] == '\t') {
		return " "
	}
	return ""
}
