package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DOMSnapshot is a reduced rendering of a page used to explain failed
// assertions. It keeps element structure and the attributes that decide
// visibility and interactivity and drops scripts, styles and comments.
type DOMSnapshot struct {
	Title     string
	Body      string
	Truncated bool
}

// String renders the snapshot the way it is attached to an AssertionError.
func (s *DOMSnapshot) String() string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", s.Title)
	}
	b.WriteString(s.Body)
	if s.Truncated {
		b.WriteString("\n[snapshot truncated]")
	}
	return b.String()
}

var (
	droppedElements = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "link", "meta")

	blockElements = set("html", "head", "body", "div", "p", "section", "article", "header", "footer", "nav", "main",
		"aside", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th", "form",
		"fieldset", "dialog", "label", "button")

	voidElements = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param",
		"source", "track", "wbr")

	// state attributes are what visibility, enabled and checked assertions read
	keptAttributes = set("id", "class", "role", "name", "type", "hidden", "disabled", "checked", "href",
		"target", "value", "aria-label", "aria-hidden", "aria-disabled", "aria-checked", "aria-modal")
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

func has(m map[string]struct{}, key string) bool {
	_, ok := m[key]
	return ok
}

// BuildSnapshot parses raw page HTML and renders a bounded snapshot.
func BuildSnapshot(rawHTML string, maxLength int) (*DOMSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}

	w := &snapshotWriter{limit: maxLength}
	w.node(doc, 0)

	return &DOMSnapshot{
		Title:     findTitle(doc),
		Body:      strings.TrimSpace(w.b.String()),
		Truncated: w.full,
	}, nil
}

type snapshotWriter struct {
	b     strings.Builder
	limit int
	full  bool
}

func (w *snapshotWriter) write(s string) {
	if w.full {
		return
	}
	if w.b.Len()+len(s) > w.limit {
		w.b.WriteString(s[:w.limit-w.b.Len()])
		w.full = true
		return
	}
	w.b.WriteString(s)
}

func (w *snapshotWriter) node(n *html.Node, depth int) {
	if w.full {
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			w.write(text)
		}
		return
	case html.ElementNode:
		w.element(n, depth)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth)
	}
}

func (w *snapshotWriter) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if has(droppedElements, tag) {
		return
	}

	block := has(blockElements, tag)
	if block && depth > 0 {
		w.write("\n" + strings.Repeat("  ", depth))
	}

	var open strings.Builder
	open.WriteString("<" + tag)
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if !has(keptAttributes, key) && !strings.HasPrefix(key, "data-") {
			continue
		}
		if attr.Val == "" {
			open.WriteString(" " + key)
			continue
		}
		fmt.Fprintf(&open, ` %s="%s"`, key, html.EscapeString(attr.Val))
	}
	open.WriteString(">")
	w.write(open.String())

	if has(voidElements, tag) {
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, depth+1)
	}

	if block && hasElementChild(n) {
		w.write("\n" + strings.Repeat("  ", depth))
	}
	w.write("</" + tag + ">")
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && !has(droppedElements, strings.ToLower(c.Data)) {
			return true
		}
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
