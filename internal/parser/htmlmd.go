package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// markdownFromNode converts the content subtree of a Keep export into
// Markdown. Paragraph-level elements become blank-line separated blocks,
// <br> becomes a line break, simple emphasis is kept, and checklist items
// become "- [ ]" / "- [x]" list entries.
func markdownFromNode(root *html.Node) string {
	w := &mdWriter{}
	w.blocks(root)
	w.endLine()

	out := strings.Join(w.lines, "\n")
	// Collapse runs of three or more newlines left by nested blocks.
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.Trim(out, "\n")
}

// mdWriter accumulates finished lines plus the line under construction.
type mdWriter struct {
	lines []string
	cur   strings.Builder
}

// endLine finishes the current line if it holds anything.
func (w *mdWriter) endLine() {
	line := strings.TrimRight(w.cur.String(), " ")
	w.cur.Reset()
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

// breakParagraph finishes the current line and inserts a blank separator.
func (w *mdWriter) breakParagraph() {
	w.endLine()
	if len(w.lines) > 0 && w.lines[len(w.lines)-1] != "" {
		w.lines = append(w.lines, "")
	}
}

// text appends text-node content with HTML whitespace collapsing. Leading
// and trailing whitespace survive as single word boundaries.
func (w *mdWriter) text(s string) {
	if s == "" {
		return
	}
	collapsed := strings.Join(strings.Fields(s), " ")
	if collapsed == "" {
		w.boundary()
		return
	}
	if isSpace(s[0]) {
		w.boundary()
	}
	w.cur.WriteString(collapsed)
	if isSpace(s[len(s)-1]) {
		w.cur.WriteByte(' ')
	}
}

// boundary ensures the current line ends with a single space separator.
func (w *mdWriter) boundary() {
	if w.cur.Len() > 0 && !strings.HasSuffix(w.cur.String(), " ") {
		w.cur.WriteByte(' ')
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// blocks walks n's children at block level.
func (w *mdWriter) blocks(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			w.text(c.Data)

		case c.Type != html.ElementNode:
			// Comments and the like.

		case hasClass(c, "bullet"):
			// Decorative checkbox glyph; the state lives on the item class.

		case hasClass(c, "listitem") || c.Data == "li":
			w.endLine()
			w.cur.WriteString(listPrefix(c))
			w.inline(c)
			w.endLine()

		case c.Data == "br":
			w.endLine()

		case c.Data == "ul" || c.Data == "ol":
			w.endLine()
			w.blocks(c)
			w.endLine()

		case c.Data == "p" || c.Data == "div":
			w.breakParagraph()
			w.blocks(c)
			w.breakParagraph()

		default:
			w.inlineElement(c)
		}
	}
}

// inline renders n's children as inline content on the current line.
func (w *mdWriter) inline(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			w.text(c.Data)
		case c.Type != html.ElementNode:
		case hasClass(c, "bullet"):
		case c.Data == "br":
			w.boundary()
		default:
			w.inlineElement(c)
		}
	}
}

// inlineElement renders one inline element, wrapping emphasis markers.
func (w *mdWriter) inlineElement(c *html.Node) {
	switch c.Data {
	case "b", "strong":
		if inner := inlineText(c); inner != "" {
			w.cur.WriteString("**" + inner + "**")
		}
	case "i", "em":
		if inner := inlineText(c); inner != "" {
			w.cur.WriteString("*" + inner + "*")
		}
	case "a":
		inner := inlineText(c)
		if href, ok := attr(c, "href"); ok && inner != "" {
			w.cur.WriteString("[" + inner + "](" + href + ")")
		} else {
			w.inline(c)
		}
	default:
		w.inline(c)
	}
}

// inlineText renders a subtree to plain collapsed text (for emphasis spans).
func inlineText(n *html.Node) string {
	inner := &mdWriter{}
	inner.inline(n)
	inner.endLine()
	return strings.Join(inner.lines, " ")
}

// listPrefix returns the Markdown marker for a list item. Keep marks
// checklist entries with the "listitem" class and checked state with
// "checked"; plain <li> items get a regular bullet.
func listPrefix(n *html.Node) string {
	if hasClass(n, "listitem") {
		if hasClass(n, "checked") {
			return "- [x] "
		}
		return "- [ ] "
	}
	return "- "
}
