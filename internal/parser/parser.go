// Package parser turns raw Google Keep HTML export documents into structured
// notes. Parsing never fails: malformed or partial markup degrades to the
// documented defaults instead of returning an error.
package parser

import (
	"bytes"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/raido/internal/models"
)

// headingLayouts are tried in order against the note's creation heading,
// after commas are stripped. Keep exports use forms like
// "Mon, 23 Oct 2023, 19:54:15 UTC" or "Oct 23, 2023, 7:54:15 PM".
var headingLayouts = []string{
	"Mon 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	"Jan 2 2006 3:04:05 PM",
	"Jan 2 2006 15:04:05",
	"2 Jan 2006 15:04:05",
}

// Parse extracts a ParsedNote from one export document. It is a pure
// function of the input: missing sections yield an empty title, empty tag
// and attachment lists, and a creation time of now().
func Parse(data []byte) models.ParsedNote {
	return parseAt(data, time.Now())
}

// parseAt is Parse with an injectable clock for the creation-time fallback.
func parseAt(data []byte, now time.Time) models.ParsedNote {
	note := models.ParsedNote{CreationTime: now}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		// html.Parse recovers from almost anything; a hard failure still
		// yields a valid (empty) note.
		return note
	}

	if n := findByClass(doc, "title"); n != nil {
		note.Title = strings.TrimSpace(textContent(n))
	}

	if n := findByClass(doc, "heading"); n != nil {
		if ts, ok := parseHeadingTime(textContent(n)); ok {
			note.CreationTime = ts
		}
	}

	if chips := findByClass(doc, "chips"); chips != nil {
		for _, label := range collectByClass(chips, "label-name") {
			if tag := strings.TrimSpace(textContent(label)); tag != "" {
				note.Tags = append(note.Tags, tag)
			}
		}
	}

	if content := findByClass(doc, "content"); content != nil {
		note.Content = markdownFromNode(content)
	}

	if attach := findByClass(doc, "attachments"); attach != nil {
		walk(attach, func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "img" {
				if src, ok := attr(n, "src"); ok && src != "" {
					note.Attachments = append(note.Attachments, src)
				}
			}
		})
	}

	return note
}

// parseHeadingTime parses the creation heading text. Commas are stripped
// first so every known layout variant collapses to the same shape.
func parseHeadingTime(text string) (time.Time, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if cleaned == "" {
		return time.Time{}, false
	}
	for _, layout := range headingLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// walk runs fn over n and all of its descendants in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// findByClass returns the first element whose class attribute contains name.
func findByClass(n *html.Node, name string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && hasClass(c, name) {
			found = c
		}
	})
	return found
}

// collectByClass returns every element under n whose class contains name,
// in document order.
func collectByClass(n *html.Node, name string) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) {
		if c.Type == html.ElementNode && hasClass(c, name) {
			out = append(out, c)
		}
	})
	return out
}

func hasClass(n *html.Node, name string) bool {
	raw, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(raw) {
		if c == name {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textContent returns the concatenated text of n's subtree.
func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
