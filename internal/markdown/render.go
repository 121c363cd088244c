// Package markdown renders parsed notes into Obsidian-flavoured Markdown
// documents.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/models"
)

// createdLayout is the fixed timestamp format of the "**Created:**" line.
// Filename date formatting is configured separately and does not affect it.
const createdLayout = "2006-01-02 15:04:05"

var whitespaceRe = regexp.MustCompile(`\s+`)

// Render assembles the final Markdown document for a note. The section
// order is fixed: heading, created line, optional tags line, body,
// attachment embeds. It never fails; absent optional sections are omitted.
func Render(note models.ParsedNote, opts models.FormattingOptions) string {
	var sections []string

	title := note.Title
	if title == "" {
		title = "Untitled"
	}
	sections = append(sections, "# "+title+"\n")
	sections = append(sections, "**Created:** "+note.CreationTime.Format(createdLayout)+"\n")

	if len(note.Tags) > 0 {
		formatted := make([]string, len(note.Tags))
		for i, tag := range note.Tags {
			formatted[i] = formatTag(tag, opts.TagHandling)
		}
		sections = append(sections, "**Tags:** "+strings.Join(formatted, " ")+"\n")
	}

	sections = append(sections, restyleChecklists(note.Content, opts.CheckboxStyle)+"\n")

	if len(note.Attachments) > 0 {
		embeds := make([]string, len(note.Attachments))
		for i, ref := range note.Attachments {
			embeds[i] = "![[" + basename(ref) + "]]"
		}
		sections = append(sections, strings.Join(embeds, "\n"))
	}

	return strings.Join(sections, "\n")
}

// formatTag renders a single tag per the configured handling.
func formatTag(tag, handling string) string {
	switch handling {
	case models.TagHandlingLinks:
		return "[[" + tag + "]]"
	case models.TagHandlingAtLinks:
		return "@" + tag
	default: // hash
		return "#" + whitespaceRe.ReplaceAllString(tag, "-")
	}
}

// basename returns the final path segment of a raw attachment reference
// (everything after the last "/").
func basename(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

var checklistRe = regexp.MustCompile(`^- \[[ xX]\] `)

// restyleChecklists rewrites checklist lines in the body per the configured
// style. The markdown style keeps "- [ ]"/"- [x]" untouched; the other
// styles strip the checkbox state. Numbered lists restart at 1 for each
// contiguous checklist block.
func restyleChecklists(body, style string) string {
	if style == "" || style == models.CheckboxMarkdown {
		return body
	}

	lines := strings.Split(body, "\n")
	counter := 0
	for i, line := range lines {
		if !checklistRe.MatchString(line) {
			counter = 0
			continue
		}
		text := checklistRe.ReplaceAllString(line, "")
		switch style {
		case models.CheckboxHyphen:
			lines[i] = "- " + text
		case models.CheckboxBullet:
			lines[i] = "• " + text
		case models.CheckboxNumbered:
			counter++
			lines[i] = fmt.Sprintf("%d. %s", counter, text)
		}
	}
	return strings.Join(lines, "\n")
}
