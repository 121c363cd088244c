// Package naming derives output filenames for converted notes from the
// configured naming options and the note's parsed fields.
package naming

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/raido/internal/models"
)

// fallbackTitle is the last-resort title part, used when the note yields no
// title or body snippet and FillerText is empty too.
const fallbackTitle = "Untitled"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pathSepRe    = regexp.MustCompile(`[\\/]`)
)

// BuildFilename builds the output filename for one note. serial is the
// note's 1-based position in the (possibly date-sorted) batch, assigned by
// the run controller. now feeds the time segment: the date part is
// note-relative while the time part is render-relative.
//
// The result is deterministic for identical inputs and always ends in ".md".
func BuildFilename(note models.ParsedNote, opts models.NamingOptions, serial int, now time.Time) string {
	var parts []string

	emoji := ""
	if opts.UseEmoji {
		emoji = opts.SelectedEmoji
	}

	datePart := ""
	if opts.UseDate {
		datePart = note.CreationTime.Format(toGoLayout(opts.DateFormat))
	}
	timePart := ""
	if opts.UseTime {
		timePart = now.Format(toGoLayout(opts.TimeFormat))
	}
	dateTimePart := joinNonEmpty("_", datePart, timePart)

	// Without a date segment there is nothing for beforeDate/afterDate to
	// anchor to, so the emoji moves to the title.
	emojiPosition := opts.EmojiPosition
	if !opts.UseDate {
		emojiPosition = models.EmojiAfterTitle
	}

	decorate := func(s string) string {
		switch {
		case emoji == "":
			return s
		case emojiPosition == models.EmojiBeforeDate:
			return emoji + " " + s
		case emojiPosition == models.EmojiAfterDate:
			return s + " " + emoji
		}
		return s
	}

	if dateTimePart != "" && opts.DatePosition == models.DatePositionPrepend {
		parts = append(parts, decorate(dateTimePart))
	}

	titlePart := buildTitlePart(note, opts)
	if emoji != "" && emojiPosition == models.EmojiAfterTitle {
		titlePart += " " + emoji
	}
	parts = append(parts, titlePart)

	if dateTimePart != "" && opts.DatePosition == models.DatePositionAppend {
		parts = append(parts, decorate(dateTimePart))
	}

	// Serial numbering depends on the chronological sort that only happens
	// under UseDate; without it the flag is silently ignored.
	if opts.UseSerial && opts.UseDate {
		parts = append(parts, fmt.Sprintf("%0*d", len(opts.SerialPadding), serial))
	}

	name := strings.Join(parts, " - ")
	name = strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
	return name + ".md"
}

// buildTitlePart resolves the title segment: note title, body snippet,
// filler text, generic fallback — in that order. Path separators are
// replaced so the result is a single path segment.
func buildTitlePart(note models.ParsedNote, opts models.NamingOptions) string {
	var title string

	switch {
	case opts.UseTitle && note.Title != "":
		title = note.Title
	case opts.UseBody && note.Title == "":
		title = bodySnippet(note.Content, opts.BodyUnit, opts.BodyLength)
	}

	if title == "" {
		title = opts.FillerText
	}
	if title == "" {
		title = fallbackTitle
	}

	return pathSepRe.ReplaceAllString(title, "-")
}

// bodySnippet takes the leading portion of the note body in the configured
// unit.
func bodySnippet(content, unit string, length int) string {
	switch unit {
	case models.BodyUnitWords:
		words := strings.Fields(content)
		if len(words) > length {
			words = words[:length]
		}
		return strings.Join(words, " ")
	case models.BodyUnitLines:
		lines := strings.Split(content, "\n")
		if len(lines) > length {
			lines = lines[:length]
		}
		joined := strings.Join(lines, " ")
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(joined, " "))
	default: // characters
		clean := strings.TrimSpace(whitespaceRe.ReplaceAllString(content, " "))
		runes := []rune(clean)
		if len(runes) > length {
			runes = runes[:length]
		}
		return string(runes)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
