// Package convert drives a conversion run: parse every selected export,
// order the batch, then name and render each note with one shared set of
// options. A run is pure computation; callers decide what to do with the
// resulting files.
package convert

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/starford/raido/internal/markdown"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/naming"
	"github.com/starford/raido/internal/parser"
)

// ErrEmptySource marks a selected file with no content at all.
var ErrEmptySource = errors.New("convert: empty source file")

// ProgressFunc is invoked once per input file, converted or skipped.
type ProgressFunc func(done, total int, path string)

// Skip records a source file that was left out of the run and why.
type Skip struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Outcome is the result of one run. A skipped file never aborts the
// rest of the batch.
type Outcome struct {
	Files   []models.ConvertedFile `json:"files"`
	Skipped []Skip                 `json:"skipped,omitempty"`
}

// Runner converts batches with a fixed naming and formatting
// configuration.
type Runner struct {
	Naming     models.NamingOptions
	Formatting models.FormattingOptions
	OnProgress ProgressFunc

	now func() time.Time
}

func New(n models.NamingOptions, f models.FormattingOptions) *Runner {
	return &Runner{Naming: n, Formatting: f, now: time.Now}
}

// Run converts files in a single pass. When dates are part of filenames
// the batch is ordered by note creation time, oldest first, so serial
// numbers follow chronology; ties keep their input order. Without dates
// the input order stands.
func (r *Runner) Run(ctx context.Context, files []models.SourceFile) (Outcome, error) {
	if err := r.Naming.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("convert: naming options: %w", err)
	}
	if err := r.Formatting.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("convert: formatting options: %w", err)
	}

	nowFn := r.now
	if nowFn == nil {
		nowFn = time.Now
	}
	runTime := nowFn()

	type item struct {
		src  models.SourceFile
		note models.ParsedNote
	}

	var out Outcome
	total := len(files)
	done := 0

	items := make([]item, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if len(f.Data) == 0 {
			out.Skipped = append(out.Skipped, Skip{Path: f.Path, Err: ErrEmptySource})
			done++
			if r.OnProgress != nil {
				r.OnProgress(done, total, f.Path)
			}
			continue
		}
		items = append(items, item{src: f, note: parser.Parse(f.Data)})
	}

	if r.Naming.UseDate {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].note.CreationTime.Before(items[j].note.CreationTime)
		})
	}

	for pos, it := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Files = append(out.Files, models.ConvertedFile{
			OriginalPath: it.src.Path,
			NewPath:      naming.BuildFilename(it.note, r.Naming, pos+1, runTime),
			Content:      markdown.Render(it.note, r.Formatting),
		})
		done++
		if r.OnProgress != nil {
			r.OnProgress(done, total, it.src.Path)
		}
	}
	return out, nil
}
