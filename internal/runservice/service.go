// Package runservice coordinates a conversion run end to end: load the
// selected exports, check them against the run history, convert, write
// the vault output, and record the run.
package runservice

import (
	"context"
	"log/slog"

	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/fingerprint"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// Request describes one conversion run.
type Request struct {
	// Paths selects exports relative to the source root. Empty means
	// every .html file under the root.
	Paths      []string
	Naming     models.NamingOptions
	Formatting models.FormattingOptions
	// Preview converts the full batch but writes nothing and records
	// no run.
	Preview bool
	// OnlyNew drops notes whose fingerprint already appears in a
	// recorded run before converting.
	OnlyNew    bool
	OnProgress convert.ProgressFunc
}

// Result is the outcome of a conversion run.
type Result struct {
	Summary history.Summary `json:"summary"`
	Outcome convert.Outcome `json:"outcome"`
	// RunID is the recorded run, zero for previews and empty runs.
	RunID int64 `json:"run_id,omitempty"`
}

// Service wires source, vault, and history together.
type Service struct {
	src   storage.Source
	vault storage.Vault
	store history.Store
	log   *slog.Logger
}

func New(src storage.Source, vault storage.Vault, store history.Store, log *slog.Logger) *Service {
	return &Service{src: src, vault: vault, store: store, log: log}
}

// LoadBatch reads each selected export exactly once and fingerprints it.
// An empty selection loads every export under the source root. An
// unreadable file never fails the batch: it is returned as a skip and
// the remaining files load normally.
func (s *Service) LoadBatch(ctx context.Context, paths []string) ([]models.SourceFile, []convert.Skip, error) {
	if len(paths) == 0 {
		var err error
		paths, err = s.src.List("")
		if err != nil {
			return nil, nil, err
		}
	}
	files := make([]models.SourceFile, 0, len(paths))
	var skipped []convert.Skip
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		data, err := s.src.Read(p)
		if err != nil {
			skipped = append(skipped, convert.Skip{Path: p, Err: err})
			continue
		}
		files = append(files, models.SourceFile{
			Path: p,
			Data: data,
			Hash: fingerprint.Note(data),
		})
	}
	return files, skipped, nil
}

// CheckDuplicates classifies a loaded batch against the run history.
func (s *Service) CheckDuplicates(files []models.SourceFile) (history.Summary, error) {
	return history.Classify(hashesOf(files), s.store)
}

// Convert runs one conversion. A failing note never fails the run: it
// lands in Outcome.Skipped and the rest proceed. History failures are
// equally non-fatal — an unreadable history degrades duplicate detection
// to all-new, and a record failure after a successful vault write is
// logged and swallowed.
func (s *Service) Convert(ctx context.Context, req Request) (Result, error) {
	batch, loadSkips, err := s.LoadBatch(ctx, req.Paths)
	if err != nil {
		return Result{}, err
	}

	summary, err := s.CheckDuplicates(batch)
	if err != nil {
		// Without a readable history every note counts as new.
		s.log.Warn("duplicate check unavailable", "error", err)
		summary = history.Summary{Total: len(batch), New: len(batch), Kind: history.ClassNew}
	}

	if req.OnlyNew {
		known, err := s.store.KnownNoteHashes()
		if err != nil {
			s.log.Warn("history read failed, keeping full selection", "error", err)
		} else {
			kept := batch[:0]
			for _, f := range batch {
				if _, ok := known[f.Hash]; !ok {
					kept = append(kept, f)
				}
			}
			batch = kept
		}
	}

	runner := convert.New(req.Naming, req.Formatting)
	runner.OnProgress = req.OnProgress
	outcome, err := runner.Run(ctx, batch)
	if err != nil {
		return Result{}, err
	}
	outcome.Skipped = append(loadSkips, outcome.Skipped...)

	res := Result{Summary: summary, Outcome: outcome}
	for _, skip := range outcome.Skipped {
		s.log.Warn("export skipped", "path", skip.Path, "error", skip.Err)
	}

	if req.Preview || len(outcome.Files) == 0 {
		return res, nil
	}

	if err := export.ToVault(s.vault, outcome.Files); err != nil {
		return res, err
	}

	hashes := convertedHashes(batch, outcome.Files)
	id, err := s.store.AppendRun(history.RunRecord{
		BatchHash:  fingerprint.Batch(hashes),
		FileCount:  len(outcome.Files),
		NoteHashes: hashes,
		Naming:     &req.Naming,
		Formatting: &req.Formatting,
	})
	if err != nil {
		// The vault output exists either way; the run will simply be
		// reported as new again next time.
		s.log.Warn("recording run failed", "error", err)
		return res, nil
	}
	res.RunID = id
	s.log.Info("run recorded", "run_id", id, "files", len(outcome.Files), "skipped", len(outcome.Skipped))
	return res, nil
}

func hashesOf(files []models.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Hash
	}
	return out
}

// convertedHashes returns fingerprints for the files that actually made
// it into the outcome, skips excluded.
func convertedHashes(batch []models.SourceFile, files []models.ConvertedFile) []string {
	byPath := make(map[string]string, len(batch))
	for _, f := range batch {
		byPath[f.Path] = f.Hash
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if h, ok := byPath[f.OriginalPath]; ok {
			out = append(out, h)
		}
	}
	return out
}
