// Package stage watches the Keep export directory and classifies files
// against the run history as they land, so a long-running process can
// surface which incoming exports are new before anyone converts them.
package stage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/fingerprint"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/storage"
)

// EventCallback is called once per observed export file. kind is the
// duplicate classification of that single file against the history.
type EventCallback func(path, kind string)

// settleDelay is how long a path must stay quiet after its last
// Create/Write event before it is fingerprinted. Exports arrive as a
// Create followed by one or more Writes; classifying mid-burst would
// read a partial file.
const settleDelay = 100 * time.Millisecond

// Watch starts an fsnotify watcher on the source root and classifies
// .html files as they appear or change, until ctx is cancelled. It calls
// cb (if non-nil) once per new content fingerprint per path, after the
// write burst for that path settles.
//
// New directories created at runtime are automatically added to the
// watch list and their existing files classified.
func Watch(ctx context.Context, store history.Store, src storage.Source, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("stage: watching", slog.String("root", root))

	// seen maps relative path to the last classified fingerprint, so
	// rewriting a file with identical content fires the callback only
	// once.
	seen := make(map[string]string)

	// timers holds the per-path settle timer for an in-flight write
	// burst; a fired timer posts the path on settled. Both maps are
	// owned by the event loop.
	settled := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	schedule := func(rel string) {
		if t, ok := timers[rel]; ok {
			t.Reset(settleDelay)
			return
		}
		timers[rel] = time.AfterFunc(settleDelay, func() {
			select {
			case settled <- rel:
			case <-ctx.Done():
			}
		})
	}

	classify := func(rel string) {
		data, readErr := src.Read(rel)
		if readErr != nil {
			logger.Warn("stage: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		hash := fingerprint.Note(data)
		if seen[rel] == hash {
			return
		}
		seen[rel] = hash

		sum, clErr := history.Classify([]string{hash}, store)
		if clErr != nil {
			logger.Warn("stage: classify failed", slog.String("path", rel), slog.String("error", clErr.Error()))
			return
		}
		logger.Debug("stage: classified", slog.String("path", rel), slog.String("kind", sum.Kind))
		if cb != nil {
			cb(rel, sum.Kind)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stage: stopped")
			return nil

		case rel := <-settled:
			delete(timers, rel)
			classify(rel)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("stage: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					classifyDir(root, absPath, schedule)
					continue
				}
			}

			if !strings.HasSuffix(strings.ToLower(absPath), ".html") {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if t, ok := timers[rel]; ok {
					t.Stop()
					delete(timers, rel)
				}
				delete(seen, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("stage: error", slog.String("error", watchErr.Error()))
		}
	}
}

// classifyDir schedules any .html files found in a newly created
// directory for classification.
func classifyDir(root, dirPath string, schedule func(rel string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".html") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		schedule(rel)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
