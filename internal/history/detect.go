package history

import (
	"errors"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/fingerprint"
)

// Classification of a selection against the persisted run history.
const (
	ClassNew          = "none-duplicate"
	ClassAllDuplicate = "all-duplicate"
	ClassPartial      = "partial-duplicate"
)

// Summary describes how a selection overlaps with previously converted
// notes. ExactRun is set when the whole selection's batch fingerprint
// matches a prior run exactly.
type Summary struct {
	Total    int        `json:"total"`
	Existing int        `json:"existing"`
	New      int        `json:"new"`
	Kind     string     `json:"kind"`
	ExactRun *RunRecord `json:"exactRun,omitempty"`
}

// Classify compares the note fingerprints of a selection against the union
// of fingerprints across all recorded runs. Identity is purely
// content-based: filenames and modification times play no part.
func Classify(hashes []string, store Store) (Summary, error) {
	s := Summary{Total: len(hashes), Kind: ClassNew}

	known, err := store.KnownNoteHashes()
	if err != nil {
		return s, err
	}

	for _, h := range hashes {
		if _, ok := known[h]; ok {
			s.Existing++
		}
	}
	s.New = s.Total - s.Existing

	switch {
	case s.Total == 0 || s.Existing == 0:
		s.Kind = ClassNew
	case s.Existing == s.Total:
		s.Kind = ClassAllDuplicate
	default:
		s.Kind = ClassPartial
	}

	if s.Kind == ClassAllDuplicate {
		rec, err := store.FindRunByBatchHash(fingerprint.Batch(hashes))
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return s, err
		}
		s.ExactRun = rec
	}

	return s, nil
}
