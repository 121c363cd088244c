package runservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

func testService(t *testing.T) (*Service, string, string, *history.DB) {
	t.Helper()
	srcDir, src := testutil.TestDir(t)
	vaultDir, vault := testutil.TestDir(t)
	db := testutil.TestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(src, vault, db, log), srcDir, vaultDir, db
}

func defaultRequest() Request {
	return Request{
		Naming:     models.DefaultNamingOptions(),
		Formatting: models.DefaultFormattingOptions(),
	}
}

func TestLoadBatch_AllFiles(t *testing.T) {
	svc, srcDir, _, _ := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body a")
	testutil.WriteKeepNote(t, srcDir, "b.html", "Jul 28 2024 10:00:00 AM", "B", "body b")

	batch, _, err := svc.LoadBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 files, got %d", len(batch))
	}
	for _, f := range batch {
		if f.Hash == "" || len(f.Data) == 0 {
			t.Errorf("file %s not loaded: hash=%q len=%d", f.Path, f.Hash, len(f.Data))
		}
	}
	if batch[0].Hash == batch[1].Hash {
		t.Error("distinct notes should have distinct fingerprints")
	}
}

func TestLoadBatch_Selection(t *testing.T) {
	svc, srcDir, _, _ := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")
	testutil.WriteKeepNote(t, srcDir, "b.html", "Jul 28 2024 10:00:00 AM", "B", "body")

	batch, _, err := svc.LoadBatch(context.Background(), []string{"b.html"})
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(batch) != 1 || batch[0].Path != "b.html" {
		t.Fatalf("batch = %+v", batch)
	}
}

func TestConvert_WritesVaultAndRecordsRun(t *testing.T) {
	svc, srcDir, vaultDir, db := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Grocery List", "Milk")

	res, err := svc.Convert(context.Background(), defaultRequest())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("expected 1 converted file, got %d", len(res.Outcome.Files))
	}
	if res.RunID == 0 {
		t.Error("expected a recorded run id")
	}

	want := "2024-07-27 - Grocery List.md"
	data, err := os.ReadFile(vaultDir + "/" + want)
	if err != nil {
		t.Fatalf("vault file missing: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Grocery List\n") {
		t.Errorf("vault content:\n%s", data)
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].FileCount != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Naming == nil || runs[0].Naming.DateFormat != "yyyy-MM-dd" {
		t.Errorf("run options not recorded: %+v", runs[0].Naming)
	}
}

func TestConvert_PreviewWritesNothing(t *testing.T) {
	svc, srcDir, vaultDir, db := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")

	req := defaultRequest()
	req.Preview = true
	res, err := svc.Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("preview should still convert: %+v", res.Outcome)
	}
	if res.RunID != 0 {
		t.Error("preview must not record a run")
	}

	entries, _ := os.ReadDir(vaultDir)
	if len(entries) != 0 {
		t.Errorf("preview wrote to vault: %v", entries)
	}
	runs, _ := db.ListRuns()
	if len(runs) != 0 {
		t.Errorf("preview recorded a run: %+v", runs)
	}
}

func TestConvert_OnlyNewSkipsKnownNotes(t *testing.T) {
	svc, srcDir, _, _ := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "First", "body")

	if _, err := svc.Convert(context.Background(), defaultRequest()); err != nil {
		t.Fatalf("first Convert: %v", err)
	}

	testutil.WriteKeepNote(t, srcDir, "b.html", "Jul 28 2024 10:00:00 AM", "Second", "body")

	req := defaultRequest()
	req.OnlyNew = true
	res, err := svc.Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("second Convert: %v", err)
	}
	if res.Summary.Kind != history.ClassPartial {
		t.Errorf("summary kind = %q, want partial", res.Summary.Kind)
	}
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("expected only the new note, got %d files", len(res.Outcome.Files))
	}
	if !strings.Contains(res.Outcome.Files[0].NewPath, "Second") {
		t.Errorf("converted %q, want the new note", res.Outcome.Files[0].NewPath)
	}
}

func TestConvert_AllDuplicateReportsExactRun(t *testing.T) {
	svc, srcDir, _, _ := testService(t)
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")

	first, err := svc.Convert(context.Background(), defaultRequest())
	if err != nil {
		t.Fatalf("first Convert: %v", err)
	}

	req := defaultRequest()
	req.Preview = true
	second, err := svc.Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("second Convert: %v", err)
	}
	if second.Summary.Kind != history.ClassAllDuplicate {
		t.Fatalf("kind = %q, want all-duplicate", second.Summary.Kind)
	}
	if second.Summary.ExactRun == nil || second.Summary.ExactRun.ID != first.RunID {
		t.Errorf("exact run = %+v, want run %d", second.Summary.ExactRun, first.RunID)
	}
}

func TestConvert_EmptyBatchRecordsNothing(t *testing.T) {
	svc, _, _, db := testService(t)

	res, err := svc.Convert(context.Background(), defaultRequest())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.RunID != 0 || len(res.Outcome.Files) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	runs, _ := db.ListRuns()
	if len(runs) != 0 {
		t.Errorf("empty run recorded: %+v", runs)
	}
}

func TestConvert_SkippedFilesExcludedFromRecord(t *testing.T) {
	svc, srcDir, _, db := testService(t)
	testutil.WriteKeepNote(t, srcDir, "good.html", "Jul 27 2024 10:00:00 AM", "Good", "body")
	if err := os.WriteFile(srcDir+"/empty.html", nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Convert(context.Background(), defaultRequest())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outcome.Files) != 1 || len(res.Outcome.Skipped) != 1 {
		t.Fatalf("outcome = %+v", res.Outcome)
	}

	runs, _ := db.ListRuns()
	if len(runs) != 1 || len(runs[0].NoteHashes) != 1 {
		t.Fatalf("runs = %+v, want one run with one hash", runs)
	}
}

func TestConvert_UnreadableFileDoesNotAbortRun(t *testing.T) {
	svc, srcDir, vaultDir, db := testService(t)
	testutil.WriteKeepNote(t, srcDir, "good.html", "Jul 27 2024 10:00:00 AM", "Good", "body")

	req := defaultRequest()
	req.Paths = []string{"good.html", "missing.html"}
	res, err := svc.Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("files = %+v, want the readable note converted", res.Outcome.Files)
	}
	if len(res.Outcome.Skipped) != 1 || res.Outcome.Skipped[0].Path != "missing.html" {
		t.Fatalf("skipped = %+v, want missing.html", res.Outcome.Skipped)
	}
	if res.Outcome.Skipped[0].Err == nil {
		t.Error("skip carries no error")
	}
	if _, err := os.Stat(vaultDir + "/2024-07-27 - Good.md"); err != nil {
		t.Errorf("converted note not written: %v", err)
	}
	runs, _ := db.ListRuns()
	if len(runs) != 1 || len(runs[0].NoteHashes) != 1 {
		t.Fatalf("runs = %+v, want one run covering only the converted note", runs)
	}
}

// brokenHistory fails every read; writes still reach the underlying store.
type brokenHistory struct {
	*history.DB
}

func (b brokenHistory) KnownNoteHashes() (map[string]struct{}, error) {
	return nil, errors.New("disk on fire")
}

func TestConvert_HistoryReadFailureIsNonFatal(t *testing.T) {
	srcDir, src := testutil.TestDir(t)
	vaultDir, vault := testutil.TestDir(t)
	db := testutil.TestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(src, vault, brokenHistory{db}, log)

	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "A", "body")

	req := defaultRequest()
	req.OnlyNew = true
	res, err := svc.Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("files = %+v, want the note converted without history", res.Outcome.Files)
	}
	if res.Summary.Kind != history.ClassNew || res.Summary.New != 1 {
		t.Errorf("summary = %+v, want everything treated as new", res.Summary)
	}
	if _, err := os.Stat(vaultDir + "/2024-07-27 - A.md"); err != nil {
		t.Errorf("converted note not written: %v", err)
	}
	if res.RunID == 0 {
		t.Error("run not recorded although the store accepts writes")
	}
}
