package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/runservice"
	"github.com/starford/raido/internal/testutil"
)

// testEnv sets up a temp source dir, vault, SQLite DB, service, and
// router for testing. An empty authToken disables auth.
func testEnv(t *testing.T, authToken string) (string, http.Handler) {
	t.Helper()

	srcDir, src := testutil.TestDir(t)
	_, vault := testutil.TestDir(t)
	db := testutil.TestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := runservice.New(src, vault, db, log)

	router := NewRouter(svc, db, authToken != "", authToken, nil, nil)
	return srcDir, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConvertAndListRuns(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")

	w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ConvertResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Outcome.Files) != 1 {
		t.Fatalf("outcome = %+v", res.Outcome)
	}
	if res.RunID == 0 {
		t.Error("expected recorded run id")
	}

	w = doJSON(t, router, http.MethodGet, "/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("runs status = %d", w.Code)
	}
	var list RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Runs) != 1 {
		t.Errorf("run list = %+v", list)
	}
}

func TestConvertPreview(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")

	w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{"preview": true})
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ConvertResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.RunID != 0 {
		t.Error("preview must not record a run")
	}

	w = doJSON(t, router, http.MethodGet, "/runs", nil)
	var list RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("preview recorded a run: %+v", list)
	}
}

func TestConvertPartialOptions(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")

	// Only useDate is flipped; everything else keeps its default.
	w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{
		"naming":  map[string]any{"useDate": false},
		"preview": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ConvertResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Outcome.Files) != 1 || res.Outcome.Files[0].NewPath != "Hello.md" {
		t.Errorf("outcome = %+v, want Hello.md", res.Outcome)
	}
}

func TestConvertInvalidOptions(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{
		"naming": map[string]any{"serialPadding": "00001"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConvertZip(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")

	w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{"zip": true})
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("content type = %q", ct)
	}
	if w.Header().Get("X-Raido-Run") == "" {
		t.Error("expected run id header")
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "2024-07-27 - Hello.md" {
		t.Errorf("zip entries = %v", zr.File)
	}
}

func TestCheck(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")

	w := doJSON(t, router, http.MethodPost, "/check", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("check status = %d, body = %s", w.Code, w.Body.String())
	}
	var sum CheckResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Kind != history.ClassNew || sum.Total != 1 {
		t.Errorf("summary = %+v", sum)
	}

	// Convert, then the same selection reads as all-duplicate.
	if w := doJSON(t, router, http.MethodPost, "/convert", map[string]any{}); w.Code != http.StatusOK {
		t.Fatalf("convert status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/check", map[string]any{})
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.Kind != history.ClassAllDuplicate {
		t.Errorf("kind = %q, want all-duplicate", sum.Kind)
	}
	if sum.ExactRun == nil {
		t.Error("expected exact run in summary")
	}
}

func TestClearRuns(t *testing.T) {
	srcDir, router := testEnv(t, "")
	testutil.WriteKeepNote(t, srcDir, "a.html", "Jul 27 2024 10:00:00 AM", "Hello", "World")
	_ = doJSON(t, router, http.MethodPost, "/convert", map[string]any{})

	w := doJSON(t, router, http.MethodDelete, "/runs", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/runs", nil)
	var list RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 0 {
		t.Errorf("history not cleared: %+v", list)
	}
}

func TestPresetLifecycle(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/presets/naming/short", PresetRequest{
		Options: json.RawMessage(`{"useDate":false}`),
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/presets/naming/short", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got struct {
		Kind    string          `json:"kind"`
		Name    string          `json:"name"`
		Options json.RawMessage `json:"options"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Kind != "naming" || got.Name != "short" {
		t.Errorf("preset = %+v", got)
	}

	w = doJSON(t, router, http.MethodGet, "/presets/naming", nil)
	var list PresetListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Presets) != 1 {
		t.Errorf("presets = %+v", list)
	}

	w = doJSON(t, router, http.MethodDelete, "/presets/naming/short", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/presets/naming/short", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", w.Code)
	}
}

func TestPresetValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/presets/formatting/bad", PresetRequest{
		Options: json.RawMessage(`{"checkboxStyle":"emoji"}`),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/presets/nonsense/x", PresetRequest{
		Options: json.RawMessage(`{}`),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", w.Code)
	}
}

func TestAuth(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
