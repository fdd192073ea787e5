package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"timeline-editor/internal/commands"
	"timeline-editor/internal/timeline"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	tl := timeline.New(nil)
	history := commands.NewHistory(0, nil)
	svc := NewService(tl, history, 0, nil)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandler(svc, log, nil)
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createTrack(t *testing.T, r http.Handler) uint64 {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/tracks", map[string]any{"type": "video"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create track: expected 201, got %d", rec.Code)
	}
	var resp map[string]uint64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode track response: %v", err)
	}
	return resp["track_id"]
}

func createSegment(t *testing.T, r http.Handler, trackID uint64, startUS, durUS int64) uint64 {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/tracks/%d/segments", trackID), map[string]any{
		"start":    map[string]int64{"num": startUS, "den": 1_000_000},
		"duration": map[string]int64{"num": durUS, "den": 1_000_000},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create segment: expected 201, got %d", rec.Code)
	}
	var resp map[string]uint64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode segment response: %v", err)
	}
	return resp["segment_id"]
}

func TestHandler_AddTrack(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)

	rec := doJSON(t, r, http.MethodPost, "/tracks", map[string]any{"type": "audio", "name": "Music"})
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/tracks", "not an object")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestHandler_InsertSegment_conflict(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)

	createSegment(t, r, trackID, 0, 1_000_000)

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/tracks/%d/segments", trackID), map[string]any{
		"start":    map[string]int64{"num": 500_000, "den": 1_000_000},
		"duration": map[string]int64{"num": 1_000_000, "den": 1_000_000},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for overlapping segment, got %d", rec.Code)
	}
}

func TestHandler_RemoveSegment(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)
	segID := createSegment(t, r, trackID, 0, 1_000_000)

	path := fmt.Sprintf("/tracks/%d/segments/%d", trackID, segID)
	rec := doJSON(t, r, http.MethodDelete, path, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodDelete, path, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing segment, got %d", rec.Code)
	}
}

func TestHandler_MoveSegment(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)
	segID := createSegment(t, r, trackID, 0, 1_000_000)
	createSegment(t, r, trackID, 2_000_000, 1_000_000)

	move := func(toUS int64) *httptest.ResponseRecorder {
		return doJSON(t, r, http.MethodPost, fmt.Sprintf("/segments/%d/move", segID), map[string]any{
			"from_track": trackID,
			"to_track":   trackID,
			"from":       map[string]int64{"num": 0, "den": 1_000_000},
			"to":         map[string]int64{"num": toUS, "den": 1_000_000},
		})
	}

	if rec := move(4_000_000); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid move, got %d", rec.Code)
	}
	// Back where it was so the second attempt overlaps the other segment.
	if rec := doJSON(t, r, http.MethodPost, "/undo", nil); rec.Code != http.StatusOK {
		t.Fatalf("undo: expected 200, got %d", rec.Code)
	}
	if rec := move(2_500_000); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for overlapping move, got %d", rec.Code)
	}
}

func TestHandler_SplitAndTrim(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)
	segID := createSegment(t, r, trackID, 0, 2_000_000)

	rec := doJSON(t, r, http.MethodPost, fmt.Sprintf("/segments/%d/split", segID), map[string]any{
		"at": map[string]int64{"num": 1_000_000, "den": 1_000_000},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("split: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, fmt.Sprintf("/segments/%d/split", segID), map[string]any{
		"at": map[string]int64{"num": 0, "den": 1},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("split at boundary: expected 409, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/segments/99999/trim", map[string]any{
		"start":    map[string]int64{"num": 0, "den": 1},
		"duration": map[string]int64{"num": 1, "den": 1},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("trim of missing segment: expected 409, got %d", rec.Code)
	}
}

func TestHandler_UndoRedo(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)

	if rec := doJSON(t, r, http.MethodPost, "/undo", nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 with empty history, got %d", rec.Code)
	}

	createTrack(t, r)

	if rec := doJSON(t, r, http.MethodPost, "/undo", nil); rec.Code != http.StatusOK {
		t.Errorf("undo: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPost, "/redo", nil); rec.Code != http.StatusOK {
		t.Errorf("redo: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodPost, "/redo", nil); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 at end of history, got %d", rec.Code)
	}
}

func TestHandler_GetHistory(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	createTrack(t, r)

	rec := doJSON(t, r, http.MethodGet, "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		CanUndo         bool   `json:"can_undo"`
		CanRedo         bool   `json:"can_redo"`
		UndoDescription string `json:"undo_description"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if !resp.CanUndo || resp.CanRedo {
		t.Errorf("unexpected history state: %+v", resp)
	}
	if resp.UndoDescription != "Add video track" {
		t.Errorf("unexpected undo description %q", resp.UndoDescription)
	}
}

func TestHandler_Clips(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)

	rec := doJSON(t, r, http.MethodPost, "/clips", map[string]any{
		"name": "Interview",
		"source": map[string]any{
			"path":     "/media/interview.mp4",
			"duration": map[string]int64{"num": 10_000_000, "den": 1_000_000},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]uint64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode clip response: %v", err)
	}

	rec = doJSON(t, r, http.MethodPost, "/clips", map[string]any{"name": "no source"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing path, got %d", rec.Code)
	}

	path := fmt.Sprintf("/clips/%d", resp["clip_id"])
	if rec := doJSON(t, r, http.MethodDelete, path, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, r, http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing clip, got %d", rec.Code)
	}
}

func TestHandler_GlobalEdits(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)
	createSegment(t, r, trackID, 1_000_000, 1_000_000)

	rec := doJSON(t, r, http.MethodPost, "/edits/insert-gap", map[string]any{
		"at":       map[string]int64{"num": 0, "den": 1},
		"duration": map[string]int64{"num": 500_000, "den": 1_000_000},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("insert-gap: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/edits/delete-range", map[string]any{
		"start":    map[string]int64{"num": 0, "den": 1},
		"duration": map[string]int64{"num": 500_000, "den": 1_000_000},
		"ripple":   true,
	})
	if rec.Code != http.StatusOK {
		t.Errorf("delete-range: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/timeline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: expected 200, got %d", rec.Code)
	}
	var snap timeline.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Tracks) != 1 || len(snap.Tracks[0].Segments) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", snap.Tracks)
	}
	if !snap.Tracks[0].Segments[0].Start.Equal(timeline.NewTimePoint(1_000_000, 1_000_000)) {
		t.Errorf("gap then rippled delete should cancel out, got %+v", snap.Tracks[0].Segments[0].Start)
	}
}

func TestHandler_ProjectRoundTrip(t *testing.T) {
	h := newTestHandler(t)
	r := newTestRouter(h)
	trackID := createTrack(t, r)
	createSegment(t, r, trackID, 0, 1_000_000)

	export := doJSON(t, r, http.MethodGet, "/project", nil)
	if export.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", export.Code)
	}

	// Import into a fresh server.
	h2 := newTestHandler(t)
	r2 := newTestRouter(h2)

	req := httptest.NewRequest(http.MethodPut, "/project", bytes.NewReader(export.Body.Bytes()))
	rec := httptest.NewRecorder()
	r2.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d", rec.Code)
	}

	snapRec := doJSON(t, r2, http.MethodGet, "/timeline", nil)
	var snap timeline.Snapshot
	if err := json.NewDecoder(snapRec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Tracks) != 1 || len(snap.Tracks[0].Segments) != 1 {
		t.Errorf("imported project lost state: %+v", snap.Tracks)
	}

	bad := httptest.NewRequest(http.MethodPut, "/project", bytes.NewReader([]byte("{broken")))
	badRec := httptest.NewRecorder()
	r2.ServeHTTP(badRec, bad)
	if badRec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for broken project, got %d", badRec.Code)
	}
}
