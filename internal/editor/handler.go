package editor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"timeline-editor/internal/platform/metrics"
	"timeline-editor/internal/timeline"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the edit engine over HTTP using go-chi. It is a producer
// of edit commands and a consumer of snapshots; the core never sees it.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording.
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts every editor endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/timeline", h.GetTimeline)
	r.Get("/history", h.GetHistory)
	r.Post("/undo", h.Undo)
	r.Post("/redo", h.Redo)

	r.Post("/tracks", h.AddTrack)
	r.Delete("/tracks/{track_id}", h.RemoveTrack)
	r.Post("/tracks/{track_id}/segments", h.InsertSegment)
	r.Delete("/tracks/{track_id}/segments/{segment_id}", h.RemoveSegment)

	r.Post("/segments/{segment_id}/move", h.MoveSegment)
	r.Post("/segments/{segment_id}/split", h.SplitSegment)
	r.Post("/segments/{segment_id}/trim", h.TrimSegment)

	r.Post("/clips", h.AddClip)
	r.Delete("/clips/{clip_id}", h.RemoveClip)

	r.Post("/edits/insert-gap", h.InsertGap)
	r.Post("/edits/delete-range", h.DeleteRange)

	r.Get("/project", h.ExportProject)
	r.Put("/project", h.ImportProject)
}

func (h *Handler) editResult(w http.ResponseWriter, ok bool) {
	if !ok {
		if h.metrics != nil {
			h.metrics.IncEditsRejected()
		}
		w.WriteHeader(http.StatusConflict)
		return
	}
	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func urlID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

// GetTimeline handles GET /timeline, returning a snapshot of the whole
// timeline as JSON.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// GetHistory handles GET /history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"can_undo":         h.svc.CanUndo(),
		"can_redo":         h.svc.CanRedo(),
		"undo_description": h.svc.UndoDescription(),
		"redo_description": h.svc.RedoDescription(),
	})
}

// Undo handles POST /undo. Responds 409 when there is nothing to undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Undo() {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if h.metrics != nil {
		h.metrics.IncUndos()
	}
	w.WriteHeader(http.StatusOK)
}

// Redo handles POST /redo. Responds 409 when there is nothing to redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Redo() {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if h.metrics != nil {
		h.metrics.IncRedos()
	}
	w.WriteHeader(http.StatusOK)
}

// AddTrack handles POST /tracks.
// Body: { "type": "video", "name": "Main" } (name optional).
func (h *Handler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type timeline.TrackType `json:"type"`
		Name string             `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid track body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, ok := h.svc.AddTrack(body.Type, body.Name)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"track_id": uint64(id)})
}

// RemoveTrack handles DELETE /tracks/{track_id}.
func (h *Handler) RemoveTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "track_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !h.svc.RemoveTrack(timeline.TrackID(id)) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	w.WriteHeader(http.StatusOK)
}

// InsertSegment handles POST /tracks/{track_id}/segments.
// Body: { "clip_id": 1, "start": {"num":0,"den":1},
// "duration": {"num":1000000,"den":1000000}, "name": "intro" }.
func (h *Handler) InsertSegment(w http.ResponseWriter, r *http.Request) {
	trackID, ok := urlID(r, "track_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		ClipID   uint64                `json:"clip_id"`
		Start    timeline.TimePoint    `json:"start"`
		Duration timeline.TimeDuration `json:"duration"`
		Speed    float64               `json:"speed"`
		Name     string                `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid segment body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Speed == 0 {
		body.Speed = 1.0
	}

	seg := timeline.Segment{
		ClipID:   timeline.ClipID(body.ClipID),
		Duration: body.Duration,
		Speed:    body.Speed,
		Enabled:  true,
		Name:     body.Name,
	}
	segID, ok := h.svc.InsertSegment(timeline.TrackID(trackID), seg, body.Start)
	if !ok {
		if h.metrics != nil {
			h.metrics.IncEditsRejected()
		}
		h.log.Info("segment insert rejected",
			slog.Uint64("track_id", trackID),
			slog.String("name", body.Name))
		w.WriteHeader(http.StatusConflict)
		return
	}

	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"segment_id": uint64(segID)})
}

// RemoveSegment handles DELETE /tracks/{track_id}/segments/{segment_id}.
func (h *Handler) RemoveSegment(w http.ResponseWriter, r *http.Request) {
	trackID, ok1 := urlID(r, "track_id")
	segID, ok2 := urlID(r, "segment_id")
	if !ok1 || !ok2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !h.svc.RemoveSegment(timeline.TrackID(trackID), timeline.SegmentID(segID)) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	w.WriteHeader(http.StatusOK)
}

// MoveSegment handles POST /segments/{segment_id}/move.
// Body: { "from_track": 1, "to_track": 1, "from": {...}, "to": {...} }.
func (h *Handler) MoveSegment(w http.ResponseWriter, r *http.Request) {
	segID, ok := urlID(r, "segment_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		FromTrack uint64             `json:"from_track"`
		ToTrack   uint64             `json:"to_track"`
		From      timeline.TimePoint `json:"from"`
		To        timeline.TimePoint `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.editResult(w, h.svc.MoveSegment(
		timeline.SegmentID(segID),
		timeline.TrackID(body.FromTrack), timeline.TrackID(body.ToTrack),
		body.From, body.To))
}

// SplitSegment handles POST /segments/{segment_id}/split.
// Body: { "at": {"num":500000,"den":1000000} }.
func (h *Handler) SplitSegment(w http.ResponseWriter, r *http.Request) {
	segID, ok := urlID(r, "segment_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		At timeline.TimePoint `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.editResult(w, h.svc.SplitSegment(timeline.SegmentID(segID), body.At))
}

// TrimSegment handles POST /segments/{segment_id}/trim.
// Body: { "start": {...}, "duration": {...} }.
func (h *Handler) TrimSegment(w http.ResponseWriter, r *http.Request) {
	segID, ok := urlID(r, "segment_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		Start    timeline.TimePoint    `json:"start"`
		Duration timeline.TimeDuration `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.editResult(w, h.svc.TrimSegment(timeline.SegmentID(segID), body.Start, body.Duration))
}

// AddClip handles POST /clips. The caller supplies an already-probed source
// descriptor; the commit itself is instant.
// Body: { "name": "intro", "source": { "path": "...", "duration": {...} } }.
func (h *Handler) AddClip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string               `json:"name"`
		Source timeline.MediaSource `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid clip body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Source.Path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id := h.svc.CommitClip(timeline.PreparedClip{Source: &body.Source, Name: body.Name})
	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"clip_id": uint64(id)})
}

// RemoveClip handles DELETE /clips/{clip_id}.
func (h *Handler) RemoveClip(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "clip_id")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !h.svc.RemoveClip(timeline.ClipID(id)) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if h.metrics != nil {
		h.metrics.IncEdits()
	}
	w.WriteHeader(http.StatusOK)
}

// InsertGap handles POST /edits/insert-gap.
// Body: { "at": {...}, "duration": {...} }.
func (h *Handler) InsertGap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		At       timeline.TimePoint    `json:"at"`
		Duration timeline.TimeDuration `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.editResult(w, h.svc.InsertGapAllTracks(body.At, body.Duration))
}

// DeleteRange handles POST /edits/delete-range.
// Body: { "start": {...}, "duration": {...}, "ripple": true }.
func (h *Handler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start    timeline.TimePoint    `json:"start"`
		Duration timeline.TimeDuration `json:"duration"`
		Ripple   bool                  `json:"ripple"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.editResult(w, h.svc.DeleteRangeAllTracks(body.Start, body.Duration, body.Ripple))
}

// ExportProject handles GET /project, streaming the project JSON.
func (h *Handler) ExportProject(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.svc.SaveProject(w); err != nil {
		h.log.Error("project export failed", slog.String("error", err.Error()))
	}
}

// ImportProject handles PUT /project, replacing the timeline with the
// project document in the request body.
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LoadProject(r.Body); err != nil {
		h.log.Error("project import failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}
