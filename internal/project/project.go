// Package project is the persistence collaborator for the timeline core:
// a JSON project file holding the timeline name, frame rate, clips, tracks,
// and segments, with explicit IDs so a reload reproduces the saved state.
package project

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"timeline-editor/internal/timeline"
)

// File is the top-level JSON project document.
type File struct {
	Name      string            `json:"name"`
	FrameRate timeline.Rational `json:"frame_rate"`
	Clips     []ClipRecord      `json:"clips"`
	Tracks    []TrackRecord     `json:"tracks"`
}

// ClipRecord stores one media clip with its source descriptor.
type ClipRecord struct {
	ID     uint64               `json:"id"`
	Name   string               `json:"name"`
	In     timeline.TimePoint   `json:"in"`
	Out    timeline.TimePoint   `json:"out"`
	Source timeline.MediaSource `json:"source"`
}

// TrackRecord stores one track and its segments.
type TrackRecord struct {
	ID       uint64             `json:"id"`
	Type     timeline.TrackType `json:"type"`
	Name     string             `json:"name"`
	Muted    bool               `json:"muted,omitempty"`
	Solo     bool               `json:"solo,omitempty"`
	Segments []SegmentRecord    `json:"segments"`
}

// SegmentRecord stores one segment placement.
type SegmentRecord struct {
	ID       uint64                `json:"id"`
	ClipID   uint64                `json:"clip_id"`
	Start    timeline.TimePoint    `json:"start"`
	Duration timeline.TimeDuration `json:"duration"`
	Speed    float64               `json:"speed"`
	Enabled  bool                  `json:"enabled"`
	Name     string                `json:"name,omitempty"`
}

// Save writes the timeline as an indented JSON project document. Clips are
// emitted in ID order so output is deterministic.
func Save(w io.Writer, tl *timeline.Timeline) error {
	snap := tl.Snapshot()

	doc := File{
		Name:      snap.Name,
		FrameRate: snap.FrameRate,
	}

	clipIDs := make([]timeline.ClipID, 0, len(snap.Clips))
	for id := range snap.Clips {
		clipIDs = append(clipIDs, id)
	}
	sort.Slice(clipIDs, func(i, j int) bool { return clipIDs[i] < clipIDs[j] })

	for _, id := range clipIDs {
		clip := snap.Clips[id]
		rec := ClipRecord{
			ID:   uint64(clip.ID),
			Name: clip.Name,
			In:   clip.In,
			Out:  clip.Out,
		}
		if clip.Source != nil {
			rec.Source = *clip.Source
		}
		doc.Clips = append(doc.Clips, rec)
	}

	for _, track := range snap.Tracks {
		rec := TrackRecord{
			ID:    uint64(track.ID),
			Type:  track.Type,
			Name:  track.Name,
			Muted: track.Muted,
			Solo:  track.Solo,
		}
		for _, seg := range track.Segments {
			rec.Segments = append(rec.Segments, SegmentRecord{
				ID:       uint64(seg.ID),
				ClipID:   uint64(seg.ClipID),
				Start:    seg.Start,
				Duration: seg.Duration,
				Speed:    seg.Speed,
				Enabled:  seg.Enabled,
				Name:     seg.Name,
			})
		}
		doc.Tracks = append(doc.Tracks, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	return nil
}

// Load rebuilds a timeline from a JSON project document. Segments the
// overlap check rejects (a corrupt or hand-edited save) are logged and
// skipped; the load itself never aborts over them.
func Load(r io.Reader, log *slog.Logger) (*timeline.Timeline, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var doc File
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}

	tl := timeline.New(log)
	tl.SetName(doc.Name)
	if doc.FrameRate.Den > 0 {
		tl.SetFrameRate(doc.FrameRate)
	}

	for _, rec := range doc.Clips {
		src := rec.Source
		tl.AddClipWithID(timeline.ClipID(rec.ID), &src, rec.Name, rec.In, rec.Out)
	}

	for _, trec := range doc.Tracks {
		track := tl.AddTrackWithID(timeline.TrackID(trec.ID), trec.Type, trec.Name)
		track.SetMuted(trec.Muted)
		track.SetSolo(trec.Solo)

		for _, srec := range trec.Segments {
			speed := srec.Speed
			if speed == 0 {
				speed = 1.0
			}
			seg := timeline.Segment{
				ID:       timeline.SegmentID(srec.ID),
				ClipID:   timeline.ClipID(srec.ClipID),
				Start:    srec.Start,
				Duration: srec.Duration,
				Speed:    speed,
				Enabled:  srec.Enabled,
				Name:     srec.Name,
			}
			if !track.AddSegment(seg) {
				log.Warn("skipping segment that overlaps existing layout",
					slog.Uint64("track_id", trec.ID),
					slog.Uint64("segment_id", srec.ID))
			}
		}
	}

	return tl, nil
}

// SaveFile writes the project to the given path.
func SaveFile(path string, tl *timeline.Timeline) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create project file at %s: %w", path, err)
	}
	defer f.Close()

	if err := Save(f, tl); err != nil {
		return err
	}
	return f.Close()
}

// LoadFile reads the project from the given path.
func LoadFile(path string, log *slog.Logger) (*timeline.Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open project file at %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, log)
}
