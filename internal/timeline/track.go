package timeline

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TrackID identifies a Track within a Timeline. IDs are never reused.
type TrackID uint64

// SegmentID identifies a Segment within its Track.
type SegmentID uint64

// TrackType distinguishes video and audio tracks.
type TrackType int

const (
	TrackVideo TrackType = iota
	TrackAudio
)

// String returns "video" or "audio".
func (t TrackType) String() string {
	if t == TrackAudio {
		return "audio"
	}
	return "video"
}

// MarshalJSON encodes the type as its string form.
func (t TrackType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "video" or "audio".
func (t *TrackType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "video":
		*t = TrackVideo
	case "audio":
		*t = TrackAudio
	default:
		return fmt.Errorf("unknown track type %q", s)
	}
	return nil
}

// Segment is one placement of a clip reference on a track: a half-open
// interval [Start, Start+Duration) in timeline time. The on-timeline
// duration may differ from the clip's trimmed duration when Speed != 1.
type Segment struct {
	ID       SegmentID    `json:"id"`
	ClipID   ClipID       `json:"clip_id"`
	Start    TimePoint    `json:"start"`
	Duration TimeDuration `json:"duration"`
	Speed    float64      `json:"speed"`
	Enabled  bool         `json:"enabled"`
	Name     string       `json:"name"`
}

// End returns the exclusive end of the segment's interval.
func (s Segment) End() TimePoint {
	return s.Start.Add(s.Duration)
}

// overlaps reports whether the half-open intervals of a and b intersect.
func overlaps(a, b Segment) bool {
	return a.Start.Before(b.End()) && b.Start.Before(a.End())
}

// Track is an ordered, non-overlapping sequence of segments. Every
// mutating method either succeeds and preserves the sorted/non-overlap
// invariants or fails and leaves the track unchanged.
type Track struct {
	id    TrackID
	typ   TrackType
	name  string
	muted bool
	solo  bool

	segments      []Segment // always sorted by Start
	nextSegmentID SegmentID
	lastAddedID   SegmentID
}

// NewTrack returns a track with the given ID and type. An empty name
// defaults to the type's display name.
func NewTrack(id TrackID, typ TrackType, name string) *Track {
	if name == "" {
		if typ == TrackAudio {
			name = "Audio"
		} else {
			name = "Video"
		}
	}
	return &Track{id: id, typ: typ, name: name, nextSegmentID: 1}
}

// ID returns the track's identifier.
func (t *Track) ID() TrackID { return t.id }

// Type returns the track's type.
func (t *Track) Type() TrackType { return t.typ }

// Name returns the track's display name.
func (t *Track) Name() string { return t.name }

// SetName updates the track's display name.
func (t *Track) SetName(name string) { t.name = name }

// Muted reports whether the track is muted.
func (t *Track) Muted() bool { return t.muted }

// SetMuted updates the muted flag.
func (t *Track) SetMuted(m bool) { t.muted = m }

// Solo reports whether the track is soloed.
func (t *Track) Solo() bool { return t.solo }

// SetSolo updates the solo flag.
func (t *Track) SetSolo(s bool) { t.solo = s }

// Segments returns a copy of the track's segments, sorted by start time.
func (t *Track) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Len returns the number of segments on the track.
func (t *Track) Len() int { return len(t.segments) }

// GenerateSegmentID allocates and returns a fresh segment ID.
func (t *Track) GenerateSegmentID() SegmentID {
	id := t.nextSegmentID
	t.nextSegmentID++
	return id
}

// LastAddedSegmentID returns the ID assigned by the most recent successful
// AddSegment, for callers that need it without a second lookup.
func (t *Track) LastAddedSegmentID() SegmentID { return t.lastAddedID }

// AddSegment inserts seg, rejecting any overlap with an existing segment.
// A zero seg.ID gets a freshly allocated ID; an explicit ID advances the
// allocator past it so reloaded IDs never collide with future ones.
func (t *Track) AddSegment(seg Segment) bool {
	for _, existing := range t.segments {
		if overlaps(seg, existing) {
			return false
		}
	}

	if seg.ID == 0 {
		seg.ID = t.GenerateSegmentID()
	} else if seg.ID >= t.nextSegmentID {
		t.nextSegmentID = seg.ID + 1
	}

	t.segments = append(t.segments, seg)
	t.lastAddedID = seg.ID
	t.sortSegments()
	return true
}

// RemoveSegment deletes the segment with the given ID. Remaining segments
// keep their order.
func (t *Track) RemoveSegment(id SegmentID) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.segments = append(t.segments[:i], t.segments[i+1:]...)
	return true
}

// MoveSegment changes a segment's start time. The new position is applied
// speculatively and reverted if it would overlap any other segment, so a
// failed move leaves the track exactly as it was.
func (t *Track) MoveSegment(id SegmentID, newStart TimePoint) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}

	oldStart := t.segments[i].Start
	t.segments[i].Start = newStart

	for j := range t.segments {
		if j == i {
			continue
		}
		if overlaps(t.segments[i], t.segments[j]) {
			t.segments[i].Start = oldStart
			return false
		}
	}

	t.sortSegments()
	return true
}

// SplitSegment cuts a segment in two at splitTime, which must fall strictly
// inside the segment. The original keeps its ID and is shortened to end at
// the cut; the remainder becomes a new segment with a fresh ID and the same
// clip reference, speed, enabled flag, and name.
func (t *Track) SplitSegment(id SegmentID, splitTime TimePoint) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}

	original := &t.segments[i]
	if splitTime.Cmp(original.Start) <= 0 || splitTime.Cmp(original.End()) >= 0 {
		return false
	}

	second := *original
	second.ID = t.GenerateSegmentID()
	second.Start = splitTime
	second.Duration = original.End().Sub(splitTime)

	original.Duration = splitTime.Sub(original.Start)

	t.segments = append(t.segments, second)
	t.sortSegments()
	return true
}

// TrimSegment sets a segment's start and duration directly. Used by trim
// edits where the caller has already decided the final extents.
func (t *Track) TrimSegment(id SegmentID, newStart TimePoint, newDuration TimeDuration) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.segments[i].Start = newStart
	t.segments[i].Duration = newDuration
	t.sortSegments()
	return true
}

// InsertGap shifts every segment starting at or after the given point later
// by duration. It cannot create overlaps and always succeeds.
func (t *Track) InsertGap(at TimePoint, duration TimeDuration) bool {
	for i := range t.segments {
		if t.segments[i].Start.Cmp(at) >= 0 {
			t.segments[i].Start = t.segments[i].Start.Add(duration)
		}
	}
	return true
}

// DeleteRange removes the half-open range [start, start+duration) from the
// track. Segments fully inside the range are removed; a segment straddling
// the left boundary keeps only its leading part (cut at start, not split);
// a segment straddling the right boundary has its head cut to the range
// end. With ripple, segments at or after the range end shift earlier by
// duration to close the gap.
func (t *Track) DeleteRange(start TimePoint, duration TimeDuration, ripple bool) bool {
	end := start.Add(duration)

	kept := t.segments[:0]
	for _, seg := range t.segments {
		if seg.Start.Cmp(start) >= 0 && seg.End().Cmp(end) <= 0 {
			continue
		}
		kept = append(kept, seg)
	}
	t.segments = kept

	for i := range t.segments {
		seg := &t.segments[i]
		segEnd := seg.End()

		if seg.Start.Before(start) && segEnd.After(start) {
			seg.Duration = start.Sub(seg.Start)
		} else if seg.Start.Before(end) && segEnd.After(end) {
			trimmed := end.Sub(seg.Start)
			seg.Start = end
			seg.Duration = seg.Duration.Sub(trimmed)
		}
	}

	if ripple {
		for i := range t.segments {
			if t.segments[i].Start.Cmp(end) >= 0 {
				t.segments[i].Start = t.segments[i].Start.Add(duration.Neg())
			}
		}
	}

	return true
}

// FindSegment returns a copy of the segment with the given ID.
func (t *Track) FindSegment(id SegmentID) (Segment, bool) {
	i := t.indexOf(id)
	if i < 0 {
		return Segment{}, false
	}
	return t.segments[i], true
}

// SegmentsInRange returns copies of every segment whose interval intersects
// the half-open range [start, end).
func (t *Track) SegmentsInRange(start, end TimePoint) []Segment {
	var out []Segment
	probe := Segment{Start: start, Duration: end.Sub(start)}
	for _, seg := range t.segments {
		if overlaps(seg, probe) {
			out = append(out, seg)
		}
	}
	return out
}

// SegmentAt returns a copy of the segment covering the given instant.
func (t *Track) SegmentAt(at TimePoint) (Segment, bool) {
	for _, seg := range t.segments {
		if at.Cmp(seg.Start) >= 0 && at.Before(seg.End()) {
			return seg, true
		}
	}
	return Segment{}, false
}

func (t *Track) indexOf(id SegmentID) int {
	for i := range t.segments {
		if t.segments[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Track) sortSegments() {
	sort.Slice(t.segments, func(i, j int) bool {
		return t.segments[i].Start.Cmp(t.segments[j].Start) < 0
	})
}

// validateNoOverlap is the invariant check: no two segments on the track
// may intersect.
func (t *Track) validateNoOverlap() bool {
	for i := 0; i < len(t.segments); i++ {
		for j := i + 1; j < len(t.segments); j++ {
			if overlaps(t.segments[i], t.segments[j]) {
				return false
			}
		}
	}
	return true
}

// clone returns a deep copy of the track for snapshots and track-removal
// undo state.
func (t *Track) clone() *Track {
	cp := &Track{
		id:            t.id,
		typ:           t.typ,
		name:          t.name,
		muted:         t.muted,
		solo:          t.solo,
		nextSegmentID: t.nextSegmentID,
		lastAddedID:   t.lastAddedID,
	}
	cp.segments = make([]Segment, len(t.segments))
	copy(cp.segments, t.segments)
	return cp
}
