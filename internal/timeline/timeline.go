package timeline

import (
	"fmt"
	"io"
	"log/slog"
)

// Selection is the set of tracks and segments the editor currently has
// selected, plus an optional in/out range.
type Selection struct {
	Tracks   []TrackID   `json:"tracks,omitempty"`
	Segments []SegmentID `json:"segments,omitempty"`
	In       TimePoint   `json:"in,omitempty"`
	Out      TimePoint   `json:"out,omitempty"`
	HasRange bool        `json:"has_range,omitempty"`
}

// Timeline owns an ordered list of tracks and an ID-keyed clip map. All
// mutation is synchronous and single-context; other contexts observe
// changes through the version counter and observer list, or read a
// point-in-time copy via Snapshot.
type Timeline struct {
	tracks []*Track
	clips  map[ClipID]*MediaClip

	frameRate Rational
	name      string

	nextTrackID TrackID
	nextClipID  ClipID

	playhead  TimePoint
	selection Selection

	version      uint64
	observers    map[int]func(version uint64)
	nextObserver int

	log *slog.Logger
}

// New returns an empty timeline. A nil logger disables logging.
func New(log *slog.Logger) *Timeline {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tl := &Timeline{
		clips:       make(map[ClipID]*MediaClip),
		frameRate:   Rational{Num: 30, Den: 1},
		name:        "Untitled Timeline",
		nextTrackID: 1,
		nextClipID:  1,
		version:     1,
		observers:   make(map[int]func(uint64)),
	}
	log.Debug("created new timeline", slog.String("name", tl.name))
	tl.log = log
	return tl
}

// Name returns the project name.
func (tl *Timeline) Name() string { return tl.name }

// SetName updates the project name.
func (tl *Timeline) SetName(name string) { tl.name = name }

// FrameRate returns the timeline frame rate.
func (tl *Timeline) FrameRate() Rational { return tl.frameRate }

// SetFrameRate updates the timeline frame rate.
func (tl *Timeline) SetFrameRate(r Rational) { tl.frameRate = r }

// Playhead returns the current playhead position.
func (tl *Timeline) Playhead() TimePoint { return tl.playhead }

// SetPlayhead updates the playhead position.
func (tl *Timeline) SetPlayhead(p TimePoint) { tl.playhead = p }

// Selection returns the current selection.
func (tl *Timeline) Selection() Selection { return tl.selection }

// SetSelection replaces the current selection.
func (tl *Timeline) SetSelection(s Selection) { tl.selection = s }

// Version returns the structural version counter. It starts at 1 and is
// bumped exactly once per logical mutation.
func (tl *Timeline) Version() uint64 { return tl.version }

// Subscribe registers fn to be called with the new version after every
// structural mutation. The returned token is passed to Unsubscribe.
func (tl *Timeline) Subscribe(fn func(version uint64)) int {
	token := tl.nextObserver
	tl.nextObserver++
	tl.observers[token] = fn
	return token
}

// Unsubscribe removes the observer registered under token.
func (tl *Timeline) Unsubscribe(token int) {
	delete(tl.observers, token)
}

// MarkModified bumps the version and notifies observers. Every structural
// mutation, whether performed by the timeline itself or by a command that
// mutates a track directly, calls this exactly once per logical operation.
func (tl *Timeline) MarkModified() {
	tl.version++
	for _, fn := range tl.observers {
		fn(tl.version)
	}
}

// AddTrack appends a new track of the given type and returns its ID. An
// empty name is auto-generated ("Video N" / "Audio N").
func (tl *Timeline) AddTrack(typ TrackType, name string) TrackID {
	id := tl.nextTrackID
	tl.nextTrackID++

	if name == "" {
		n := len(tl.TracksByType(typ)) + 1
		if typ == TrackAudio {
			name = fmt.Sprintf("Audio %d", n)
		} else {
			name = fmt.Sprintf("Video %d", n)
		}
	}

	tl.tracks = append(tl.tracks, NewTrack(id, typ, name))

	tl.log.Info("added track", slog.String("name", name), slog.Uint64("track_id", uint64(id)))
	tl.MarkModified()
	return id
}

// AddTrackWithID appends a track with an explicitly supplied ID, advancing
// the allocator past it. Used by the persistence collaborator so reloaded
// track IDs match the saved file.
func (tl *Timeline) AddTrackWithID(id TrackID, typ TrackType, name string) *Track {
	if id >= tl.nextTrackID {
		tl.nextTrackID = id + 1
	}
	track := NewTrack(id, typ, name)
	tl.tracks = append(tl.tracks, track)
	tl.MarkModified()
	return track
}

// RemoveTrack deletes the track with the given ID.
func (tl *Timeline) RemoveTrack(id TrackID) bool {
	i := tl.trackIndex(id)
	if i < 0 {
		return false
	}

	name := tl.tracks[i].Name()
	tl.tracks = append(tl.tracks[:i], tl.tracks[i+1:]...)

	tl.log.Info("removed track", slog.String("name", name), slog.Uint64("track_id", uint64(id)))
	tl.MarkModified()
	return true
}

// RestoreTrack reinserts a previously removed track at the given position,
// clamping the index to the current track count. Used by track-removal undo
// so the track comes back exactly where it was.
func (tl *Timeline) RestoreTrack(track *Track, index int) {
	if track.ID() >= tl.nextTrackID {
		tl.nextTrackID = track.ID() + 1
	}
	if index < 0 {
		index = 0
	}
	if index > len(tl.tracks) {
		index = len(tl.tracks)
	}
	tl.tracks = append(tl.tracks, nil)
	copy(tl.tracks[index+1:], tl.tracks[index:])
	tl.tracks[index] = track
	tl.MarkModified()
}

// Track returns the track with the given ID, or nil.
func (tl *Timeline) Track(id TrackID) *Track {
	i := tl.trackIndex(id)
	if i < 0 {
		return nil
	}
	return tl.tracks[i]
}

// TrackIndex returns the position of the track in the ordered list, or -1.
func (tl *Timeline) TrackIndex(id TrackID) int { return tl.trackIndex(id) }

// Tracks returns the ordered track list. Callers must not modify the slice.
func (tl *Timeline) Tracks() []*Track { return tl.tracks }

// TracksByType returns the tracks of the given type, in timeline order.
func (tl *Timeline) TracksByType(typ TrackType) []*Track {
	var out []*Track
	for _, t := range tl.tracks {
		if t.Type() == typ {
			out = append(out, t)
		}
	}
	return out
}

// AddClip creates a clip spanning the whole source and returns its ID. An
// empty name defaults to the source path.
func (tl *Timeline) AddClip(source *MediaSource, name string) ClipID {
	id := tl.nextClipID
	tl.nextClipID++

	if name == "" {
		name = source.Path
	}
	tl.clips[id] = &MediaClip{
		ID:     id,
		Source: source,
		In:     TimePoint{Num: 0, Den: 1},
		Out:    TimePoint{Num: source.Duration.Num, Den: source.Duration.Den},
		Name:   name,
	}

	tl.log.Info("added clip", slog.String("name", name), slog.Uint64("clip_id", uint64(id)))
	tl.MarkModified()
	return id
}

// CommitPreparedClip stores a clip whose expensive preparation (probing,
// hashing) already happened elsewhere. The commit itself is O(1) and does
// no I/O, so it is safe on the interactive mutation path.
func (tl *Timeline) CommitPreparedClip(pc PreparedClip) ClipID {
	id := tl.nextClipID
	tl.nextClipID++

	name := pc.Name
	if name == "" {
		name = pc.Source.Path
	}
	tl.clips[id] = &MediaClip{
		ID:     id,
		Source: pc.Source,
		In:     TimePoint{Num: 0, Den: 1},
		Out:    TimePoint{Num: pc.Source.Duration.Num, Den: pc.Source.Duration.Den},
		Name:   name,
	}

	tl.log.Info("committed prepared clip", slog.String("name", name), slog.Uint64("clip_id", uint64(id)))
	tl.MarkModified()
	return id
}

// AddClipWithID stores a clip under an explicitly supplied ID, advancing
// the allocator past it. Used by the persistence collaborator.
func (tl *Timeline) AddClipWithID(id ClipID, source *MediaSource, name string, in, out TimePoint) ClipID {
	if id >= tl.nextClipID {
		tl.nextClipID = id + 1
	}
	tl.clips[id] = &MediaClip{ID: id, Source: source, In: in, Out: out, Name: name}
	tl.MarkModified()
	return id
}

// RemoveClip deletes the clip with the given ID. Segments referencing it
// are not touched; their lookups will return nil, the offline-media state.
// Callers wanting a stricter policy can check ClipInUse first.
func (tl *Timeline) RemoveClip(id ClipID) bool {
	clip, ok := tl.clips[id]
	if !ok {
		return false
	}
	delete(tl.clips, id)

	tl.log.Info("removed clip", slog.String("name", clip.Name), slog.Uint64("clip_id", uint64(id)))
	tl.MarkModified()
	return true
}

// Clip returns the clip with the given ID, or nil if it does not exist
// (including the dangling-segment case).
func (tl *Timeline) Clip(id ClipID) *MediaClip {
	return tl.clips[id]
}

// Clips returns a copy of the clip map.
func (tl *Timeline) Clips() map[ClipID]*MediaClip {
	out := make(map[ClipID]*MediaClip, len(tl.clips))
	for id, c := range tl.clips {
		out[id] = c
	}
	return out
}

// ClipInUse reports whether any segment on any track references the clip.
func (tl *Timeline) ClipInUse(id ClipID) bool {
	for _, track := range tl.tracks {
		for _, seg := range track.segments {
			if seg.ClipID == id {
				return true
			}
		}
	}
	return false
}

// Duration returns the end of the last segment across all tracks.
func (tl *Timeline) Duration() TimeDuration {
	maxEnd := TimePoint{Num: 0, Den: 1}
	for _, track := range tl.tracks {
		for _, seg := range track.segments {
			if end := seg.End(); end.After(maxEnd) {
				maxEnd = end
			}
		}
	}
	return TimeDuration{Num: maxEnd.Num, Den: maxEnd.Den}
}

// InsertGapAllTracks inserts a gap on every track. The timeline is marked
// modified once, and only when every track succeeded.
func (tl *Timeline) InsertGapAllTracks(at TimePoint, duration TimeDuration) bool {
	ok := true
	for _, track := range tl.tracks {
		if !track.InsertGap(at, duration) {
			ok = false
		}
	}
	if ok {
		tl.MarkModified()
	}
	return ok
}

// DeleteRangeAllTracks deletes a range on every track. Every track is
// attempted regardless of earlier failures; tracks that already mutated are
// not rolled back, and the overall result is true only if all succeeded.
func (tl *Timeline) DeleteRangeAllTracks(start TimePoint, duration TimeDuration, ripple bool) bool {
	ok := true
	for _, track := range tl.tracks {
		if !track.DeleteRange(start, duration, ripple) {
			ok = false
		}
	}
	if ok {
		tl.MarkModified()
	}
	return ok
}

func (tl *Timeline) trackIndex(id TrackID) int {
	for i, t := range tl.tracks {
		if t.ID() == id {
			return i
		}
	}
	return -1
}
