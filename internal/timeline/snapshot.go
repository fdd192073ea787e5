package timeline

// Snapshot is an immutable deep copy of the timeline's structural state.
// It shares no mutable state with the live timeline, so a consumer on
// another goroutine can read it freely while editing continues.
type Snapshot struct {
	Name      string               `json:"name"`
	FrameRate Rational             `json:"frame_rate"`
	Version   uint64               `json:"version"`
	Duration  TimeDuration         `json:"duration"`
	Playhead  TimePoint            `json:"playhead"`
	Tracks    []TrackSnapshot      `json:"tracks"`
	Clips     map[ClipID]MediaClip `json:"clips"`
}

// TrackSnapshot is the frozen state of one track.
type TrackSnapshot struct {
	ID       TrackID   `json:"id"`
	Type     TrackType `json:"type"`
	Name     string    `json:"name"`
	Muted    bool      `json:"muted"`
	Solo     bool      `json:"solo"`
	Segments []Segment `json:"segments"`
}

// Snapshot produces a point-in-time copy of the timeline: tracks, segments,
// clips (with cloned sources), name, frame rate, and version.
func (tl *Timeline) Snapshot() *Snapshot {
	snap := &Snapshot{
		Name:      tl.name,
		FrameRate: tl.frameRate,
		Version:   tl.version,
		Duration:  tl.Duration(),
		Playhead:  tl.playhead,
		Tracks:    make([]TrackSnapshot, 0, len(tl.tracks)),
		Clips:     make(map[ClipID]MediaClip, len(tl.clips)),
	}

	for _, track := range tl.tracks {
		segs := make([]Segment, len(track.segments))
		copy(segs, track.segments)
		snap.Tracks = append(snap.Tracks, TrackSnapshot{
			ID:       track.id,
			Type:     track.typ,
			Name:     track.name,
			Muted:    track.muted,
			Solo:     track.solo,
			Segments: segs,
		})
	}

	for id, clip := range tl.clips {
		cp := *clip
		cp.Source = clip.Source.Clone()
		snap.Clips[id] = cp
	}

	return snap
}
