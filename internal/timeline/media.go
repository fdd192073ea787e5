package timeline

// ClipID identifies a MediaClip within a Timeline. IDs are never reused.
type ClipID uint64

// MediaSource describes one imported media file. A source is created once
// per import and shared by every clip derived from it; probe metadata is
// cached here so clip creation never touches the file again.
type MediaSource struct {
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"` // for relink detection

	Duration TimeDuration `json:"duration"`

	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	FrameRate  Rational `json:"frame_rate,omitempty"`
	SampleRate int      `json:"sample_rate,omitempty"`
	Channels   int      `json:"channels,omitempty"`

	FormatName string            `json:"format_name,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the source, including the metadata map.
func (s *MediaSource) Clone() *MediaSource {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Metadata != nil {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// MediaClip is a trimmed reference into a MediaSource. Clips are owned by
// the Timeline's clip map; segments refer to them by ID only.
type MediaClip struct {
	ID     ClipID       `json:"id"`
	Source *MediaSource `json:"source"`
	In     TimePoint    `json:"in"`  // source timecode in
	Out    TimePoint    `json:"out"` // source timecode out
	Name   string       `json:"name"`
}

// Duration returns the trimmed length of the clip (Out - In).
func (c *MediaClip) Duration() TimeDuration {
	return c.Out.Sub(c.In)
}

// PreparedClip carries the result of expensive import work (probing,
// hashing) done off the mutation path. Committing one is a pure in-memory
// append, see Timeline.CommitPreparedClip.
type PreparedClip struct {
	Source *MediaSource
	Name   string
}
