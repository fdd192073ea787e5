// Package editor wires the timeline data model and the command history into
// one editing context: all mutation funnels through the Service on a single
// lock, while readers take immutable snapshots.
package editor

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"timeline-editor/internal/commands"
	"timeline-editor/internal/project"
	"timeline-editor/internal/timeline"
)

// Service owns the live timeline and its undo history. Every edit becomes a
// command executed through the history; clip management and global fan-out
// edits go straight to the timeline, matching their non-undoable semantics.
type Service struct {
	mu          sync.Mutex
	tl          *timeline.Timeline
	history     *commands.History
	mergeWindow time.Duration
	log         *slog.Logger

	dirty     bool
	observers []func(version uint64)
}

// NewService returns a service editing tl through history. Move and trim
// commands coalesce within mergeWindow; zero or negative uses the default.
func NewService(tl *timeline.Timeline, history *commands.History, mergeWindow time.Duration, log *slog.Logger) *Service {
	if mergeWindow <= 0 {
		mergeWindow = commands.DefaultMergeWindow
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{tl: tl, history: history, mergeWindow: mergeWindow, log: log}
	s.tl.Subscribe(func(uint64) { s.dirty = true })
	return s
}

// OnModified registers fn to run after every structural mutation, surviving
// project loads (which replace the underlying timeline).
func (s *Service) OnModified(fn func(version uint64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
	s.tl.Subscribe(fn)
}

// AddTrack adds a track through the command history and returns its ID.
func (s *Service) AddTrack(typ timeline.TrackType, name string) (timeline.TrackID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := commands.NewAddTrack(typ, name)
	if !s.history.Execute(cmd, s.tl) {
		return 0, false
	}
	return cmd.CreatedTrackID(), true
}

// RemoveTrack removes a track through the command history.
func (s *Service) RemoveTrack(id timeline.TrackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(commands.NewRemoveTrack(id), s.tl)
}

// CommitClip stores a prepared clip. Clip management is not undoable, so it
// bypasses the history.
func (s *Service) CommitClip(pc timeline.PreparedClip) timeline.ClipID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.CommitPreparedClip(pc)
}

// RemoveClip deletes a clip. Segments still referencing it become offline.
func (s *Service) RemoveClip(id timeline.ClipID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.RemoveClip(id)
}

// InsertSegment places seg on the track at the given position and returns
// the assigned segment ID.
func (s *Service) InsertSegment(trackID timeline.TrackID, seg timeline.Segment, at timeline.TimePoint) (timeline.SegmentID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := commands.NewInsertSegment(trackID, seg, at)
	if !s.history.Execute(cmd, s.tl) {
		return 0, false
	}
	return cmd.InsertedSegmentID(), true
}

// RemoveSegment deletes a segment through the command history.
func (s *Service) RemoveSegment(trackID timeline.TrackID, segmentID timeline.SegmentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(commands.NewRemoveSegment(trackID, segmentID), s.tl)
}

// MoveSegment moves a segment between positions and possibly tracks. Rapid
// consecutive moves of the same segment coalesce into one undo step.
func (s *Service) MoveSegment(segmentID timeline.SegmentID, fromTrack, toTrack timeline.TrackID, fromTime, toTime timeline.TimePoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := commands.NewMoveSegment(segmentID, fromTrack, toTrack, fromTime, toTime)
	cmd.SetMergeWindow(s.mergeWindow)
	return s.history.Execute(cmd, s.tl)
}

// SplitSegment cuts a segment at the given time.
func (s *Service) SplitSegment(segmentID timeline.SegmentID, at timeline.TimePoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(commands.NewSplitSegment(segmentID, at), s.tl)
}

// TrimSegment sets a segment's extents. Rapid consecutive trims of the same
// segment coalesce into one undo step.
func (s *Service) TrimSegment(segmentID timeline.SegmentID, newStart timeline.TimePoint, newDuration timeline.TimeDuration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := commands.NewTrimSegment(segmentID, newStart, newDuration)
	cmd.SetMergeWindow(s.mergeWindow)
	return s.history.Execute(cmd, s.tl)
}

// Execute runs an arbitrary command (typically a macro) through the history.
func (s *Service) Execute(cmd commands.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Execute(cmd, s.tl)
}

// InsertGapAllTracks inserts a gap on every track. Fan-out edits are not
// undoable and bypass the history.
func (s *Service) InsertGapAllTracks(at timeline.TimePoint, duration timeline.TimeDuration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.InsertGapAllTracks(at, duration)
}

// DeleteRangeAllTracks deletes a range on every track, optionally rippling.
func (s *Service) DeleteRangeAllTracks(start timeline.TimePoint, duration timeline.TimeDuration, ripple bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.DeleteRangeAllTracks(start, duration, ripple)
}

// Undo reverses the most recent command.
func (s *Service) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Undo(s.tl)
}

// Redo re-applies the next command after an undo.
func (s *Service) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Redo(s.tl)
}

// CanUndo reports whether an undo is available.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CanRedo reports whether a redo is available.
func (s *Service) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// UndoDescription describes the command Undo would reverse, or "".
func (s *Service) UndoDescription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.UndoDescription()
}

// RedoDescription describes the command Redo would apply, or "".
func (s *Service) RedoDescription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.RedoDescription()
}

// Snapshot returns an immutable copy of the timeline safe for concurrent
// reads.
func (s *Service) Snapshot() *timeline.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Snapshot()
}

// Version returns the timeline's structural version counter.
func (s *Service) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Version()
}

// Dirty reports whether the timeline changed since the last save or load.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SaveProject writes the timeline as a JSON project and clears the dirty
// flag.
func (s *Service) SaveProject(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := project.Save(w, s.tl); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// LoadProject replaces the timeline with one rebuilt from a JSON project
// and clears the undo history; edits from before a load are not replayable
// against the loaded state.
func (s *Service) LoadProject(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tl, err := project.Load(r, s.log)
	if err != nil {
		return err
	}

	s.tl = tl
	s.history.Clear()
	s.dirty = false
	s.tl.Subscribe(func(uint64) { s.dirty = true })
	for _, fn := range s.observers {
		s.tl.Subscribe(fn)
	}

	s.log.Info("project loaded",
		slog.String("name", tl.Name()),
		slog.Int("tracks", len(tl.Tracks())))
	return nil
}
