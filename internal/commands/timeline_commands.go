package commands

import (
	"time"

	"timeline-editor/internal/timeline"
)

// DefaultMergeWindow bounds how far apart two Move or Trim commands may be
// created and still coalesce into one undo step.
const DefaultMergeWindow = 400 * time.Millisecond

func withinWindow(a, b time.Time, window time.Duration) bool {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	return d < window
}

// InsertSegmentCommand places a segment on a track at a given position.
type InsertSegmentCommand struct {
	trackID    timeline.TrackID
	segment    timeline.Segment
	insertedID timeline.SegmentID
	executed   bool
}

// NewInsertSegment returns a command that inserts seg on the track at the
// given position.
func NewInsertSegment(trackID timeline.TrackID, seg timeline.Segment, at timeline.TimePoint) *InsertSegmentCommand {
	seg.Start = at
	return &InsertSegmentCommand{trackID: trackID, segment: seg}
}

// InsertedSegmentID returns the ID assigned on the last successful Execute.
func (c *InsertSegmentCommand) InsertedSegmentID() timeline.SegmentID { return c.insertedID }

func (c *InsertSegmentCommand) Execute(tl *timeline.Timeline) bool {
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	if !track.AddSegment(c.segment) {
		return false
	}
	c.insertedID = track.LastAddedSegmentID()
	c.executed = true
	tl.MarkModified()
	return true
}

func (c *InsertSegmentCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	if !track.RemoveSegment(c.insertedID) {
		return false
	}
	c.executed = false
	tl.MarkModified()
	return true
}

func (c *InsertSegmentCommand) Description() string {
	return "Insert " + c.segment.Name + " into track"
}

// RemoveSegmentCommand deletes a segment, keeping its value for undo.
type RemoveSegmentCommand struct {
	trackID   timeline.TrackID
	segmentID timeline.SegmentID
	removed   timeline.Segment
	executed  bool
}

// NewRemoveSegment returns a command that removes the segment from the track.
func NewRemoveSegment(trackID timeline.TrackID, segmentID timeline.SegmentID) *RemoveSegmentCommand {
	return &RemoveSegmentCommand{trackID: trackID, segmentID: segmentID}
}

func (c *RemoveSegmentCommand) Execute(tl *timeline.Timeline) bool {
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	seg, ok := track.FindSegment(c.segmentID)
	if !ok {
		return false
	}
	c.removed = seg
	if !track.RemoveSegment(c.segmentID) {
		return false
	}
	c.executed = true
	tl.MarkModified()
	return true
}

func (c *RemoveSegmentCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	if !track.AddSegment(c.removed) {
		return false
	}
	c.executed = false
	tl.MarkModified()
	return true
}

func (c *RemoveSegmentCommand) Description() string {
	return "Remove " + c.removed.Name
}

// MoveSegmentCommand moves a segment to a new position, possibly on a
// different track. Consecutive moves of the same segment within the merge
// window coalesce into one command spanning original to final position.
type MoveSegmentCommand struct {
	segmentID timeline.SegmentID
	fromTrack timeline.TrackID
	toTrack   timeline.TrackID
	fromTime  timeline.TimePoint
	toTime    timeline.TimePoint
	executed  bool

	ts          time.Time
	mergeWindow time.Duration
}

// NewMoveSegment returns a command that moves the segment between the given
// tracks and positions, stamped with the current time for coalescing.
func NewMoveSegment(segmentID timeline.SegmentID, fromTrack, toTrack timeline.TrackID, fromTime, toTime timeline.TimePoint) *MoveSegmentCommand {
	return &MoveSegmentCommand{
		segmentID:   segmentID,
		fromTrack:   fromTrack,
		toTrack:     toTrack,
		fromTime:    fromTime,
		toTime:      toTime,
		ts:          time.Now(),
		mergeWindow: DefaultMergeWindow,
	}
}

// SetMergeWindow overrides the coalescing window for this command.
func (c *MoveSegmentCommand) SetMergeWindow(w time.Duration) { c.mergeWindow = w }

func (c *MoveSegmentCommand) Execute(tl *timeline.Timeline) bool {
	from := tl.Track(c.fromTrack)
	to := tl.Track(c.toTrack)
	if from == nil || to == nil {
		return false
	}

	seg, ok := from.FindSegment(c.segmentID)
	if !ok {
		return false
	}

	if !from.RemoveSegment(c.segmentID) {
		return false
	}

	seg.Start = c.toTime
	if !to.AddSegment(seg) {
		// Put it back where it was; the timeline must not change on failure.
		seg.Start = c.fromTime
		from.AddSegment(seg)
		return false
	}

	c.executed = true
	tl.MarkModified()
	return true
}

func (c *MoveSegmentCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}

	from := tl.Track(c.fromTrack)
	to := tl.Track(c.toTrack)
	if from == nil || to == nil {
		return false
	}

	seg, ok := to.FindSegment(c.segmentID)
	if !ok {
		return false
	}

	if !to.RemoveSegment(c.segmentID) {
		return false
	}
	seg.Start = c.fromTime
	if !from.AddSegment(seg) {
		return false
	}

	c.executed = false
	tl.MarkModified()
	return true
}

func (c *MoveSegmentCommand) Description() string { return "Move segment" }

func (c *MoveSegmentCommand) CanMergeWith(other Command) bool {
	o, ok := other.(*MoveSegmentCommand)
	if !ok || o.segmentID != c.segmentID {
		return false
	}
	return withinWindow(c.ts, o.ts, c.mergeWindow)
}

func (c *MoveSegmentCommand) MergeWith(other Command) Command {
	o, ok := other.(*MoveSegmentCommand)
	if !ok || !c.CanMergeWith(o) {
		return nil
	}
	// Original source from this command, final destination from the newer
	// one. Marked executed: the first command already applied.
	return &MoveSegmentCommand{
		segmentID:   c.segmentID,
		fromTrack:   c.fromTrack,
		toTrack:     o.toTrack,
		fromTime:    c.fromTime,
		toTime:      o.toTime,
		executed:    true,
		ts:          o.ts,
		mergeWindow: c.mergeWindow,
	}
}

// SplitSegmentCommand cuts a segment in two at a given time. Both halves
// get fresh IDs; undo removes them and restores the original segment.
type SplitSegmentCommand struct {
	segmentID timeline.SegmentID
	splitTime timeline.TimePoint

	trackID  timeline.TrackID
	firstID  timeline.SegmentID
	secondID timeline.SegmentID
	original timeline.Segment
	executed bool
}

// NewSplitSegment returns a command that splits the segment at splitTime.
// The segment is located by searching every track at execution time.
func NewSplitSegment(segmentID timeline.SegmentID, splitTime timeline.TimePoint) *SplitSegmentCommand {
	return &SplitSegmentCommand{segmentID: segmentID, splitTime: splitTime}
}

func (c *SplitSegmentCommand) Execute(tl *timeline.Timeline) bool {
	var track *timeline.Track
	var seg timeline.Segment
	for _, t := range tl.Tracks() {
		if s, ok := t.FindSegment(c.segmentID); ok {
			track = t
			seg = s
			c.trackID = t.ID()
			break
		}
	}
	if track == nil {
		return false
	}

	if c.splitTime.Cmp(seg.Start) <= 0 || c.splitTime.Cmp(seg.End()) >= 0 {
		return false
	}

	c.original = seg

	first := seg
	first.ID = track.GenerateSegmentID()
	first.Duration = c.splitTime.Sub(seg.Start)

	second := seg
	second.ID = track.GenerateSegmentID()
	second.Start = c.splitTime
	second.Duration = seg.End().Sub(c.splitTime)

	if !track.RemoveSegment(c.segmentID) {
		return false
	}

	firstOK := track.AddSegment(first)
	secondOK := firstOK && track.AddSegment(second)
	if !firstOK || !secondOK {
		if firstOK {
			track.RemoveSegment(first.ID)
		}
		track.AddSegment(c.original)
		return false
	}

	c.firstID = first.ID
	c.secondID = second.ID
	c.executed = true
	tl.MarkModified()
	return true
}

func (c *SplitSegmentCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}

	track.RemoveSegment(c.firstID)
	track.RemoveSegment(c.secondID)
	if !track.AddSegment(c.original) {
		return false
	}

	c.executed = false
	tl.MarkModified()
	return true
}

func (c *SplitSegmentCommand) Description() string {
	return "Split " + c.original.Name
}

// TrimSegmentCommand changes a segment's start and duration. Consecutive
// trims of the same segment within the merge window coalesce.
type TrimSegmentCommand struct {
	segmentID   timeline.SegmentID
	newStart    timeline.TimePoint
	newDuration timeline.TimeDuration

	trackID      timeline.TrackID
	origStart    timeline.TimePoint
	origDuration timeline.TimeDuration
	executed     bool

	ts          time.Time
	mergeWindow time.Duration
}

// NewTrimSegment returns a command that sets the segment's extents, stamped
// with the current time for coalescing.
func NewTrimSegment(segmentID timeline.SegmentID, newStart timeline.TimePoint, newDuration timeline.TimeDuration) *TrimSegmentCommand {
	return &TrimSegmentCommand{
		segmentID:   segmentID,
		newStart:    newStart,
		newDuration: newDuration,
		ts:          time.Now(),
		mergeWindow: DefaultMergeWindow,
	}
}

// SetMergeWindow overrides the coalescing window for this command.
func (c *TrimSegmentCommand) SetMergeWindow(w time.Duration) { c.mergeWindow = w }

func (c *TrimSegmentCommand) Execute(tl *timeline.Timeline) bool {
	for _, track := range tl.Tracks() {
		seg, ok := track.FindSegment(c.segmentID)
		if !ok {
			continue
		}
		c.trackID = track.ID()
		c.origStart = seg.Start
		c.origDuration = seg.Duration
		if !track.TrimSegment(c.segmentID, c.newStart, c.newDuration) {
			return false
		}
		c.executed = true
		tl.MarkModified()
		return true
	}
	return false
}

func (c *TrimSegmentCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	if !track.TrimSegment(c.segmentID, c.origStart, c.origDuration) {
		return false
	}
	c.executed = false
	tl.MarkModified()
	return true
}

func (c *TrimSegmentCommand) Description() string { return "Trim segment" }

func (c *TrimSegmentCommand) CanMergeWith(other Command) bool {
	o, ok := other.(*TrimSegmentCommand)
	if !ok || o.segmentID != c.segmentID {
		return false
	}
	return withinWindow(c.ts, o.ts, c.mergeWindow)
}

func (c *TrimSegmentCommand) MergeWith(other Command) Command {
	o, ok := other.(*TrimSegmentCommand)
	if !ok || !c.CanMergeWith(o) {
		return nil
	}
	// Final extents from the newer command, originals from this one.
	return &TrimSegmentCommand{
		segmentID:    c.segmentID,
		newStart:     o.newStart,
		newDuration:  o.newDuration,
		trackID:      c.trackID,
		origStart:    c.origStart,
		origDuration: c.origDuration,
		executed:     true,
		ts:           o.ts,
		mergeWindow:  c.mergeWindow,
	}
}

// AddTrackCommand appends a new track.
type AddTrackCommand struct {
	typ      timeline.TrackType
	name     string
	created  timeline.TrackID
	executed bool
}

// NewAddTrack returns a command that adds a track of the given type. An
// empty name is auto-generated by the timeline.
func NewAddTrack(typ timeline.TrackType, name string) *AddTrackCommand {
	return &AddTrackCommand{typ: typ, name: name}
}

// CreatedTrackID returns the ID assigned on the last successful Execute.
func (c *AddTrackCommand) CreatedTrackID() timeline.TrackID { return c.created }

func (c *AddTrackCommand) Execute(tl *timeline.Timeline) bool {
	c.created = tl.AddTrack(c.typ, c.name)
	c.executed = true
	return true
}

func (c *AddTrackCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}
	if !tl.RemoveTrack(c.created) {
		return false
	}
	c.executed = false
	return true
}

func (c *AddTrackCommand) Description() string {
	return "Add " + c.typ.String() + " track"
}

// RemoveTrackCommand deletes a track, keeping the track itself and its
// position so undo restores it exactly where it was, segments included.
type RemoveTrackCommand struct {
	trackID  timeline.TrackID
	removed  *timeline.Track
	position int
	executed bool
}

// NewRemoveTrack returns a command that removes the track with the given ID.
func NewRemoveTrack(trackID timeline.TrackID) *RemoveTrackCommand {
	return &RemoveTrackCommand{trackID: trackID}
}

func (c *RemoveTrackCommand) Execute(tl *timeline.Timeline) bool {
	track := tl.Track(c.trackID)
	if track == nil {
		return false
	}
	c.removed = track
	c.position = tl.TrackIndex(c.trackID)

	if !tl.RemoveTrack(c.trackID) {
		return false
	}
	c.executed = true
	return true
}

func (c *RemoveTrackCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed || c.removed == nil {
		return false
	}
	tl.RestoreTrack(c.removed, c.position)
	c.executed = false
	return true
}

func (c *RemoveTrackCommand) Description() string { return "Remove track" }

// MacroCommand groups child commands into one atomic-looking edit: if any
// child fails, the already-applied children are undone in reverse order so
// the timeline comes out unchanged.
type MacroCommand struct {
	name     string
	commands []Command
	executed bool
}

// NewMacro returns an empty macro with the given description.
func NewMacro(name string) *MacroCommand {
	return &MacroCommand{name: name}
}

// Add appends a child command. Nil commands are ignored.
func (c *MacroCommand) Add(cmd Command) {
	if cmd != nil {
		c.commands = append(c.commands, cmd)
	}
}

// Empty reports whether the macro has no children.
func (c *MacroCommand) Empty() bool { return len(c.commands) == 0 }

// Len returns the number of child commands.
func (c *MacroCommand) Len() int { return len(c.commands) }

func (c *MacroCommand) Execute(tl *timeline.Timeline) bool {
	if c.executed {
		return false
	}

	for i, cmd := range c.commands {
		if !cmd.Execute(tl) {
			// Roll back what already applied, newest first.
			for j := i - 1; j >= 0; j-- {
				c.commands[j].Undo(tl)
			}
			return false
		}
	}

	c.executed = true
	return true
}

func (c *MacroCommand) Undo(tl *timeline.Timeline) bool {
	if !c.executed {
		return false
	}

	for i := len(c.commands) - 1; i >= 0; i-- {
		if !c.commands[i].Undo(tl) {
			return false
		}
	}

	c.executed = false
	return true
}

func (c *MacroCommand) Description() string { return c.name }
