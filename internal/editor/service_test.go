package editor

import (
	"bytes"
	"testing"
	"time"

	"timeline-editor/internal/commands"
	"timeline-editor/internal/timeline"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tl := timeline.New(nil)
	history := commands.NewHistory(0, nil)
	return NewService(tl, history, 0, nil)
}

func tp(n int64) timeline.TimePoint { return timeline.NewTimePoint(n, 1_000_000) }

func td(n int64) timeline.TimeDuration { return timeline.NewTimeDuration(n, 1_000_000) }

func addSegment(t *testing.T, svc *Service, trackID timeline.TrackID, start, dur int64) timeline.SegmentID {
	t.Helper()
	seg := timeline.Segment{Duration: td(dur), Speed: 1.0, Enabled: true}
	id, ok := svc.InsertSegment(trackID, seg, tp(start))
	if !ok {
		t.Fatalf("InsertSegment(%d, %d) failed", start, dur)
	}
	return id
}

func TestService_trackLifecycle(t *testing.T) {
	svc := newTestService(t)

	id, ok := svc.AddTrack(timeline.TrackVideo, "Main")
	if !ok {
		t.Fatal("AddTrack failed")
	}
	if !svc.RemoveTrack(id) {
		t.Fatal("RemoveTrack failed")
	}
	if svc.RemoveTrack(id) {
		t.Error("removing a removed track should fail")
	}

	// Both edits went through the history.
	if !svc.Undo() {
		t.Fatal("undo of remove failed")
	}
	snap := svc.Snapshot()
	if len(snap.Tracks) != 1 || snap.Tracks[0].Name != "Main" {
		t.Errorf("expected restored track Main, got %+v", snap.Tracks)
	}
}

func TestService_segmentEditsAndUndo(t *testing.T) {
	svc := newTestService(t)
	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")

	segID := addSegment(t, svc, trackID, 0, 1_000_000)

	if !svc.MoveSegment(segID, trackID, trackID, tp(0), tp(2_000_000)) {
		t.Fatal("MoveSegment failed")
	}
	if !svc.SplitSegment(segID, tp(2_500_000)) {
		t.Fatal("SplitSegment failed")
	}

	snap := svc.Snapshot()
	if got := len(snap.Tracks[0].Segments); got != 2 {
		t.Fatalf("expected 2 segments after split, got %d", got)
	}

	// Unwind: split, move, insert, add track.
	for i := 0; i < 4; i++ {
		if !svc.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if svc.Undo() {
		t.Error("expected empty history")
	}
	if got := len(svc.Snapshot().Tracks); got != 0 {
		t.Errorf("expected empty timeline, got %d tracks", got)
	}
}

func TestService_rejectedEditDoesNotEnterHistory(t *testing.T) {
	svc := newTestService(t)
	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")
	addSegment(t, svc, trackID, 0, 1_000_000)

	seg := timeline.Segment{Duration: td(1_000_000), Speed: 1.0, Enabled: true}
	if _, ok := svc.InsertSegment(trackID, seg, tp(500_000)); ok {
		t.Fatal("overlapping insert should fail")
	}
	if got := svc.UndoDescription(); got == "" {
		t.Fatal("expected undoable insert at top of history")
	}

	version := svc.Version()
	if _, ok := svc.InsertSegment(trackID, seg, tp(500_000)); ok {
		t.Fatal("overlapping insert should fail")
	}
	if svc.Version() != version {
		t.Error("rejected edit must not bump the version")
	}
}

func TestService_moveCoalescing(t *testing.T) {
	svc := newTestService(t)
	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")
	segID := addSegment(t, svc, trackID, 0, 1_000_000)

	// Simulated drag: successive positions land within the merge window.
	positions := []int64{1_100_000, 1_200_000, 1_300_000}
	from := int64(0)
	for _, to := range positions {
		if !svc.MoveSegment(segID, trackID, trackID, tp(from), tp(to)) {
			t.Fatalf("move to %d failed", to)
		}
		from = to
	}

	if !svc.Undo() {
		t.Fatal("undo failed")
	}
	snap := svc.Snapshot()
	if !snap.Tracks[0].Segments[0].Start.Equal(tp(0)) {
		t.Errorf("one undo should restore the pre-drag position, got %+v", snap.Tracks[0].Segments[0].Start)
	}
	if svc.CanUndo() && svc.UndoDescription() == "Move segment" {
		t.Error("drag should have coalesced into a single history entry")
	}
}

func TestService_mergeWindowDisablesCoalescingWhenTiny(t *testing.T) {
	tl := timeline.New(nil)
	history := commands.NewHistory(0, nil)
	svc := NewService(tl, history, time.Nanosecond, nil)

	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")
	segID := addSegment(t, svc, trackID, 0, 1_000_000)

	if !svc.MoveSegment(segID, trackID, trackID, tp(0), tp(2_000_000)) {
		t.Fatal("first move failed")
	}
	time.Sleep(time.Microsecond)
	if !svc.MoveSegment(segID, trackID, trackID, tp(2_000_000), tp(3_000_000)) {
		t.Fatal("second move failed")
	}

	// Two distinct steps: undoing one leaves the other.
	if !svc.Undo() {
		t.Fatal("undo failed")
	}
	snap := svc.Snapshot()
	if !snap.Tracks[0].Segments[0].Start.Equal(tp(2_000_000)) {
		t.Errorf("expected position after first move, got %+v", snap.Tracks[0].Segments[0].Start)
	}
}

func TestService_fanOutEditsAreNotUndoable(t *testing.T) {
	svc := newTestService(t)
	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")
	addSegment(t, svc, trackID, 1_000_000, 1_000_000)

	before := svc.UndoDescription()
	if !svc.InsertGapAllTracks(tp(0), td(500_000)) {
		t.Fatal("InsertGapAllTracks failed")
	}
	if !svc.DeleteRangeAllTracks(tp(0), td(500_000), true) {
		t.Fatal("DeleteRangeAllTracks failed")
	}
	if got := svc.UndoDescription(); got != before {
		t.Errorf("fan-out edits must bypass the history, top changed to %q", got)
	}

	snap := svc.Snapshot()
	if !snap.Tracks[0].Segments[0].Start.Equal(tp(1_000_000)) {
		t.Errorf("gap then rippled delete should cancel out, got %+v", snap.Tracks[0].Segments[0].Start)
	}
}

func TestService_dirtyAndSaveLoad(t *testing.T) {
	svc := newTestService(t)
	if svc.Dirty() {
		t.Fatal("fresh service should be clean")
	}

	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")
	addSegment(t, svc, trackID, 0, 1_000_000)
	if !svc.Dirty() {
		t.Fatal("edits should mark the service dirty")
	}

	var buf bytes.Buffer
	if err := svc.SaveProject(&buf); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if svc.Dirty() {
		t.Error("save should clear the dirty flag")
	}

	if err := svc.LoadProject(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if svc.Dirty() {
		t.Error("load should leave the service clean")
	}
	if svc.CanUndo() {
		t.Error("load must clear the undo history")
	}

	snap := svc.Snapshot()
	if len(snap.Tracks) != 1 || len(snap.Tracks[0].Segments) != 1 {
		t.Errorf("loaded timeline lost state: %+v", snap.Tracks)
	}

	// Edits after the load mark dirty again (the observer was resubscribed).
	svc.AddTrack(timeline.TrackAudio, "")
	if !svc.Dirty() {
		t.Error("post-load edit should mark dirty")
	}
}

func TestService_onModifiedSurvivesLoad(t *testing.T) {
	svc := newTestService(t)

	var versions []uint64
	svc.OnModified(func(v uint64) { versions = append(versions, v) })

	svc.AddTrack(timeline.TrackVideo, "")
	if len(versions) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(versions))
	}

	var buf bytes.Buffer
	if err := svc.SaveProject(&buf); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if err := svc.LoadProject(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}

	svc.AddTrack(timeline.TrackAudio, "")
	if len(versions) < 2 {
		t.Error("observer should still fire after a project load")
	}
}

func TestService_macroThroughExecute(t *testing.T) {
	svc := newTestService(t)
	trackID, _ := svc.AddTrack(timeline.TrackVideo, "")

	macro := commands.NewMacro("Assemble intro")
	macro.Add(commands.NewInsertSegment(trackID,
		timeline.Segment{Duration: td(500_000), Speed: 1.0, Enabled: true, Name: "a"}, tp(0)))
	macro.Add(commands.NewInsertSegment(trackID,
		timeline.Segment{Duration: td(500_000), Speed: 1.0, Enabled: true, Name: "b"}, tp(1_000_000)))

	if !svc.Execute(macro) {
		t.Fatal("macro execution failed")
	}
	if got := svc.UndoDescription(); got != "Assemble intro" {
		t.Errorf("expected macro at top of history, got %q", got)
	}
	if !svc.Undo() {
		t.Fatal("macro undo failed")
	}
	if got := len(svc.Snapshot().Tracks[0].Segments); got != 0 {
		t.Errorf("expected empty track after macro undo, got %d segments", got)
	}
}
