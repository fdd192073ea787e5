// Package commands implements the reversible edit command system: every
// timeline mutation the editor performs goes through a Command executed by
// a History, which provides undo/redo with bounded depth and coalescing of
// rapid fine-grained edits into single undo steps.
package commands

import (
	"io"
	"log/slog"

	"timeline-editor/internal/timeline"
)

// DefaultMaxHistory is the history depth used when none is configured.
const DefaultMaxHistory = 200

// Command is a single reversible mutation against a timeline. Execute and
// Undo return false on expected failures (missing IDs, overlap rejection)
// and must leave the timeline unchanged when they fail.
type Command interface {
	Execute(tl *timeline.Timeline) bool
	Undo(tl *timeline.Timeline) bool
	Description() string
}

// Merger is implemented by commands that can coalesce with a following
// command of the same kind, collapsing bursts of interactive micro-edits
// (drag moves, trim scrubs) into one undo step.
type Merger interface {
	CanMergeWith(other Command) bool
	// MergeWith returns the combined command, or nil if the merge failed.
	MergeWith(other Command) Command
}

// History is a linear undo/redo stack of executed commands. The cursor sits
// between 0 (nothing executed) and len(commands) (fully forward); executing
// a new command after an undo discards the old redo branch.
type History struct {
	commands []Command
	current  int
	max      int
	log      *slog.Logger
}

// NewHistory returns a history bounded to max commands. A max of zero or
// less uses DefaultMaxHistory; a nil logger disables logging.
func NewHistory(max int, log *slog.Logger) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log.Debug("created command history", slog.Int("max_history", max))
	return &History{max: max, log: log}
}

// Execute runs cmd against the timeline and records it. If the command at
// the cursor can absorb cmd, the two coalesce in place instead: no new
// history entry, no execution, cursor unchanged. A failed execution leaves
// the history untouched and returns false.
func (h *History) Execute(cmd Command, tl *timeline.Timeline) bool {
	if cmd == nil {
		h.log.Warn("attempted to execute nil command")
		return false
	}

	if h.tryCoalesce(cmd) {
		h.log.Debug("command coalesced with previous command")
		return true
	}

	if !cmd.Execute(tl) {
		h.log.Warn("command execution failed", slog.String("command", cmd.Description()))
		return false
	}

	// Drop the redo branch before appending.
	if h.current < len(h.commands) {
		h.commands = h.commands[:h.current]
	}

	h.commands = append(h.commands, cmd)
	h.current = len(h.commands)
	h.trim()

	h.log.Debug("command executed",
		slog.String("command", cmd.Description()),
		slog.Int("position", h.current),
		slog.Int("history_len", len(h.commands)))
	return true
}

// Undo reverses the command before the cursor. Returns false when there is
// nothing to undo or the command's Undo failed.
func (h *History) Undo(tl *timeline.Timeline) bool {
	if !h.CanUndo() {
		h.log.Debug("cannot undo: no commands in history")
		return false
	}

	cmd := h.commands[h.current-1]
	if !cmd.Undo(tl) {
		h.log.Warn("failed to undo command", slog.String("command", cmd.Description()))
		return false
	}

	h.current--
	h.log.Info("undid command", slog.String("command", cmd.Description()))
	return true
}

// Redo re-executes the command at the cursor. Returns false when there is
// nothing to redo or the command failed.
func (h *History) Redo(tl *timeline.Timeline) bool {
	if !h.CanRedo() {
		h.log.Debug("cannot redo: at end of history")
		return false
	}

	cmd := h.commands[h.current]
	if !cmd.Execute(tl) {
		h.log.Warn("failed to redo command", slog.String("command", cmd.Description()))
		return false
	}

	h.current++
	h.log.Info("redid command", slog.String("command", cmd.Description()))
	return true
}

// CanUndo reports whether at least one command can be undone.
func (h *History) CanUndo() bool { return h.current > 0 }

// CanRedo reports whether at least one command can be redone.
func (h *History) CanRedo() bool { return h.current < len(h.commands) }

// UndoDescription returns the description of the command Undo would
// reverse, or "".
func (h *History) UndoDescription() string {
	if !h.CanUndo() {
		return ""
	}
	return h.commands[h.current-1].Description()
}

// RedoDescription returns the description of the command Redo would apply,
// or "".
func (h *History) RedoDescription() string {
	if !h.CanRedo() {
		return ""
	}
	return h.commands[h.current].Description()
}

// Len returns the number of commands currently held.
func (h *History) Len() int { return len(h.commands) }

// CurrentIndex returns the cursor position in [0, Len()].
func (h *History) CurrentIndex() int { return h.current }

// Clear discards all history.
func (h *History) Clear() {
	h.commands = nil
	h.current = 0
	h.log.Debug("command history cleared")
}

// SetMaxHistory changes the bound, trimming immediately if needed.
func (h *History) SetMaxHistory(max int) {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	h.max = max
	h.trim()
}

func (h *History) trim() {
	if len(h.commands) <= h.max {
		return
	}
	excess := len(h.commands) - h.max
	h.commands = append([]Command(nil), h.commands[excess:]...)
	h.current -= excess
	if h.current < 0 {
		h.current = 0
	}
	h.log.Debug("trimmed command history",
		slog.Int("removed", excess), slog.Int("position", h.current))
}

func (h *History) tryCoalesce(cmd Command) bool {
	if len(h.commands) == 0 || h.current == 0 {
		return false
	}

	last, ok := h.commands[h.current-1].(Merger)
	if !ok || !last.CanMergeWith(cmd) {
		return false
	}

	merged := last.MergeWith(cmd)
	if merged == nil {
		return false
	}

	h.commands[h.current-1] = merged
	return true
}
