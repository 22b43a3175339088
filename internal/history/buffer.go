// Package history is a linear undo/redo buffer of command groups.
//
// The index points at the last executed group, -1 when nothing has been
// executed. Executing while not at the head discards every redo entry.
// Memory is accounted from each group's self-reported size; when the total
// exceeds the cap the oldest groups are evicted until usage is under 80% of
// it, but the newest group is always kept.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/closset/vectorcore/internal/events"
	"github.com/closset/vectorcore/internal/typeid"
)

var (
	ErrBusy          = errors.New("history operation already in progress")
	ErrNoTransaction = errors.New("no transaction in progress")
)

// Command is one reversible change. Implementations own snapshots of the
// state they need and never hold live references into the document.
type Command interface {
	Execute() error
	Undo() error
	Description() string
	// Size is an estimate of the memory held by the command, in bytes.
	Size() int
}

// Func adapts plain functions to Command.
type Func struct {
	Desc   string
	Do     func() error
	Revert func() error
	Bytes  int
}

func (f Func) Execute() error      { return call(f.Do) }
func (f Func) Undo() error         { return call(f.Revert) }
func (f Func) Description() string { return f.Desc }
func (f Func) Size() int           { return f.Bytes }

func call(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

// Group batches commands into a single undo step.
type Group struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Commands    []Command `json:"-"`
	Timestamp   time.Time `json:"timestamp"`
}

// Size sums the sizes of the group's commands.
func (g *Group) Size() int {
	n := 0
	for _, c := range g.Commands {
		n += c.Size()
	}
	return n
}

// execute runs the commands in order. If one fails the ones already run are
// undone in reverse so the group applies atomically.
func (g *Group) execute() error {
	for i, c := range g.Commands {
		if err := c.Execute(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.Commands[j].Undo()
			}
			return fmt.Errorf("execute %q: %w", c.Description(), err)
		}
	}
	return nil
}

func (g *Group) undo() error {
	for i := len(g.Commands) - 1; i >= 0; i-- {
		if err := g.Commands[i].Undo(); err != nil {
			return fmt.Errorf("undo %q: %w", g.Commands[i].Description(), err)
		}
	}
	return nil
}

func (g *Group) redo() error {
	for _, c := range g.Commands {
		if err := c.Execute(); err != nil {
			return fmt.Errorf("redo %q: %w", c.Description(), err)
		}
	}
	return nil
}

type EventKind string

const (
	EventExecute EventKind = "execute"
	EventUndo    EventKind = "undo"
	EventRedo    EventKind = "redo"
	EventClear   EventKind = "clear"
	EventCompact EventKind = "compact"
)

// Event is published after every change to the buffer.
type Event struct {
	Kind        EventKind `json:"kind"`
	Description string    `json:"description,omitempty"`
	CanUndo     bool      `json:"canUndo"`
	CanRedo     bool      `json:"canRedo"`
	Size        int       `json:"size"`
}

type Options struct {
	MaxSize   int
	MaxMemory int
	Logger    *slog.Logger
	Bus       *events.Bus[Event]
	Now       func() time.Time
}

func DefaultOptions() Options {
	return Options{
		MaxSize:   100,
		MaxMemory: 50 * 1024 * 1024,
	}
}

// Buffer is the undo/redo history of one editing session. It is not safe for
// concurrent use.
type Buffer struct {
	history []*Group
	index   int
	memory  int

	executing bool
	pending   *Group

	opts Options
}

func New(opts Options) *Buffer {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus[Event]()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Buffer{index: -1, opts: opts}
}

// Events returns the bus on which buffer changes are published.
func (b *Buffer) Events() *events.Bus[Event] {
	return b.opts.Bus
}

func (b *Buffer) CanUndo() bool { return b.index >= 0 }

func (b *Buffer) CanRedo() bool { return b.index < len(b.history)-1 }

// Size returns the number of groups in the history.
func (b *Buffer) Size() int { return len(b.history) }

// Index returns the position of the last executed group, -1 if none.
func (b *Buffer) Index() int { return b.index }

// MemoryUsage returns the summed size estimate of all groups.
func (b *Buffer) MemoryUsage() int { return b.memory }

// UndoDescription describes the group Undo would revert.
func (b *Buffer) UndoDescription() string {
	if !b.CanUndo() {
		return ""
	}
	return b.history[b.index].Description
}

// RedoDescription describes the group Redo would reapply.
func (b *Buffer) RedoDescription() string {
	if !b.CanRedo() {
		return ""
	}
	return b.history[b.index+1].Description
}

// Execute runs cmd. Inside a transaction it joins the pending group,
// otherwise it becomes a group of its own.
func (b *Buffer) Execute(cmd Command) bool {
	if b.pending != nil {
		if b.executing {
			return false
		}
		b.executing = true
		err := cmd.Execute()
		b.executing = false
		if err != nil {
			b.opts.Logger.Warn("command failed", "command", cmd.Description(), "error", err)
			return false
		}
		b.pending.Commands = append(b.pending.Commands, cmd)
		return true
	}
	return b.ExecuteGroup(&Group{Description: cmd.Description(), Commands: []Command{cmd}})
}

// ExecuteGroup runs every command of g and records it as one undo step.
func (b *Buffer) ExecuteGroup(g *Group) bool {
	if b.executing || g == nil || len(g.Commands) == 0 {
		return false
	}
	b.executing = true
	err := g.execute()
	b.executing = false
	if err != nil {
		b.opts.Logger.Warn("command group failed", "group", g.Description, "error", err)
		return false
	}
	b.record(g)
	return true
}

func (b *Buffer) record(g *Group) {
	if g.ID == "" {
		g.ID = typeid.NewCommandID()
	}
	if g.Timestamp.IsZero() {
		g.Timestamp = b.opts.Now()
	}

	// a new edit discards the redo branch
	for _, dropped := range b.history[b.index+1:] {
		b.memory -= dropped.Size()
	}
	b.history = append(b.history[:b.index+1], g)
	b.index++
	b.memory += g.Size()

	if b.opts.MaxSize > 0 {
		for len(b.history) > b.opts.MaxSize {
			b.evictOldest()
		}
	}
	b.compact()
	b.publish(EventExecute, g.Description)
}

func (b *Buffer) evictOldest() {
	b.memory -= b.history[0].Size()
	b.history[0] = nil
	b.history = b.history[1:]
	b.index--
}

// compact evicts the oldest groups once memory use exceeds the cap.
func (b *Buffer) compact() {
	limit := b.opts.MaxMemory
	if limit <= 0 || b.memory <= limit {
		return
	}
	target := limit * 8 / 10
	evicted := 0
	for b.memory >= target && len(b.history) > 1 {
		b.evictOldest()
		evicted++
	}
	if b.index < -1 {
		b.index = -1
	}
	b.opts.Logger.Debug("history compacted", "evicted", evicted, "memory", b.memory)
	b.publish(EventCompact, "")
}

// Undo reverts the group at the current index.
func (b *Buffer) Undo() bool {
	if b.executing || b.pending != nil || !b.CanUndo() {
		return false
	}
	g := b.history[b.index]
	b.executing = true
	err := g.undo()
	b.executing = false
	if err != nil {
		b.opts.Logger.Warn("undo failed", "group", g.Description, "error", err)
		return false
	}
	b.index--
	b.publish(EventUndo, g.Description)
	return true
}

// Redo reapplies the group after the current index.
func (b *Buffer) Redo() bool {
	if b.executing || b.pending != nil || !b.CanRedo() {
		return false
	}
	g := b.history[b.index+1]
	b.executing = true
	err := g.redo()
	b.executing = false
	if err != nil {
		b.opts.Logger.Warn("redo failed", "group", g.Description, "error", err)
		return false
	}
	b.index++
	b.publish(EventRedo, g.Description)
	return true
}

// Begin opens a transaction; commands executed until Commit form one group.
func (b *Buffer) Begin(description string) bool {
	if b.pending != nil || b.executing {
		return false
	}
	b.pending = &Group{Description: description}
	return true
}

// InTransaction reports whether a transaction is open.
func (b *Buffer) InTransaction() bool {
	return b.pending != nil
}

// Commit records the open transaction. An empty transaction is discarded.
func (b *Buffer) Commit() (bool, error) {
	g := b.pending
	if g == nil {
		return false, ErrNoTransaction
	}
	b.pending = nil
	if len(g.Commands) == 0 {
		return false, nil
	}
	b.record(g)
	return true, nil
}

// Rollback undoes every command of the open transaction and discards it.
func (b *Buffer) Rollback() error {
	g := b.pending
	if g == nil {
		return ErrNoTransaction
	}
	b.pending = nil
	b.executing = true
	defer func() { b.executing = false }()
	return g.undo()
}

// Clear drops the whole history.
func (b *Buffer) Clear() {
	b.history = nil
	b.index = -1
	b.memory = 0
	b.pending = nil
	b.publish(EventClear, "")
}

func (b *Buffer) publish(kind EventKind, desc string) {
	b.opts.Bus.Publish(Event{
		Kind:        kind,
		Description: desc,
		CanUndo:     b.CanUndo(),
		CanRedo:     b.CanRedo(),
		Size:        len(b.history),
	})
}
