package lod

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/task"
	"github.com/golang/geo/r3"
)

const (
	outcomeSwapped    = "swapped"
	outcomeSuperseded = "superseded"
	outcomeCancelled  = "cancelled"
	outcomeFailed     = "failed"

	noLevel = -1
)

// Node owns the asset shown for one displayed element and rebuilds it in
// the background when the camera needs another level. The shown asset is
// kept until its replacement is ready.
//
// A node is not safe for concurrent use: its methods and callbacks run on
// the control loop it was created with.
type Node[A any] struct {
	ID   uint32
	Kind string

	// Called when a new asset replaces the shown one. prev is the zero value
	// when nothing was shown yet.
	OnSwap func(level int, prev, next A)

	// Called whenever a build started by the node ends, whatever its
	// outcome.
	OnSettle func()

	factory Factory[A]
	loop    task.Poster
	limiter *task.Limiter

	asset A
	level int

	pending      *task.Task[A]
	pendingLevel int
	failedLevel  int
}

// NewNode returns a node with nothing shown yet. Builds are delivered
// through loop and bounded by limiter.
func NewNode[A any](id uint32, kind string, f Factory[A], loop task.Poster, limiter *task.Limiter) *Node[A] {
	return &Node[A]{
		ID:           id,
		Kind:         kind,
		factory:      f,
		loop:         loop,
		limiter:      limiter,
		level:        noLevel,
		pendingLevel: noLevel,
		failedLevel:  noLevel,
	}
}

// Update requests the level needed at the given camera position. It returns
// true when a new build was started.
func (n *Node[A]) Update(ctx context.Context, camera r3.Vector) bool {
	return n.Request(ctx, n.factory.LevelFor(camera))
}

// Request asks for the given level. Nothing is started when the level is
// already shown, being built, or failed on its last attempt. A build of
// another level in flight is cancelled.
func (n *Node[A]) Request(ctx context.Context, level int) bool {
	if n.pending != nil && n.pendingLevel == level {
		return false
	}

	if level == n.level || level == n.failedLevel {
		n.Cancel()
		return false
	}
	n.Cancel()
	n.failedLevel = noLevel

	start := time.Now()
	t := task.Run(ctx, n.limiter, func(ctx context.Context) (A, error) {
		return n.factory.Build(ctx, level)
	})
	n.pending = t
	n.pendingLevel = level
	instrumentBuildStart(n.Kind)

	t.Deliver(n.loop, func(a A, err error) {
		n.settle(t, level, a, err, start)
	})
	return true
}

// Cancel cancels the build in flight, if any.
func (n *Node[A]) Cancel() {
	if n.pending == nil {
		return
	}

	n.pending.Cancel()
	n.pending = nil
	n.pendingLevel = noLevel
}

// Asset returns the shown asset and its level. ok is false when nothing is
// shown yet.
func (n *Node[A]) Asset() (asset A, level int, ok bool) {
	return n.asset, n.level, n.level != noLevel
}

// Pending returns the level being built.
func (n *Node[A]) Pending() (level int, ok bool) {
	return n.pendingLevel, n.pending != nil
}

func (n *Node[A]) settle(t *task.Task[A], level int, a A, err error, start time.Time) {
	outcome := outcomeSwapped

	switch {
	case n.pending != t:
		outcome = outcomeSuperseded

	case err != nil && bulk.IsCancelled(err):
		outcome = outcomeCancelled

	case err != nil:
		outcome = outcomeFailed
		n.failedLevel = level
		logs.WithTag("node_id", n.ID).
			WithTag("kind", n.Kind).
			WithTag("level", level).
			Error(err)
	}

	instrumentBuildEnd(n.Kind, outcome, start)

	if n.pending == t {
		n.pending = nil
		n.pendingLevel = noLevel
	}

	if outcome == outcomeSwapped {
		prev := n.asset
		n.asset = a
		n.level = level

		if n.OnSwap != nil {
			n.OnSwap(level, prev, a)
		}
	}

	if n.OnSettle != nil {
		n.OnSettle()
	}
}
