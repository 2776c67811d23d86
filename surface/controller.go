package surface

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/task"
	"github.com/aukilabs/globedrape/view"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// ErrTypeNotReady is the type of errors returned when surfaces are
	// requested before the factory is initialized.
	ErrTypeNotReady = "not_ready"

	// CacheSize is the number of built surfaces kept in memory.
	CacheSize = 8

	DefaultInitTimeout = 30 * time.Second
)

// Controller builds, caches and activates named surfaces. Exactly one
// surface is active at a time.
//
// Except for Init and Ready, the controller methods must be called from the
// control loop it was created with.
type Controller struct {
	// The maximum time to wait for the factory initialization.
	InitTimeout time.Duration

	// Called on the control loop when something happens to a surface.
	OnEvent func(Event)

	factory Factory
	loop    task.Poster
	limiter *task.Limiter

	cache     *lru.Cache[Key, Surface]
	inflight  map[Key]*task.Task[Surface]
	latest    Key
	hasLatest bool
	active    Surface
	camera    view.Camera
	hasCamera bool

	initialized atomic.Bool
}

// NewController returns a controller that builds surfaces with f. Builds are
// delivered through loop and bounded by limiter.
func NewController(f Factory, loop task.Poster, limiter *task.Limiter) *Controller {
	c := &Controller{
		InitTimeout: DefaultInitTimeout,
		factory:     f,
		loop:        loop,
		limiter:     limiter,
		inflight:    make(map[Key]*task.Task[Surface]),
	}

	// Only fails with a non positive size.
	c.cache, _ = lru.NewWithEvict(CacheSize, c.evicted)
	return c
}

// Init initializes the factory in the background. notify is called on the
// control loop with the outcome. When the initialization takes longer than
// InitTimeout, notify receives a timeout error and the initialization is no
// longer awaited.
func (c *Controller) Init(ctx context.Context, notify func(error)) {
	t := task.Run(ctx, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.factory.Init(ctx)
	})

	go func() {
		_, err := t.Await(c.InitTimeout)
		if err == nil {
			c.initialized.Store(true)
		} else {
			logs.Error(errors.New("surface factory initialization failed").Wrap(err))
		}

		c.loop.Post(func() {
			event := Event{Type: EventReady}
			if err != nil {
				event = Event{Type: EventInitFailed, Error: err.Error()}
			}
			c.emit(event)

			if notify != nil {
				notify(err)
			}
		})
	}()
}

// Ready reports whether the factory initialization succeeded.
func (c *Controller) Ready() bool {
	return c.initialized.Load()
}

// Show makes the surface identified by key the active one. A cached surface
// is activated immediately. Otherwise it is built in the background unless a
// build for the same key is already in flight. Only the most recently
// requested surface is activated once built.
func (c *Controller) Show(ctx context.Context, key Key) error {
	if !c.Ready() {
		return errors.New("surface factory is not initialized").
			WithType(ErrTypeNotReady).
			WithTag("key", key)
	}

	c.latest = key
	c.hasLatest = true

	if s, ok := c.cache.Get(key); ok {
		instrumentCacheHit()
		c.activate(s)
		return nil
	}

	if _, ok := c.inflight[key]; ok {
		return nil
	}

	start := time.Now()
	t := task.Run(ctx, c.limiter, func(ctx context.Context) (Surface, error) {
		return c.factory.Build(ctx, key)
	})
	c.inflight[key] = t
	instrumentBuildStart()

	logs.WithTag("key", key).
		WithTag("task_id", t.ID()).
		Debug("building surface")
	c.emit(Event{Type: EventBuilding, Key: key})

	t.Deliver(c.loop, func(s Surface, err error) {
		c.complete(t, key, s, err, start)
	})
	return nil
}

// UpdateCamera forwards the camera to the active surface. The camera is also
// applied to surfaces activated later.
func (c *Controller) UpdateCamera(cam view.Camera) {
	c.camera = cam
	c.hasCamera = true

	if c.active != nil {
		c.active.UpdateCamera(cam)
	}
}

// Active returns the active surface.
func (c *Controller) Active() (Surface, bool) {
	return c.active, c.active != nil
}

// Clear cancels the builds in flight and empties the cache. The active
// surface stays shown until another one is activated.
func (c *Controller) Clear() {
	for key, t := range c.inflight {
		t.Cancel()
		delete(c.inflight, key)
	}
	c.cache.Purge()
	instrumentCacheSize(c.cache.Len())
}

// Close clears the controller and releases the active surface.
func (c *Controller) Close() {
	c.Clear()

	if c.active != nil {
		c.active.UnbindProgress()
		c.active.Hide()
		c.active.Close()
		c.active = nil
	}
}

// State describes the surfaces known by a controller.
type State struct {
	Active   *Key  `json:"active,omitempty"`
	Latest   *Key  `json:"latest,omitempty"`
	Cached   []Key `json:"cached"`
	InFlight []Key `json:"in_flight"`
	Ready    bool  `json:"ready"`
}

// Snapshot returns the state of the controller. Cached keys are ordered from
// the least to the most recently used.
func (c *Controller) Snapshot() State {
	state := State{
		Cached:   c.cache.Keys(),
		InFlight: make([]Key, 0, len(c.inflight)),
		Ready:    c.Ready(),
	}

	if c.active != nil {
		key := c.active.Key()
		state.Active = &key
	}

	if c.hasLatest {
		key := c.latest
		state.Latest = &key
	}

	for key := range c.inflight {
		state.InFlight = append(state.InFlight, key)
	}
	slices.SortFunc(state.InFlight, compareKeys)
	return state
}

func (c *Controller) complete(t *task.Task[Surface], key Key, s Surface, err error, start time.Time) {
	if c.inflight[key] != t {
		// Cleared while in flight.
		if err == nil {
			s.Close()
		}
		instrumentBuildEnd(outcomeCancelled, start)
		return
	}
	delete(c.inflight, key)

	if err != nil {
		if bulk.IsCancelled(err) {
			instrumentBuildEnd(outcomeCancelled, start)
			return
		}

		instrumentBuildEnd(outcomeFailed, start)
		logs.WithTag("key", key).Error(err)
		c.emit(Event{Type: EventFailed, Key: key, Error: err.Error()})
		return
	}

	c.cache.Add(key, s)
	instrumentCacheSize(c.cache.Len())
	c.emit(Event{Type: EventBuilt, Key: key})

	if !c.hasLatest || c.latest != key {
		instrumentBuildEnd(outcomeStale, start)
		logs.WithTag("key", key).
			WithTag("latest", c.latest).
			Debug("stale surface result cached without activation")
		c.emit(Event{Type: EventStale, Key: key})
		return
	}

	instrumentBuildEnd(outcomeActivated, start)
	c.activate(s)
}

func (c *Controller) activate(s Surface) {
	if c.active == s {
		return
	}

	if prev := c.active; prev != nil {
		prev.UnbindProgress()
		prev.Hide()

		if cached, ok := c.cache.Peek(prev.Key()); !ok || cached != prev {
			prev.Close()
		}
	}

	c.active = s
	key := s.Key()

	s.BindProgress(func(p Progress) {
		c.emit(Event{Type: EventProgress, Key: key, Progress: &p})
	})
	s.Show()
	if c.hasCamera {
		s.UpdateCamera(c.camera)
	}

	logs.WithTag("key", key).Info("surface activated")
	c.emit(Event{Type: EventActivated, Key: key})
}

func (c *Controller) evicted(key Key, s Surface) {
	instrumentEviction()
	c.emit(Event{Type: EventEvicted, Key: key})

	if s != c.active {
		s.Close()
	}
}

func (c *Controller) emit(e Event) {
	if c.OnEvent == nil {
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.OnEvent(e)
}

func compareKeys(a, b Key) int {
	switch {
	case a.Name < b.Name:
		return -1
	case a.Name > b.Name:
		return 1
	case a.Time != b.Time:
		return a.Time - b.Time
	default:
		return a.Level - b.Level
	}
}
