package maps

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/go-drift/maps/pkg/errors"
)

// ErrNoLifecyclePath is the sentinel carried by the panic raised when a
// transition has no path through the lifecycle graph.
var ErrNoLifecyclePath = stderrors.New("maps: no lifecycle path")

// LifecycleOption configures a LifecycleController.
type LifecycleOption func(*LifecycleController)

// WithReused marks the view as reused: it was created and stopped by an
// earlier controller and never destroyed. The first OnCreate edge then
// advances the state without calling OnCreate on the view.
func WithReused() LifecycleOption {
	return func(c *LifecycleController) {
		c.previous = OnStop
	}
}

// WithSavedState sets the state bundle passed to OnCreate.
func WithSavedState(saved map[string]any) LifecycleOption {
	return func(c *LifecycleController) {
		c.savedState = saved
	}
}

// WithTransitionObserver registers fn to be called after every edge the
// controller takes. skipped reports an edge whose hook was not invoked.
func WithTransitionObserver(fn func(edge LifecycleEdge, skipped bool)) LifecycleOption {
	return func(c *LifecycleController) {
		c.observer = fn
	}
}

// LifecycleController drives a map view's lifecycle hooks from host
// lifecycle events. It tracks the view's own state, which can differ from
// the host's: a detached view stays stopped while its host keeps running.
//
// All methods are safe for concurrent use.
type LifecycleController struct {
	mu         sync.Mutex
	hooks      LifecycleHooks
	graph      *LifecycleGraph
	state      LifecycleState
	previous   LifecycleEvent // last edge taken, zero before the first
	savedState map[string]any
	observer   func(LifecycleEdge, bool)

	host             HostLifecycle
	cancelHost       func()
	destroyRequested bool
}

// NewLifecycleController returns a controller for hooks in the Initialized state.
func NewLifecycleController(hooks LifecycleHooks, opts ...LifecycleOption) *LifecycleController {
	c := &LifecycleController{
		hooks: hooks,
		graph: defaultGraph,
		state: Initialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the view's current lifecycle state.
func (c *LifecycleController) State() LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleEvent walks the view to the target state of event, invoking one hook
// per edge. An event equal to the current state is a no-op. Events without a
// target state, and targets with no path (anything after Destroyed), panic.
// Reaching Destroyed ends the host subscription as Destroy does.
//
// A hook error stops the walk at the last completed edge and is returned
// unchanged.
func (c *LifecycleController) HandleEvent(event LifecycleEvent) error {
	target, ok := event.TargetState()
	if !ok {
		errors.Violation("maps.LifecycleController.HandleEvent", ErrNoLifecyclePath,
			"event %s has no target state", event)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walkLocked(target)
}

// MoveTo walks the view to target. See HandleEvent.
func (c *LifecycleController) MoveTo(target LifecycleState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walkLocked(target)
}

// Attach starts following host: the view is walked to the host's current
// state and then follows each host event. A host OnDestroy only stops the
// view; destroying it is left to Destroy, so a view whose owner survives the
// host can be reattached.
func (c *LifecycleController) Attach(host HostLifecycle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyRequested {
		errors.Violation("maps.LifecycleController.Attach", ErrNoLifecyclePath,
			"cannot attach a destroyed view")
	}
	if c.cancelHost != nil {
		c.cancelHost()
	}
	c.host = host
	c.cancelHost = host.Observe(func(event LifecycleEvent) {
		c.onHostEvent(host, event)
	})
	return c.walkLocked(c.hostTargetLocked(host.CurrentState()))
}

// Detach stops following the host and walks the view down to Created so it
// can be reattached later. Detaching a view at or below Created only stops
// observing.
func (c *LifecycleController) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopObservingLocked()
	if c.state > Created {
		return c.walkLocked(Created)
	}
	return nil
}

// Destroy stops following the host permanently and walks the view to
// Destroyed. A view that was never created is marked destroyed without any
// hook call. Destroy is idempotent.
func (c *LifecycleController) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopObservingLocked()
	c.destroyRequested = true
	return c.walkLocked(Destroyed)
}

func (c *LifecycleController) stopObservingLocked() {
	if c.cancelHost != nil {
		c.cancelHost()
		c.cancelHost = nil
	}
	c.host = nil
}

func (c *LifecycleController) onHostEvent(host HostLifecycle, event LifecycleEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.host != host {
		// Detached while the event was in flight.
		return
	}
	target, ok := event.TargetState()
	if !ok {
		errors.Violation("maps.LifecycleController.onHostEvent", ErrNoLifecyclePath,
			"host event %s has no target state", event)
	}
	if err := c.walkLocked(c.hostTargetLocked(target)); err != nil {
		errors.Report(&errors.MapError{
			Op:   "maps.LifecycleController.onHostEvent",
			Kind: errors.KindLifecycle,
			Err:  fmt.Errorf("host event %s: %w", event, err),
		})
	}
}

// hostTargetLocked maps a host state to the state the view should follow.
// Host destruction stops the view rather than destroying it, and a host that
// has not been created yet leaves the view where it is.
func (c *LifecycleController) hostTargetLocked(state LifecycleState) LifecycleState {
	switch {
	case state == Destroyed && c.state > Created:
		return Created
	case state == Destroyed, state == Initialized:
		return c.state
	default:
		return state
	}
}

func (c *LifecycleController) walkLocked(target LifecycleState) error {
	// Resolve the whole path first so an impossible target panics before any
	// hook runs.
	path, err := c.graph.Path(c.state, target)
	if err != nil {
		errors.Violation("maps.LifecycleController", ErrNoLifecyclePath, "%v", err)
	}
	for _, edge := range path {
		skipped, err := c.invokeLocked(edge)
		if err != nil {
			return err
		}
		c.previous = edge.Event
		c.state = edge.To
		if edge.To == Destroyed {
			// Nothing leaves Destroyed; later host events would have no path.
			c.stopObservingLocked()
			c.destroyRequested = true
		}
		if c.observer != nil {
			c.observer(edge, skipped)
		}
	}
	return nil
}

func (c *LifecycleController) invokeLocked(edge LifecycleEdge) (skipped bool, err error) {
	if edge.Silent {
		return true, nil
	}
	switch edge.Event {
	case OnCreate:
		// A view that was stopped but never destroyed keeps its internal
		// state; creating it again corrupts it.
		if c.previous == OnStop {
			return true, nil
		}
		return false, c.hooks.OnCreate(c.savedState)
	case OnStart:
		return false, c.hooks.OnStart()
	case OnResume:
		return false, c.hooks.OnResume()
	case OnPause:
		return false, c.hooks.OnPause()
	case OnStop:
		return false, c.hooks.OnStop()
	case OnDestroy:
		return false, c.hooks.OnDestroy()
	default:
		errors.Violation("maps.LifecycleController", ErrNoLifecyclePath,
			"unsupported lifecycle event %s", edge.Event)
		return false, nil
	}
}
