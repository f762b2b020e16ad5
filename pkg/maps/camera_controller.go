package maps

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/maps/pkg/errors"
)

var (
	// ErrAnimationCanceled is returned by Animate when the animation was
	// superseded by a newer motion command, stopped, or dropped because the
	// controller was unbound before a map arrived. It wraps context.Canceled.
	ErrAnimationCanceled = fmt.Errorf("maps: camera animation canceled: %w", context.Canceled)

	// ErrAlreadyBound is the sentinel carried by the panic raised when a
	// second map is bound to a CameraController.
	ErrAlreadyBound = stderrors.New("maps: camera controller is already bound to a map")
)

// CameraController owns the camera pose of one map instance. It outlives
// the native map: while unbound it stores the pose and defers camera
// commands, and when a map is bound it applies the pose and forwards
// commands to it. A controller is bound to at most one map at a time.
//
// Position, IsMoving and MoveStartedReason read observable cells without
// locking. Everything else is serialized by an internal mutex, so methods are
// safe for concurrent use.
type CameraController struct {
	mu      sync.Mutex
	m       Map          // guarded by mu
	pending *bindAction  // guarded by mu
	owner   *motionToken // guarded by mu; the Animate call driving the map

	pose   atomic.Pointer[CameraPose]
	moving atomic.Bool
	reason atomic.Int64

	tokens atomic.Uint64

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// bindAction is the single obligation waiting for the next SetMap. onBind
// receives the new map, or nil when the controller is unbound. onCancel runs
// when another action replaces this one.
type bindAction struct {
	onBind   func(m Map)
	onCancel func()
}

type motionToken struct {
	id uint64
}

// NewCameraController returns an unbound controller at pose.
func NewCameraController(pose CameraPose) *CameraController {
	c := &CameraController{listeners: make(map[int]func())}
	c.pose.Store(&pose)
	c.reason.Store(int64(ReasonNoMovementYet))
	return c
}

// NewCameraControllerFromSaved restores a controller from Save output.
func NewCameraControllerFromSaved(saved map[string]any) (*CameraController, error) {
	pose, err := RestoreCameraPose(saved)
	if err != nil {
		return nil, err
	}
	return NewCameraController(pose), nil
}

// Save returns the controller's pose in SaveCameraPose form. Only the pose
// survives a save and restore.
func (c *CameraController) Save() map[string]any {
	return SaveCameraPose(c.Position())
}

// Position returns the current camera pose. While bound it mirrors the map.
func (c *CameraController) Position() CameraPose {
	return *c.pose.Load()
}

// IsMoving reports whether the bound map's camera is moving.
func (c *CameraController) IsMoving() bool {
	return c.moving.Load()
}

// MoveStartedReason returns why the camera last started moving.
func (c *CameraController) MoveStartedReason() CameraMoveStartedReason {
	return CameraMoveStartedReason(c.reason.Load())
}

// Bound reports whether a map is bound.
func (c *CameraController) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m != nil
}

// HasPendingAction reports whether a command is waiting for the next SetMap:
// a deferred Move or Animate while unbound, or the stop obligation of an
// animation running on the bound map.
func (c *CameraController) HasPendingAction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// AddListener registers fn to run after Position, IsMoving or
// MoveStartedReason changes, and returns a function that removes it.
//
// Listeners run on the goroutine that delivered the change, which may be
// inside a camera command on the bound map or inside SetMap. They must not
// call Move, Animate, SetPosition, SetMap, Bound or HasPendingAction
// synchronously; use platform.Dispatch.
func (c *CameraController) AddListener(fn func()) (remove func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()
	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *CameraController) notifyListeners() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetPosition moves the camera to pose without animation. While unbound the
// pose is stored and applied when a map is bound. SetPosition does not
// cancel an Animate call's claim on the map; the map itself cancels the
// animation in flight.
func (c *CameraController) SetPosition(pose CameraPose) error {
	changed := false
	defer func() {
		if changed {
			c.notifyListeners()
		}
	}()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		changed = *c.pose.Load() != pose
		c.pose.Store(&pose)
		return nil
	}
	return c.m.MoveCamera(NewCameraPosition(pose))
}

// Move applies update instantly. Any Animate call in flight loses its claim
// on the map and is canceled by the map. While unbound, update replaces any
// deferred command and runs when a map is bound.
func (c *CameraController) Move(update CameraUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = nil
	if c.m == nil {
		c.setPendingLocked(&bindAction{
			onBind: func(m Map) {
				if m == nil {
					return
				}
				if err := m.MoveCamera(update); err != nil {
					errors.Report(&errors.MapError{
						Op:   "maps.CameraController.Move",
						Kind: errors.KindCamera,
						Err:  err,
					})
				}
			},
		})
		return nil
	}
	return c.m.MoveCamera(update)
}

// Animate animates the camera with update and blocks until the animation
// finishes, is canceled, or ctx is done. A duration of
// DefaultAnimationDuration uses the map's default.
//
// Only the most recent Move or Animate call is guaranteed to complete; an
// earlier Animate returns ErrAnimationCanceled once a newer command
// supersedes it. While unbound the animation is deferred until a map is
// bound; unbinding before that returns ErrAnimationCanceled. If ctx is done
// first, Animate stops the animation it still owns and returns ctx.Err().
//
// Animate issues StopAnimation on every return while it still owns the
// map's motion, including after a normal finish, so a completed animation
// shows up on the map as animateCamera followed by stopAnimation.
func (c *CameraController) Animate(ctx context.Context, update CameraUpdate, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token := &motionToken{id: c.tokens.Add(1)}
	done := newCompletion()
	var mine *bindAction // guarded by mu

	c.mu.Lock()
	c.owner = token
	if c.m != nil {
		mine = c.animateOnMapLocked(c.m, update, duration, done)
	} else {
		deferred := &bindAction{
			onCancel: func() { done.resolve(ErrAnimationCanceled) },
		}
		deferred.onBind = func(m Map) {
			if m == nil {
				done.resolve(ErrAnimationCanceled)
				return
			}
			// SetMap holds mu while running bind actions.
			mine = c.animateOnMapLocked(m, update, duration, done)
		}
		mine = deferred
		c.setPendingLocked(deferred)
	}
	c.mu.Unlock()

	var err error
	select {
	case err = <-done.ch:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if mine != nil && c.pending == mine {
		c.pending = nil
	}
	if c.owner == token {
		c.owner = nil
		if c.m != nil {
			if stopErr := c.m.StopAnimation(); stopErr != nil && err == nil {
				err = stopErr
			}
		}
	}
	return err
}

// animateOnMapLocked starts the animation on m and arms a bind action that
// stops it if the controller is unbound while it runs. It returns the armed
// action, or nil if the map rejected the command.
func (c *CameraController) animateOnMapLocked(m Map, update CameraUpdate, duration time.Duration, done *completion) *bindAction {
	if err := m.AnimateCamera(update, duration, animationCallback{done: done}); err != nil {
		done.resolve(err)
		return nil
	}
	stop := &bindAction{
		onBind: func(next Map) {
			// SetMap rejects a second map before running bind actions, so
			// next is always nil here.
			if err := m.StopAnimation(); err != nil {
				errors.Report(&errors.MapError{
					Op:   "maps.CameraController.Animate",
					Kind: errors.KindCamera,
					Err:  err,
				})
			}
		},
	}
	c.setPendingLocked(stop)
	return stop
}

func (c *CameraController) setPendingLocked(a *bindAction) {
	if old := c.pending; old != nil && old.onCancel != nil {
		old.onCancel()
	}
	c.pending = a
}

// SetMap binds m to the controller, or unbinds with nil. Binding applies the
// controller's pose to m. Unbinding clears IsMoving. Either way a deferred
// command runs against the new map, or is canceled when unbinding.
//
// Unbinding an unbound controller still cancels its deferred command.
//
// Binding a map while a different one is bound panics with a
// *errors.ContractError wrapping ErrAlreadyBound; the first map stays bound.
// Rebinding the bound map is a no-op.
func (c *CameraController) SetMap(m Map) error {
	changed := false
	defer func() {
		if changed {
			c.notifyListeners()
		}
	}()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.m != nil && m != nil {
		if c.m == m {
			return nil
		}
		errors.Violation("maps.CameraController.SetMap", ErrAlreadyBound,
			"a camera controller may only be bound to one map at a time")
	}

	c.m = m
	var err error
	if m == nil {
		changed = c.moving.Swap(false)
	} else {
		err = m.MoveCamera(NewCameraPosition(c.Position()))
	}
	// Clear the slot before running the action so the action can arm a new one.
	if a := c.pending; a != nil {
		c.pending = nil
		a.onBind(m)
	}
	return err
}

// The on* methods are the write path for CameraBinding. They only touch the
// observable cells.

func (c *CameraController) onMapIdle(pose CameraPose) {
	c.moving.Store(false)
	c.pose.Store(&pose)
	c.notifyListeners()
}

func (c *CameraController) onMapMoveCanceled() {
	if c.moving.Swap(false) {
		c.notifyListeners()
	}
}

func (c *CameraController) onMapMoveStarted(reason CameraMoveStartedReason) {
	c.reason.Store(int64(reason))
	c.moving.Store(true)
	c.notifyListeners()
}

func (c *CameraController) onMapMove(pose CameraPose) {
	c.pose.Store(&pose)
	c.notifyListeners()
}

// completion is resolved at most once; later results are dropped.
type completion struct {
	once sync.Once
	ch   chan error
}

func newCompletion() *completion {
	return &completion{ch: make(chan error, 1)}
}

func (c *completion) resolve(err error) {
	c.once.Do(func() {
		c.ch <- err
	})
}

type animationCallback struct {
	done *completion
}

func (a animationCallback) OnFinish() { a.done.resolve(nil) }
func (a animationCallback) OnCancel() { a.done.resolve(ErrAnimationCanceled) }
