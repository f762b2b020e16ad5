package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/maps/pkg/errors"
	"github.com/go-drift/maps/pkg/maps"
)

// MapOption configures a MapController.
type MapOption func(*mapOptions)

type mapOptions struct {
	host       maps.HostLifecycle
	savedState map[string]any
}

// WithHost makes the controller follow host instead of the app [Lifecycle].
func WithHost(host maps.HostLifecycle) MapOption {
	return func(o *mapOptions) {
		o.host = host
	}
}

// WithSavedState passes a restored state bundle to the native map's create
// hook.
func WithSavedState(saved map[string]any) MapOption {
	return func(o *mapOptions) {
		o.savedState = saved
	}
}

// MapController embeds a native map and drives it from Go. The controller
// creates its platform view eagerly; the native map is created and started
// when the controller is attached and follows the host lifecycle from then
// on. While attached and created, the camera controller is bound to the map.
//
//	camera := maps.NewCameraController(maps.CameraPose{Target: sydney, Zoom: 12})
//	c := platform.NewMapController(camera)
//	if err := c.Attach(); err != nil { ... }
//	defer c.Dispose()
//	err := camera.Animate(ctx, maps.ZoomBy(1), maps.DefaultAnimationDuration)
//
// All methods are safe for concurrent use.
type MapController struct {
	mu        sync.RWMutex
	view      *mapView                  // guarded by mu
	viewID    int64                     // guarded by mu
	lifecycle *maps.LifecycleController // guarded by mu
	host      maps.HostLifecycle

	// bindMu is taken after mu and after the lifecycle controller's lock.
	bindMu   sync.Mutex
	camera   *maps.CameraController // guarded by bindMu
	binding  *maps.CameraBinding    // guarded by bindMu; nil while unbound
	attached bool                   // guarded by bindMu
}

// NewMapController creates a map controller for camera. A nil camera gets a
// controller at the zero pose.
func NewMapController(camera *maps.CameraController, opts ...MapOption) *MapController {
	o := mapOptions{host: Lifecycle}
	for _, opt := range opts {
		opt(&o)
	}
	if camera == nil {
		camera = maps.NewCameraController(maps.CameraPose{})
	}
	c := &MapController{camera: camera, host: o.host}

	view, err := GetPlatformViewRegistry().Create(MapViewType, map[string]any{
		"camera": camera.Save(),
	})
	if err != nil {
		errors.Report(&errors.MapError{
			Op:   "NewMapController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("failed to create map view: %w", err),
		})
		return c
	}
	mv, ok := view.(*mapView)
	if !ok {
		errors.Report(&errors.MapError{
			Op:   "NewMapController",
			Kind: errors.KindPlatform,
			Err:  fmt.Errorf("unexpected view type: %T", view),
		})
		return c
	}

	c.view = mv
	c.viewID = mv.ViewID()
	c.lifecycle = maps.NewLifecycleController(mv,
		maps.WithSavedState(o.savedState),
		maps.WithTransitionObserver(func(edge maps.LifecycleEdge, _ bool) {
			c.onTransition(mv, edge)
		}),
	)
	return c
}

// onTransition binds the camera once the native map exists. It runs with
// the lifecycle controller's lock held.
func (c *MapController) onTransition(mv *mapView, edge maps.LifecycleEdge) {
	if edge.To < maps.Created {
		return
	}
	if err := c.bind(mv); err != nil {
		errors.Report(&errors.MapError{
			Op:     "MapController.bind",
			Kind:   errors.KindCamera,
			ViewID: mv.ViewID(),
			Err:    err,
		})
	}
}

func (c *MapController) bind(mv *mapView) error {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	if !c.attached || c.binding != nil {
		return nil
	}
	binding, err := maps.BindCamera(mv, c.camera)
	if err != nil {
		return err
	}
	c.binding = binding
	return nil
}

func (c *MapController) unbind() error {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	c.attached = false
	if c.binding == nil {
		return nil
	}
	err := c.binding.Close()
	c.binding = nil
	return err
}

// ViewID returns the platform view ID, or 0 if there is no view.
func (c *MapController) ViewID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewID
}

// Camera returns the camera controller.
func (c *MapController) Camera() *maps.CameraController {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	return c.camera
}

// State returns the native map's lifecycle state.
func (c *MapController) State() maps.LifecycleState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.view == nil {
		return maps.Destroyed
	}
	return c.lifecycle.State()
}

// Attach starts following the host lifecycle. The camera controller is
// bound as soon as the native map has been created.
func (c *MapController) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ErrDisposed
	}
	c.bindMu.Lock()
	c.attached = true
	c.bindMu.Unlock()

	if err := c.lifecycle.Attach(c.host); err != nil {
		return err
	}
	// A reattached map is already created and takes no create edge.
	if c.lifecycle.State() >= maps.Created {
		return c.bind(c.view)
	}
	return nil
}

// Detach unbinds the camera controller and stops the native map without
// destroying it, so it can be attached again.
func (c *MapController) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ErrDisposed
	}
	err := c.unbind()
	if lerr := c.lifecycle.Detach(); err == nil {
		err = lerr
	}
	return err
}

// Attached reports whether the camera controller is bound to the map.
func (c *MapController) Attached() bool {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	return c.binding != nil
}

// SetCamera replaces the camera controller. While bound, the old controller
// is unbound and the new one bound to the map.
func (c *MapController) SetCamera(camera *maps.CameraController) error {
	if camera == nil {
		return fmt.Errorf("platform: nil camera controller: %w", ErrInvalidArguments)
	}
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	c.camera = camera
	if c.binding == nil {
		return nil
	}
	return c.binding.Update(camera)
}

// SetFrame positions the native map in logical pixels.
func (c *MapController) SetFrame(frame Rect) error {
	c.mu.RLock()
	v := c.view
	c.mu.RUnlock()
	if v == nil {
		return ErrDisposed
	}
	return v.SetFrame(frame)
}

// Dispose destroys the native map and releases the platform view. The
// camera controller is unbound and keeps its last pose. Dispose is
// idempotent.
func (c *MapController) Dispose() {
	c.mu.Lock()
	id := c.viewID
	var err error
	if c.view != nil {
		err = c.unbind()
		if lerr := c.lifecycle.Destroy(); err == nil {
			err = lerr
		}
	}
	c.view = nil
	c.viewID = 0
	c.mu.Unlock()

	if err != nil {
		errors.Report(&errors.MapError{
			Op:     "MapController.Dispose",
			Kind:   errors.KindLifecycle,
			ViewID: id,
			Err:    err,
		})
	}
	if id != 0 {
		GetPlatformViewRegistry().Dispose(id)
	}
}
