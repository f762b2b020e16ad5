package maps

import "sync"

// CameraBinding connects a CameraController to a Map. While active it
// republishes the map's camera callbacks into the controller:
//
//   - move started: MoveStartedReason is set and IsMoving becomes true
//   - moving: Position follows the map
//   - move canceled: IsMoving becomes false
//   - idle: IsMoving becomes false and Position is refreshed
//
// The binding owns the map's four camera listener slots.
type CameraBinding struct {
	mu     sync.Mutex
	m      Map
	camera *CameraController // nil once closed
}

// BindCamera binds camera to m and starts forwarding m's camera callbacks.
// If applying the camera's pose to m fails, the binding is rolled back and
// the error returned.
func BindCamera(m Map, camera *CameraController) (*CameraBinding, error) {
	b := &CameraBinding{m: m}
	if err := b.bindLocked(camera); err != nil {
		return nil, err
	}
	return b, nil
}

// Camera returns the bound controller, or nil after Close.
func (b *CameraBinding) Camera() *CameraController {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.camera
}

// Update rebinds the map to camera if it differs from the current one. The
// previous controller is unbound first, so its pending commands are
// canceled and its pose stays where the map left it.
func (b *CameraBinding) Update(camera *CameraController) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.camera == camera {
		return nil
	}
	if err := b.unbindLocked(); err != nil {
		return err
	}
	return b.bindLocked(camera)
}

// Close clears the map's camera listeners and unbinds the controller.
// Close is idempotent.
func (b *CameraBinding) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unbindLocked()
}

func (b *CameraBinding) bindLocked(camera *CameraController) error {
	if camera == nil {
		return nil
	}
	// Listeners go in first: binding moves the map and may run a deferred
	// command, and their callbacks must reach the controller.
	b.setListeners(camera)
	defer func() {
		if b.camera != camera {
			b.clearListeners()
		}
	}()
	if err := camera.SetMap(b.m); err != nil {
		_ = camera.SetMap(nil)
		return err
	}
	b.camera = camera
	return nil
}

func (b *CameraBinding) setListeners(camera *CameraController) {
	m := b.m
	m.SetOnCameraIdleListener(func() {
		camera.onMapIdle(m.CameraPosition())
	})
	m.SetOnCameraMoveCanceledListener(func() {
		camera.onMapMoveCanceled()
	})
	m.SetOnCameraMoveStartedListener(func(reason int) {
		camera.onMapMoveStarted(ReasonFromCode(reason))
	})
	m.SetOnCameraMoveListener(func() {
		camera.onMapMove(m.CameraPosition())
	})
}

func (b *CameraBinding) clearListeners() {
	b.m.SetOnCameraIdleListener(nil)
	b.m.SetOnCameraMoveCanceledListener(nil)
	b.m.SetOnCameraMoveStartedListener(nil)
	b.m.SetOnCameraMoveListener(nil)
}

func (b *CameraBinding) unbindLocked() error {
	if b.camera == nil {
		return nil
	}
	b.clearListeners()
	camera := b.camera
	b.camera = nil
	return camera.SetMap(nil)
}
