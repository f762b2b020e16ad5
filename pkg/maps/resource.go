package maps

import "time"

// DefaultAnimationDuration asks the map to use its own animation duration.
const DefaultAnimationDuration time.Duration = 0

// Map is the camera surface of a native map resource.
//
// Listener setters hold a single subscriber each: setting a listener
// replaces the previous one and nil clears it.
type Map interface {
	// MoveCamera repositions the camera instantly. It supersedes any
	// animation in flight, which reports OnCancel.
	MoveCamera(update CameraUpdate) error

	// AnimateCamera starts an animated move and returns immediately. The
	// callback receives exactly one of OnFinish or OnCancel. A new motion
	// command cancels the animation in flight.
	AnimateCamera(update CameraUpdate, duration time.Duration, callback AnimationCallback) error

	// StopAnimation cancels the animation in flight, if any.
	StopAnimation() error

	// CameraPosition returns a snapshot of the current camera pose.
	CameraPosition() CameraPose

	SetOnCameraIdleListener(listener func())
	SetOnCameraMoveCanceledListener(listener func())
	SetOnCameraMoveStartedListener(listener func(reason int))
	SetOnCameraMoveListener(listener func())
}

// AnimationCallback receives the outcome of Map.AnimateCamera.
type AnimationCallback interface {
	OnFinish()
	OnCancel()
}

// LifecycleHooks are the lifecycle entry points of a map view. The view
// requires them in strict order; LifecycleController guarantees it.
type LifecycleHooks interface {
	OnCreate(savedState map[string]any) error
	OnStart() error
	OnResume() error
	OnPause() error
	OnStop() error
	OnDestroy() error
}

// HostLifecycle is the lifecycle of whatever hosts the map view, usually the
// app's activity or scene.
type HostLifecycle interface {
	// CurrentState returns the host's current state.
	CurrentState() LifecycleState

	// Observe registers fn for subsequent host events and returns a function
	// that removes it. Observe does not replay past events.
	Observe(fn func(LifecycleEvent)) (cancel func())
}
