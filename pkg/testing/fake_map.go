package testing

import (
	"sync"
	"time"

	"github.com/go-drift/maps/pkg/maps"
)

// Method names recorded by FakeMap.
const (
	MethodMoveCamera    = "moveCamera"
	MethodAnimateCamera = "animateCamera"
	MethodStopAnimation = "stopAnimation"
	MethodOnCreate      = "onCreate"
	MethodOnStart       = "onStart"
	MethodOnResume      = "onResume"
	MethodOnPause       = "onPause"
	MethodOnStop        = "onStop"
	MethodOnDestroy     = "onDestroy"
)

// DefaultFakeAnimationDuration is used when AnimateCamera is asked for the
// map's default duration.
const DefaultFakeAnimationDuration = 300 * time.Millisecond

// Call is one recorded invocation on a FakeMap.
type Call struct {
	Method     string
	Update     maps.CameraUpdate
	Duration   time.Duration
	SavedState map[string]any
}

// FakeMap is an in-memory map resource implementing maps.Map and
// maps.LifecycleHooks. It records every call and follows native camera
// semantics: a new motion command cancels the animation in flight, and camera
// listeners fire in started, moving, idle order.
//
// Animations complete when FinishAnimation is called or, if the map was
// created with a clock, when the clock advances past their duration.
// Listeners and animation callbacks run synchronously on the goroutine that
// triggered them. All methods are safe for concurrent use.
type FakeMap struct {
	mu      sync.Mutex
	clock   *FakeClock
	pose    maps.CameraPose
	calls   []Call
	anim    *fakeAnimation
	failure map[string]error
	notify  chan struct{}

	idle     func()
	canceled func()
	started  func(int)
	moving   func()
}

type fakeAnimation struct {
	target   maps.CameraPose
	callback maps.AnimationCallback
	stop     func() bool
}

// NewFakeMap returns a FakeMap with its camera at pose. clock may be nil.
func NewFakeMap(pose maps.CameraPose, clock *FakeClock) *FakeMap {
	return &FakeMap{
		clock:   clock,
		pose:    pose,
		failure: make(map[string]error),
		notify:  make(chan struct{}, 1),
	}
}

// FailNext makes the next call to method return err.
func (f *FakeMap) FailNext(method string, err error) {
	f.mu.Lock()
	f.failure[method] = err
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *FakeMap) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsOf returns the recorded calls of one method.
func (f *FakeMap) CallsOf(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the recorded method names in order.
func (f *FakeMap) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

// ResetCalls clears the call log.
func (f *FakeMap) ResetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// Changed returns a channel that receives a value after each recorded call.
// It is buffered by one, so a reader sees that at least one call happened
// since its last receive.
func (f *FakeMap) Changed() <-chan struct{} {
	return f.notify
}

// Animating reports whether an animation is in flight.
func (f *FakeMap) Animating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.anim != nil
}

// record appends a call and returns the injected failure, if any.
// Callers hold f.mu.
func (f *FakeMap) record(c Call) error {
	f.calls = append(f.calls, c)
	select {
	case f.notify <- struct{}{}:
	default:
	}
	if err, ok := f.failure[c.Method]; ok {
		delete(f.failure, c.Method)
		return err
	}
	return nil
}

// MoveCamera implements maps.Map.
func (f *FakeMap) MoveCamera(update maps.CameraUpdate) error {
	f.mu.Lock()
	if err := f.record(Call{Method: MethodMoveCamera, Update: update}); err != nil {
		f.mu.Unlock()
		return err
	}
	superseded := f.takeAnimationLocked()
	f.pose = update.Apply(f.pose)
	started, moving, idle, canceled := f.started, f.moving, f.idle, f.canceled
	f.mu.Unlock()

	if superseded != nil {
		superseded.callback.OnCancel()
		call(canceled)
	}
	if started != nil {
		started(int(maps.ReasonDeveloperAnimation))
	}
	call(moving)
	call(idle)
	return nil
}

// AnimateCamera implements maps.Map.
func (f *FakeMap) AnimateCamera(update maps.CameraUpdate, duration time.Duration, callback maps.AnimationCallback) error {
	if duration <= 0 {
		duration = DefaultFakeAnimationDuration
	}
	f.mu.Lock()
	if err := f.record(Call{Method: MethodAnimateCamera, Update: update, Duration: duration}); err != nil {
		f.mu.Unlock()
		return err
	}
	superseded := f.takeAnimationLocked()
	anim := &fakeAnimation{target: update.Apply(f.pose), callback: callback}
	if f.clock != nil {
		anim.stop = f.clock.AfterFunc(duration, func() { f.finish(anim) })
	}
	f.anim = anim
	started, canceled := f.started, f.canceled
	f.mu.Unlock()

	if superseded != nil {
		superseded.callback.OnCancel()
		call(canceled)
	}
	if started != nil {
		started(int(maps.ReasonDeveloperAnimation))
	}
	return nil
}

// StopAnimation implements maps.Map.
func (f *FakeMap) StopAnimation() error {
	f.mu.Lock()
	if err := f.record(Call{Method: MethodStopAnimation}); err != nil {
		f.mu.Unlock()
		return err
	}
	stopped := f.takeAnimationLocked()
	canceled, idle := f.canceled, f.idle
	f.mu.Unlock()

	if stopped != nil {
		stopped.callback.OnCancel()
		call(canceled)
		call(idle)
	}
	return nil
}

// FinishAnimation completes the animation in flight, moving the camera to
// its target. It reports whether an animation was in flight.
func (f *FakeMap) FinishAnimation() bool {
	f.mu.Lock()
	anim := f.anim
	f.mu.Unlock()
	if anim == nil {
		return false
	}
	return f.finish(anim)
}

func (f *FakeMap) finish(anim *fakeAnimation) bool {
	f.mu.Lock()
	if f.anim != anim {
		f.mu.Unlock()
		return false
	}
	f.anim = nil
	f.pose = anim.target
	moving, idle := f.moving, f.idle
	f.mu.Unlock()

	call(moving)
	anim.callback.OnFinish()
	call(idle)
	return true
}

// Gesture moves the camera as if the user dragged it.
func (f *FakeMap) Gesture(update maps.CameraUpdate) {
	f.mu.Lock()
	superseded := f.takeAnimationLocked()
	f.pose = update.Apply(f.pose)
	started, moving, idle, canceled := f.started, f.moving, f.idle, f.canceled
	f.mu.Unlock()

	if superseded != nil {
		superseded.callback.OnCancel()
		call(canceled)
	}
	if started != nil {
		started(int(maps.ReasonGesture))
	}
	call(moving)
	call(idle)
}

func (f *FakeMap) takeAnimationLocked() *fakeAnimation {
	anim := f.anim
	f.anim = nil
	if anim != nil && anim.stop != nil {
		anim.stop()
	}
	return anim
}

// CameraPosition implements maps.Map.
func (f *FakeMap) CameraPosition() maps.CameraPose {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose
}

// SetOnCameraIdleListener implements maps.Map.
func (f *FakeMap) SetOnCameraIdleListener(listener func()) {
	f.mu.Lock()
	f.idle = listener
	f.mu.Unlock()
}

// SetOnCameraMoveCanceledListener implements maps.Map.
func (f *FakeMap) SetOnCameraMoveCanceledListener(listener func()) {
	f.mu.Lock()
	f.canceled = listener
	f.mu.Unlock()
}

// SetOnCameraMoveStartedListener implements maps.Map.
func (f *FakeMap) SetOnCameraMoveStartedListener(listener func(reason int)) {
	f.mu.Lock()
	f.started = listener
	f.mu.Unlock()
}

// SetOnCameraMoveListener implements maps.Map.
func (f *FakeMap) SetOnCameraMoveListener(listener func()) {
	f.mu.Lock()
	f.moving = listener
	f.mu.Unlock()
}

// HasListeners reports whether any camera listener is registered.
func (f *FakeMap) HasListeners() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle != nil || f.canceled != nil || f.started != nil || f.moving != nil
}

func (f *FakeMap) hook(method string, saved map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(Call{Method: method, SavedState: saved})
}

// OnCreate implements maps.LifecycleHooks.
func (f *FakeMap) OnCreate(savedState map[string]any) error {
	return f.hook(MethodOnCreate, savedState)
}

// OnStart implements maps.LifecycleHooks.
func (f *FakeMap) OnStart() error { return f.hook(MethodOnStart, nil) }

// OnResume implements maps.LifecycleHooks.
func (f *FakeMap) OnResume() error { return f.hook(MethodOnResume, nil) }

// OnPause implements maps.LifecycleHooks.
func (f *FakeMap) OnPause() error { return f.hook(MethodOnPause, nil) }

// OnStop implements maps.LifecycleHooks.
func (f *FakeMap) OnStop() error { return f.hook(MethodOnStop, nil) }

// OnDestroy implements maps.LifecycleHooks.
func (f *FakeMap) OnDestroy() error { return f.hook(MethodOnDestroy, nil) }

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
