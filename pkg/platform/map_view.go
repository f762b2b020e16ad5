package platform

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/maps/pkg/errors"
	"github.com/go-drift/maps/pkg/maps"
)

// MapViewType is the platform view type of native maps.
const MapViewType = "google_map"

// mapView is a platform view wrapping a native map (MapView on Android,
// GMSMapView on iOS). It implements maps.Map over view method calls and
// maps.LifecycleHooks by forwarding each hook to the native view.
//
// Camera listeners run on the UI thread via [Dispatch]. Animation callbacks
// run on the goroutine that delivered the native event.
type mapView struct {
	basePlatformView

	mu         sync.Mutex
	pose       maps.CameraPose
	animations map[int64]maps.AnimationCallback
	idle       func()
	canceled   func()
	started    func(int)
	moving     func()

	nextAnimation atomic.Int64
}

func newMapView(viewID int64) *mapView {
	return &mapView{
		basePlatformView: basePlatformView{
			viewID:   viewID,
			viewType: MapViewType,
		},
		animations: make(map[int64]maps.AnimationCallback),
	}
}

// Create implements PlatformView. An initial "camera" parameter seeds the
// cached pose.
func (v *mapView) Create(params map[string]any) error {
	if camera := parseMap(params["camera"]); camera != nil {
		pose, err := maps.RestoreCameraPose(camera)
		if err != nil {
			return err
		}
		v.mu.Lock()
		v.pose = pose
		v.mu.Unlock()
	}
	return nil
}

// Dispose implements PlatformView. Animations in flight are canceled and
// listeners dropped.
func (v *mapView) Dispose() {
	v.mu.Lock()
	pending := v.takeAnimationsLocked()
	v.idle, v.canceled, v.started, v.moving = nil, nil, nil, nil
	v.mu.Unlock()
	cancelAll(pending)
}

func (v *mapView) invoke(method string, args map[string]any) error {
	_, err := GetPlatformViewRegistry().InvokeViewMethod(v.viewID, method, args)
	return err
}

// MoveCamera implements maps.Map.
func (v *mapView) MoveCamera(update maps.CameraUpdate) error {
	if err := v.invoke("moveCamera", map[string]any{"update": update.Args()}); err != nil {
		return err
	}
	v.mu.Lock()
	v.pose = update.Apply(v.pose)
	pending := v.takeAnimationsLocked()
	v.mu.Unlock()
	cancelAll(pending)
	return nil
}

// AnimateCamera implements maps.Map. The native side reports the outcome
// with onAnimationFinished or onAnimationCanceled carrying the animation ID.
func (v *mapView) AnimateCamera(update maps.CameraUpdate, duration time.Duration, callback maps.AnimationCallback) error {
	id := v.nextAnimation.Add(1)
	args := map[string]any{
		"update":      update.Args(),
		"animationId": id,
	}
	if duration > 0 {
		args["durationMs"] = duration.Milliseconds()
	}

	// Register before invoking so a synchronous native reply finds it. The
	// new command supersedes every earlier animation.
	v.mu.Lock()
	superseded := v.takeAnimationsLocked()
	v.animations[id] = callback
	v.mu.Unlock()
	cancelAll(superseded)

	if err := v.invoke("animateCamera", args); err != nil {
		v.mu.Lock()
		delete(v.animations, id)
		v.mu.Unlock()
		return err
	}
	return nil
}

// StopAnimation implements maps.Map.
func (v *mapView) StopAnimation() error {
	if err := v.invoke("stopAnimation", nil); err != nil {
		return err
	}
	v.mu.Lock()
	pending := v.takeAnimationsLocked()
	v.mu.Unlock()
	cancelAll(pending)
	return nil
}

// CameraPosition implements maps.Map. It returns the pose last reported by
// the native map.
func (v *mapView) CameraPosition() maps.CameraPose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose
}

// SetOnCameraIdleListener implements maps.Map.
func (v *mapView) SetOnCameraIdleListener(listener func()) {
	v.mu.Lock()
	v.idle = listener
	v.mu.Unlock()
}

// SetOnCameraMoveCanceledListener implements maps.Map.
func (v *mapView) SetOnCameraMoveCanceledListener(listener func()) {
	v.mu.Lock()
	v.canceled = listener
	v.mu.Unlock()
}

// SetOnCameraMoveStartedListener implements maps.Map.
func (v *mapView) SetOnCameraMoveStartedListener(listener func(reason int)) {
	v.mu.Lock()
	v.started = listener
	v.mu.Unlock()
}

// SetOnCameraMoveListener implements maps.Map.
func (v *mapView) SetOnCameraMoveListener(listener func()) {
	v.mu.Lock()
	v.moving = listener
	v.mu.Unlock()
}

// OnCreate implements maps.LifecycleHooks.
func (v *mapView) OnCreate(savedState map[string]any) error {
	var args map[string]any
	if savedState != nil {
		args = map[string]any{"savedState": savedState}
	}
	return v.invoke("onCreate", args)
}

// OnStart implements maps.LifecycleHooks.
func (v *mapView) OnStart() error { return v.invoke("onStart", nil) }

// OnResume implements maps.LifecycleHooks.
func (v *mapView) OnResume() error { return v.invoke("onResume", nil) }

// OnPause implements maps.LifecycleHooks.
func (v *mapView) OnPause() error { return v.invoke("onPause", nil) }

// OnStop implements maps.LifecycleHooks.
func (v *mapView) OnStop() error { return v.invoke("onStop", nil) }

// OnDestroy implements maps.LifecycleHooks.
func (v *mapView) OnDestroy() error { return v.invoke("onDestroy", nil) }

// handleViewEvent processes camera events from native.
func (v *mapView) handleViewEvent(method string, args map[string]any) {
	switch method {
	case "onCameraMoveStarted":
		v.updatePose(args)
		reason, ok := toInt(args["reason"])
		if !ok {
			reason = int(maps.ReasonUnknown)
		}
		v.mu.Lock()
		cb := v.started
		v.mu.Unlock()
		if cb != nil {
			dispatchOrRun(func() { cb(reason) })
		}
	case "onCameraMove":
		v.updatePose(args)
		v.dispatch(func() func() { return v.moving })
	case "onCameraMoveCanceled":
		v.updatePose(args)
		v.dispatch(func() func() { return v.canceled })
	case "onCameraIdle":
		v.updatePose(args)
		v.dispatch(func() func() { return v.idle })
	case "onAnimationFinished", "onAnimationCanceled":
		id, ok := toInt64(args["animationId"])
		if !ok {
			v.reportParse("AnimationEvent", args)
			return
		}
		v.mu.Lock()
		cb := v.animations[id]
		delete(v.animations, id)
		v.mu.Unlock()
		if cb == nil {
			return
		}
		if method == "onAnimationFinished" {
			cb.OnFinish()
		} else {
			cb.OnCancel()
		}
	}
}

// dispatch runs the listener selected by pick on the UI thread.
func (v *mapView) dispatch(pick func() func()) {
	v.mu.Lock()
	cb := pick()
	v.mu.Unlock()
	dispatchOrRun(cb)
}

func (v *mapView) updatePose(args map[string]any) {
	camera := parseMap(args["camera"])
	if camera == nil {
		return
	}
	pose, err := maps.RestoreCameraPose(camera)
	if err != nil {
		v.reportParse("CameraPose", args)
		return
	}
	v.mu.Lock()
	v.pose = pose
	v.mu.Unlock()
}

func (v *mapView) reportParse(dataType string, got any) {
	errors.Report(&errors.MapError{
		Op:      "platform.mapView.handleViewEvent",
		Kind:    errors.KindParsing,
		Channel: platformViewsChannel,
		ViewID:  v.viewID,
		Err: &errors.ParseError{
			Channel:  platformViewsChannel,
			DataType: dataType,
			Got:      got,
		},
	})
}

func (v *mapView) takeAnimationsLocked() []maps.AnimationCallback {
	if len(v.animations) == 0 {
		return nil
	}
	out := make([]maps.AnimationCallback, 0, len(v.animations))
	for id, cb := range v.animations {
		out = append(out, cb)
		delete(v.animations, id)
	}
	return out
}

func cancelAll(callbacks []maps.AnimationCallback) {
	for _, cb := range callbacks {
		cb.OnCancel()
	}
}

// mapViewFactory creates native map views.
type mapViewFactory struct{}

func (mapViewFactory) ViewType() string {
	return MapViewType
}

func (mapViewFactory) Create(viewID int64, params map[string]any) (PlatformView, error) {
	return newMapView(viewID), nil
}

func init() {
	GetPlatformViewRegistry().RegisterFactory(mapViewFactory{})
}
