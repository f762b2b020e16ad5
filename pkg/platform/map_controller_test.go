package platform

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-drift/maps/pkg/maps"
)

var sydney = maps.CameraPose{Target: maps.LatLng{Latitude: -33.87, Longitude: 151.21}, Zoom: 12}

func sendAppState(t *testing.T, state AppState) {
	t.Helper()
	data, err := DefaultCodec.Encode(map[string]any{"state": string(state)})
	if err != nil {
		t.Fatal(err)
	}
	if err := HandleEvent(lifecycleEventsChannel, data); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestMapController_AttachFollowsApp(t *testing.T) {
	bridge := setupTestBridge(t)
	camera := maps.NewCameraController(sydney)
	c := NewMapController(camera)
	defer c.Dispose()

	if c.ViewID() == 0 {
		t.Fatal("expected non-zero ViewID")
	}
	if c.State() != maps.Initialized {
		t.Errorf("State() = %s, want initialized", c.State())
	}

	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	// The camera is bound as soon as the map is created.
	want := []string{"onCreate", "moveCamera", "onStart", "onResume"}
	if got := bridge.viewMethods(c.ViewID()); !equalStrings(got, want) {
		t.Errorf("view methods = %v, want %v", got, want)
	}
	if !c.Attached() || !camera.Bound() {
		t.Error("camera not bound after Attach")
	}

	bridge.reset()
	sendAppState(t, AppStatePaused)
	if want := []string{"onPause", "onStop"}; !equalStrings(bridge.viewMethods(c.ViewID()), want) {
		t.Errorf("pause methods = %v, want %v", bridge.viewMethods(c.ViewID()), want)
	}
	bridge.reset()
	sendAppState(t, AppStateResumed)
	if want := []string{"onStart", "onResume"}; !equalStrings(bridge.viewMethods(c.ViewID()), want) {
		t.Errorf("resume methods = %v, want %v", bridge.viewMethods(c.ViewID()), want)
	}
}

func TestMapController_DetachAndReattach(t *testing.T) {
	bridge := setupTestBridge(t)
	camera := maps.NewCameraController(sydney)
	c := NewMapController(camera)
	defer c.Dispose()
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	bridge.reset()

	if err := c.Detach(); err != nil {
		t.Fatal(err)
	}
	if want := []string{"onPause", "onStop"}; !equalStrings(bridge.viewMethods(c.ViewID()), want) {
		t.Errorf("detach methods = %v, want %v", bridge.viewMethods(c.ViewID()), want)
	}
	if c.Attached() || camera.Bound() {
		t.Error("camera still bound after Detach")
	}
	if c.State() != maps.Created {
		t.Errorf("State() = %s, want created", c.State())
	}

	// App events are not observed while detached.
	bridge.reset()
	sendAppState(t, AppStatePaused)
	sendAppState(t, AppStateResumed)
	if got := bridge.viewMethods(c.ViewID()); len(got) != 0 {
		t.Errorf("detached map received %v", got)
	}

	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	got := bridge.viewMethods(c.ViewID())
	for _, m := range got {
		if m == "onCreate" {
			t.Errorf("reattached map was created again: %v", got)
		}
	}
	if !c.Attached() {
		t.Error("camera not bound after reattach")
	}
	if c.State() != maps.Resumed {
		t.Errorf("State() = %s, want resumed", c.State())
	}
}

func TestMapController_BindsWhenHostCreates(t *testing.T) {
	bridge := setupTestBridge(t)
	host := maps.NewLifecycleRegistry()
	c := NewMapController(nil, WithHost(host))
	defer c.Dispose()

	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	if got := bridge.viewMethods(c.ViewID()); len(got) != 0 {
		t.Errorf("map touched before the host was created: %v", got)
	}
	if c.Attached() {
		t.Error("camera bound before the map was created")
	}

	if err := host.MoveTo(maps.Resumed); err != nil {
		t.Fatal(err)
	}
	want := []string{"onCreate", "moveCamera", "onStart", "onResume"}
	if got := bridge.viewMethods(c.ViewID()); !equalStrings(got, want) {
		t.Errorf("view methods = %v, want %v", got, want)
	}
	if !c.Attached() {
		t.Error("camera not bound after host creation")
	}
}

func TestMapController_CameraEvents(t *testing.T) {
	setupTestBridge(t)
	camera := maps.NewCameraController(sydney)
	c := NewMapController(camera)
	defer c.Dispose()
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}

	sendViewEvent(t, c.ViewID(), "onCameraMoveStarted", map[string]any{"reason": 1})
	if !camera.IsMoving() || camera.MoveStartedReason() != maps.ReasonGesture {
		t.Errorf("moving=%v reason=%s, want true/gesture", camera.IsMoving(), camera.MoveStartedReason())
	}

	moved := sydney
	moved.Zoom = 15
	sendViewEvent(t, c.ViewID(), "onCameraIdle", map[string]any{"camera": maps.SaveCameraPose(moved)})
	if camera.IsMoving() {
		t.Error("IsMoving() = true after idle")
	}
	if got := camera.Position(); got != moved {
		t.Errorf("Position() = %v, want %v", got, moved)
	}
}

func TestMapController_Animate(t *testing.T) {
	bridge := setupTestBridge(t)
	camera := maps.NewCameraController(sydney)
	c := NewMapController(camera)
	defer c.Dispose()
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	bridge.reset()

	result := make(chan error, 1)
	go func() {
		result <- camera.Animate(context.Background(), maps.ZoomTo(16), 400*time.Millisecond)
	}()

	var call testBridgeCall
	deadline := time.Now().Add(2 * time.Second)
	for {
		calls := bridge.viewCalls(c.ViewID())
		if len(calls) > 0 {
			call = calls[0]
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for animateCamera")
		}
		time.Sleep(time.Millisecond)
	}
	if call.viewMethod() != "animateCamera" {
		t.Fatalf("first call = %s, want animateCamera", call.viewMethod())
	}

	sendViewEvent(t, c.ViewID(), "onAnimationFinished", map[string]any{"animationId": animationID(t, call)})
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Animate() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Animate did not return")
	}
}

func TestMapController_HookFailure(t *testing.T) {
	bridge := setupTestBridge(t)
	boom := stderrors.New("start failed")
	bridge.failNext("onStart", boom)

	c := NewMapController(nil)
	defer c.Dispose()
	if err := c.Attach(); err != boom {
		t.Fatalf("Attach() = %v, want %v", err, boom)
	}
	if c.State() != maps.Created {
		t.Errorf("State() = %s, want created", c.State())
	}
}

func TestMapController_SetCamera(t *testing.T) {
	bridge := setupTestBridge(t)
	first := maps.NewCameraController(sydney)
	c := NewMapController(first)
	defer c.Dispose()
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	bridge.reset()

	second := maps.NewCameraController(maps.CameraPose{Zoom: 2})
	if err := c.SetCamera(second); err != nil {
		t.Fatal(err)
	}
	if c.Camera() != second || !second.Bound() || first.Bound() {
		t.Error("camera controller not swapped")
	}
	if want := []string{"moveCamera"}; !equalStrings(bridge.viewMethods(c.ViewID()), want) {
		t.Errorf("view methods = %v, want %v", bridge.viewMethods(c.ViewID()), want)
	}
	if err := c.SetCamera(nil); !stderrors.Is(err, ErrInvalidArguments) {
		t.Errorf("SetCamera(nil) = %v, want ErrInvalidArguments", err)
	}
}

func TestMapController_Dispose(t *testing.T) {
	bridge := setupTestBridge(t)
	camera := maps.NewCameraController(sydney)
	c := NewMapController(camera)
	id := c.ViewID()
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}
	bridge.reset()

	c.Dispose()
	want := []string{"onPause", "onStop", "onDestroy"}
	if got := bridge.viewMethods(id); !equalStrings(got, want) {
		t.Errorf("view methods = %v, want %v", got, want)
	}
	if n := len(bridge.methodCalls("dispose")); n != 1 {
		t.Errorf("dispose calls = %d, want 1", n)
	}
	if c.ViewID() != 0 || c.State() != maps.Destroyed {
		t.Errorf("ViewID()=%d State()=%s after Dispose", c.ViewID(), c.State())
	}
	if camera.Bound() {
		t.Error("camera still bound after Dispose")
	}
	if camera.Position() != sydney {
		t.Errorf("camera pose lost: %v", camera.Position())
	}
	if err := c.Attach(); err != ErrDisposed {
		t.Errorf("Attach() after Dispose = %v, want ErrDisposed", err)
	}

	c.Dispose()
	if n := len(bridge.methodCalls("dispose")); n != 1 {
		t.Errorf("dispose calls = %d after second Dispose, want 1", n)
	}
}

func TestMapController_CreateFailure(t *testing.T) {
	bridge := setupTestBridge(t)
	captureErrors(t)
	bridge.failNext("create", stderrors.New("no surface"))

	c := NewMapController(nil)
	if c.ViewID() != 0 {
		t.Errorf("ViewID() = %d, want 0", c.ViewID())
	}
	if err := c.Attach(); err != ErrDisposed {
		t.Errorf("Attach() = %v, want ErrDisposed", err)
	}
	c.Dispose()
}
