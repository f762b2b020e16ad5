package testing

import (
	"errors"
	"testing"
	"time"

	"github.com/go-drift/maps/pkg/maps"
)

type recordingCallback struct {
	finished, canceled int
}

func (r *recordingCallback) OnFinish() { r.finished++ }
func (r *recordingCallback) OnCancel() { r.canceled++ }

func TestFakeMap_MoveCameraFiresListenersInOrder(t *testing.T) {
	f := NewFakeMap(maps.CameraPose{}, nil)
	var events []string
	f.SetOnCameraMoveStartedListener(func(reason int) {
		if reason != int(maps.ReasonDeveloperAnimation) {
			t.Errorf("reason = %d, want developer animation", reason)
		}
		events = append(events, "started")
	})
	f.SetOnCameraMoveListener(func() { events = append(events, "move") })
	f.SetOnCameraIdleListener(func() { events = append(events, "idle") })

	if err := f.MoveCamera(maps.ZoomTo(5)); err != nil {
		t.Fatalf("MoveCamera: %v", err)
	}

	want := []string{"started", "move", "idle"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
	if f.CameraPosition().Zoom != 5 {
		t.Errorf("zoom = %g, want 5", f.CameraPosition().Zoom)
	}
}

func TestFakeMap_NewCommandCancelsAnimation(t *testing.T) {
	f := NewFakeMap(maps.CameraPose{}, nil)
	canceledEvents := 0
	f.SetOnCameraMoveCanceledListener(func() { canceledEvents++ })

	first := &recordingCallback{}
	if err := f.AnimateCamera(maps.ZoomTo(3), 0, first); err != nil {
		t.Fatalf("AnimateCamera: %v", err)
	}
	second := &recordingCallback{}
	if err := f.AnimateCamera(maps.ZoomTo(7), 0, second); err != nil {
		t.Fatalf("AnimateCamera: %v", err)
	}

	if first.canceled != 1 || first.finished != 0 {
		t.Errorf("first callback = %+v, want one cancel", *first)
	}
	if canceledEvents != 1 {
		t.Errorf("move canceled events = %d, want 1", canceledEvents)
	}

	if !f.FinishAnimation() {
		t.Fatal("FinishAnimation() = false, want true")
	}
	if second.finished != 1 || second.canceled != 0 {
		t.Errorf("second callback = %+v, want one finish", *second)
	}
	if f.CameraPosition().Zoom != 7 {
		t.Errorf("zoom = %g, want 7", f.CameraPosition().Zoom)
	}
	if f.FinishAnimation() {
		t.Error("FinishAnimation() with nothing in flight = true")
	}
}

func TestFakeMap_ClockFinishesAnimation(t *testing.T) {
	clk := NewFakeClock()
	f := NewFakeMap(maps.CameraPose{}, clk)
	cb := &recordingCallback{}

	if err := f.AnimateCamera(maps.ZoomBy(2), 0, cb); err != nil {
		t.Fatalf("AnimateCamera: %v", err)
	}
	if got := f.CallsOf(MethodAnimateCamera)[0].Duration; got != DefaultFakeAnimationDuration {
		t.Errorf("recorded duration = %v, want default %v", got, DefaultFakeAnimationDuration)
	}

	clk.Advance(DefaultFakeAnimationDuration - time.Millisecond)
	if cb.finished != 0 {
		t.Fatal("animation finished early")
	}
	clk.Advance(time.Millisecond)
	if cb.finished != 1 {
		t.Errorf("finished = %d, want 1", cb.finished)
	}
	if f.Animating() {
		t.Error("Animating() = true after finish")
	}
}

func TestFakeMap_StopAnimation(t *testing.T) {
	clk := NewFakeClock()
	f := NewFakeMap(maps.CameraPose{}, clk)
	idle := 0
	f.SetOnCameraIdleListener(func() { idle++ })
	cb := &recordingCallback{}

	_ = f.AnimateCamera(maps.ZoomTo(9), time.Second, cb)
	if err := f.StopAnimation(); err != nil {
		t.Fatalf("StopAnimation: %v", err)
	}

	if cb.canceled != 1 {
		t.Errorf("canceled = %d, want 1", cb.canceled)
	}
	if idle != 1 {
		t.Errorf("idle = %d, want 1", idle)
	}
	if clk.Pending() != 0 {
		t.Errorf("clock has %d pending timers after stop", clk.Pending())
	}
	if f.CameraPosition().Zoom != 0 {
		t.Errorf("stopped animation moved the camera to zoom %g", f.CameraPosition().Zoom)
	}
}

func TestFakeMap_FailNext(t *testing.T) {
	f := NewFakeMap(maps.CameraPose{}, nil)
	boom := errors.New("boom")
	f.FailNext(MethodMoveCamera, boom)

	if err := f.MoveCamera(maps.ZoomTo(1)); !errors.Is(err, boom) {
		t.Errorf("first MoveCamera err = %v, want boom", err)
	}
	if err := f.MoveCamera(maps.ZoomTo(1)); err != nil {
		t.Errorf("second MoveCamera err = %v, want nil", err)
	}
	if f.CameraPosition().Zoom != 1 {
		t.Errorf("zoom = %g, want 1", f.CameraPosition().Zoom)
	}
}

func TestFakeMap_RecordsLifecycleHooks(t *testing.T) {
	f := NewFakeMap(maps.CameraPose{}, nil)
	saved := map[string]any{"k": 1}
	_ = f.OnCreate(saved)
	_ = f.OnStart()
	_ = f.OnResume()
	_ = f.OnPause()
	_ = f.OnStop()
	_ = f.OnDestroy()

	want := []string{MethodOnCreate, MethodOnStart, MethodOnResume, MethodOnPause, MethodOnStop, MethodOnDestroy}
	got := f.Methods()
	if len(got) != len(want) {
		t.Fatalf("Methods() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if f.Calls()[0].SavedState["k"] != 1 {
		t.Error("OnCreate did not record the saved state")
	}
}
