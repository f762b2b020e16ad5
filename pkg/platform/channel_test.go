package platform

import (
	stderrors "errors"
	"testing"
)

func TestEventChannel_StartsWhenBridgeInstalled(t *testing.T) {
	t.Cleanup(ResetForTest)
	ch := NewEventChannel("test/late_bridge")

	var events []any
	sub := ch.Listen(EventHandler{OnEvent: func(data any) { events = append(events, data) }})

	bridge := &testBridge{}
	SetNativeBridge(bridge)
	if len(bridge.started) == 0 {
		t.Fatal("no streams started")
	}
	found := false
	for _, name := range bridge.started {
		if name == "test/late_bridge" {
			found = true
		}
	}
	if !found {
		t.Errorf("started = %v, want test/late_bridge", bridge.started)
	}

	if err := HandleEvent("test/late_bridge", []byte(`{"n":1}`)); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}

	sub.Cancel()
	sub.Cancel()
	if len(bridge.stopped) != 1 || bridge.stopped[0] != "test/late_bridge" {
		t.Errorf("stopped = %v, want [test/late_bridge]", bridge.stopped)
	}
	if err := HandleEvent("test/late_bridge", []byte(`{"n":2}`)); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("canceled subscription received %v", events)
	}
}

func TestEventChannel_StartFailure(t *testing.T) {
	bridge := setupTestBridge(t)
	captureErrors(t)
	boom := stderrors.New("stream refused")
	bridge.startErr = boom

	var got error
	NewEventChannel("test/refused").Listen(EventHandler{OnError: func(err error) { got = err }})
	if got != boom {
		t.Errorf("OnError got %v, want %v", got, boom)
	}
}

func TestEventChannel_ErrorsAndDone(t *testing.T) {
	setupTestBridge(t)
	ch := NewEventChannel("test/stream")

	var errs []error
	done := 0
	sub := ch.Listen(EventHandler{
		OnError: func(err error) { errs = append(errs, err) },
		OnDone:  func() { done++ },
	})

	if err := HandleEventError("test/stream", "gps_off", "location disabled"); err != nil {
		t.Fatal(err)
	}
	var ce *ChannelError
	if len(errs) != 1 || !stderrors.As(errs[0], &ce) || ce.Code != "gps_off" {
		t.Errorf("errors = %v", errs)
	}

	if err := HandleEvent("test/stream", []byte("{not json")); err == nil {
		t.Error("malformed event accepted")
	}
	if len(errs) != 2 {
		t.Errorf("decode error not delivered: %v", errs)
	}

	if err := HandleEventDone("test/stream"); err != nil {
		t.Fatal(err)
	}
	if done != 1 || !sub.IsCanceled() {
		t.Errorf("done=%d canceled=%v", done, sub.IsCanceled())
	}
}

func TestHandleEvent_UnknownChannel(t *testing.T) {
	setupTestBridge(t)
	captureErrors(t)
	if err := HandleEvent("test/nowhere", nil); !stderrors.Is(err, ErrChannelNotRegistered) {
		t.Errorf("HandleEvent() = %v, want ErrChannelNotRegistered", err)
	}
}

func TestMethodChannel_RoundTrip(t *testing.T) {
	bridge := setupTestBridge(t)
	ch := NewMethodChannel("test/methods")
	ch.SetHandler(func(method string, args any) (any, error) {
		m := parseMap(args)
		return map[string]any{"echo": m["value"]}, nil
	})

	out, err := HandleMethodCall("test/methods", "echo", []byte(`{"value":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"echo":"hi"}` {
		t.Errorf("result = %s", out)
	}
	if _, err := HandleMethodCall("test/missing", "echo", nil); err != ErrChannelNotFound {
		t.Errorf("missing channel error = %v", err)
	}

	if _, err := ch.Invoke("ping", map[string]any{"n": 1}); err != nil {
		t.Fatal(err)
	}
	calls := bridge.methodCalls("ping")
	if len(calls) != 1 || calls[0].channel != "test/methods" {
		t.Errorf("calls = %+v", calls)
	}
}
