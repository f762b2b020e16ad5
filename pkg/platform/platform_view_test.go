package platform

import (
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/go-drift/maps/pkg/errors"
)

// --- Test helpers ---

// testBridge captures native method invocations for assertions.
type testBridge struct {
	mu       sync.Mutex
	calls    []testBridgeCall
	fail     map[string]error
	started  []string
	stopped  []string
	startErr error
}

type testBridgeCall struct {
	channel string
	method  string
	args    map[string]any // JSON-decoded
}

// viewMethod returns the view method of an invokeViewMethod call.
func (c testBridgeCall) viewMethod() string {
	if c.method != "invokeViewMethod" {
		return ""
	}
	s, _ := c.args["method"].(string)
	return s
}

func (b *testBridge) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	var args map[string]any
	if len(argsData) > 0 {
		_ = json.Unmarshal(argsData, &args)
	}
	call := testBridgeCall{channel: channel, method: method, args: args}
	key := method
	if vm := call.viewMethod(); vm != "" {
		key = vm
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	err := b.fail[key]
	delete(b.fail, key)
	b.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return DefaultCodec.Encode(nil)
}

func (b *testBridge) StartEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, channel)
	return b.startErr
}

func (b *testBridge) StopEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = append(b.stopped, channel)
	return nil
}

// failNext makes the next bridge call of method (or view method) fail.
func (b *testBridge) failNext(method string, err error) {
	b.mu.Lock()
	if b.fail == nil {
		b.fail = make(map[string]error)
	}
	b.fail[method] = err
	b.mu.Unlock()
}

func (b *testBridge) methodCalls(method string) []testBridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []testBridgeCall
	for _, c := range b.calls {
		if c.method == method {
			result = append(result, c)
		}
	}
	return result
}

// viewCalls returns the invokeViewMethod calls for one view.
func (b *testBridge) viewCalls(viewID int64) []testBridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []testBridgeCall
	for _, c := range b.calls {
		if c.viewMethod() == "" {
			continue
		}
		if id, _ := toInt64(c.args["viewId"]); id == viewID {
			result = append(result, c)
		}
	}
	return result
}

// viewMethods returns the view method names invoked on one view, in order.
func (b *testBridge) viewMethods(viewID int64) []string {
	var names []string
	for _, c := range b.viewCalls(viewID) {
		names = append(names, c.viewMethod())
	}
	return names
}

func (b *testBridge) reset() {
	b.mu.Lock()
	b.calls = b.calls[:0]
	b.mu.Unlock()
}

func setupTestBridge(t *testing.T) *testBridge {
	t.Helper()
	bridge := &testBridge{}
	SetupTestBridge(t.Cleanup)
	SetNativeBridge(bridge)
	return bridge
}

// captureHandler records reported errors.
type captureHandler struct {
	mu     sync.Mutex
	errs   []*errors.MapError
	panics []*errors.PanicError
}

func (h *captureHandler) HandleError(err *errors.MapError) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *captureHandler) HandlePanic(err *errors.PanicError) {
	h.mu.Lock()
	h.panics = append(h.panics, err)
	h.mu.Unlock()
}

func (h *captureHandler) kinds() []errors.ErrorKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []errors.ErrorKind
	for _, e := range h.errs {
		out = append(out, e.Kind)
	}
	return out
}

func captureErrors(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return h
}

// sendViewEvent simulates a native event arriving for a platform view.
func sendViewEvent(t *testing.T, viewID int64, method string, args map[string]any) {
	t.Helper()
	payload := map[string]any{"viewId": viewID, "method": method}
	for k, v := range args {
		payload[k] = v
	}
	data, err := DefaultCodec.Encode(payload)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if err := HandleEvent(platformViewsChannel, data); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Tests ---

func TestPlatformViewRegistry_CreateAndDispose(t *testing.T) {
	bridge := setupTestBridge(t)
	r := GetPlatformViewRegistry()

	view, err := r.Create(MapViewType, map[string]any{"zoom": 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.ViewID() != 1 {
		t.Errorf("ViewID() = %d, want 1", view.ViewID())
	}
	if r.GetView(view.ViewID()) != view {
		t.Error("GetView did not return the created view")
	}

	creates := bridge.methodCalls("create")
	if len(creates) != 1 {
		t.Fatalf("create calls = %d, want 1", len(creates))
	}
	if creates[0].args["viewType"] != MapViewType {
		t.Errorf("viewType = %v, want %s", creates[0].args["viewType"], MapViewType)
	}

	r.Dispose(view.ViewID())
	if r.ViewCount() != 0 {
		t.Errorf("ViewCount() = %d after Dispose", r.ViewCount())
	}
	if n := len(bridge.methodCalls("dispose")); n != 1 {
		t.Errorf("dispose calls = %d, want 1", n)
	}

	// Unknown IDs are ignored.
	r.Dispose(view.ViewID())
	if n := len(bridge.methodCalls("dispose")); n != 1 {
		t.Errorf("dispose calls = %d after second Dispose, want 1", n)
	}
}

func TestPlatformViewRegistry_UnknownType(t *testing.T) {
	setupTestBridge(t)
	if _, err := GetPlatformViewRegistry().Create("street_view", nil); err != ErrViewTypeNotFound {
		t.Errorf("Create() error = %v, want ErrViewTypeNotFound", err)
	}
}

func TestPlatformViewRegistry_CreateFailureRollsBack(t *testing.T) {
	bridge := setupTestBridge(t)
	boom := stderrors.New("no surface")
	bridge.failNext("create", boom)

	r := GetPlatformViewRegistry()
	if _, err := r.Create(MapViewType, nil); err != boom {
		t.Fatalf("Create() error = %v, want %v", err, boom)
	}
	if r.ViewCount() != 0 {
		t.Errorf("ViewCount() = %d, want 0", r.ViewCount())
	}
}

func TestPlatformViewRegistry_InvokeViewMethod(t *testing.T) {
	bridge := setupTestBridge(t)
	args := map[string]any{"zoom": 4.0}

	if _, err := GetPlatformViewRegistry().InvokeViewMethod(7, "moveCamera", args); err != nil {
		t.Fatal(err)
	}
	if len(args) != 1 {
		t.Errorf("caller args mutated: %v", args)
	}
	calls := bridge.viewCalls(7)
	if len(calls) != 1 || calls[0].viewMethod() != "moveCamera" || calls[0].args["zoom"] != 4.0 {
		t.Errorf("calls = %+v", calls)
	}
}

func TestPlatformViewRegistry_MalformedEvent(t *testing.T) {
	setupTestBridge(t)
	h := captureErrors(t)

	data, _ := DefaultCodec.Encode(map[string]any{"method": "onCameraIdle"})
	if err := HandleEvent(platformViewsChannel, data); err != nil {
		t.Fatal(err)
	}
	kinds := h.kinds()
	if len(kinds) != 1 || kinds[0] != errors.KindParsing {
		t.Errorf("reported kinds = %v, want [parsing]", kinds)
	}

	// Events for views that do not exist are dropped silently.
	sendViewEvent(t, 99, "onCameraIdle", nil)
	if n := len(h.kinds()); n != 1 {
		t.Errorf("reported %d errors, want 1", n)
	}
}
