package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/maps/pkg/errors"
)

// channelRegistry holds every channel by name so the bridge can route
// incoming calls and events.
type channelRegistry struct {
	mu             sync.RWMutex
	methodChannels map[string]*MethodChannel
	eventChannels  map[string]*EventChannel
}

var registry = &channelRegistry{
	methodChannels: make(map[string]*MethodChannel),
	eventChannels:  make(map[string]*EventChannel),
}

func (r *channelRegistry) registerMethod(name string, ch *MethodChannel) {
	r.mu.Lock()
	r.methodChannels[name] = ch
	r.mu.Unlock()
}

func (r *channelRegistry) registerEvent(name string, ch *EventChannel) {
	r.mu.Lock()
	r.eventChannels[name] = ch
	r.mu.Unlock()
}

func (r *channelRegistry) getMethodChannel(name string) *MethodChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.methodChannels[name]
}

func (r *channelRegistry) getEventChannel(name string) *EventChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.eventChannels[name]
}

func (r *channelRegistry) events() []*EventChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*EventChannel, 0, len(r.eventChannels))
	for _, ch := range r.eventChannels {
		out = append(out, ch)
	}
	return out
}

// NativeBridge is the interface to native platform code.
type NativeBridge interface {
	// InvokeMethod calls a method on the native side.
	InvokeMethod(channel, method string, args []byte) ([]byte, error)

	// StartEventStream tells native to start sending events for a channel.
	StartEventStream(channel string) error

	// StopEventStream tells native to stop sending events for a channel.
	StopEventStream(channel string) error
}

var (
	bridgeMu     sync.RWMutex
	nativeBridge NativeBridge
)

// builtinInits re-create the package's own listeners (lifecycle, platform
// view events). ResetForTest replays them after dropping subscriptions.
var builtinInits []func()

func registerBuiltinInit(fn func()) {
	builtinInits = append(builtinInits, fn)
	fn()
}

// SetNativeBridge installs the native bridge. Event channels that gained
// subscribers before a bridge was available start their streams now; a
// start failure is delivered to the channel's error handlers.
func SetNativeBridge(bridge NativeBridge) {
	bridgeMu.Lock()
	nativeBridge = bridge
	bridgeMu.Unlock()

	if bridge == nil {
		return
	}
	for _, ch := range registry.events() {
		ch.startIfPending()
	}
}

func currentBridge() NativeBridge {
	bridgeMu.RLock()
	defer bridgeMu.RUnlock()
	return nativeBridge
}

func bridgeInstalled() bool {
	return currentBridge() != nil
}

func invokeNative(channel, method string, args any) (any, error) {
	bridge := currentBridge()
	if bridge == nil {
		return nil, ErrPlatformUnavailable
	}
	argsData, err := DefaultCodec.Encode(args)
	if err != nil {
		return nil, err
	}
	resultData, err := bridge.InvokeMethod(channel, method, argsData)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Decode(resultData)
}

func startEventStream(channel string) error {
	return streamCall("platform.startEventStream", channel, NativeBridge.StartEventStream)
}

func stopEventStream(channel string) error {
	return streamCall("platform.stopEventStream", channel, NativeBridge.StopEventStream)
}

func streamCall(op, channel string, fn func(NativeBridge, string) error) error {
	bridge := currentBridge()
	err := ErrPlatformUnavailable
	if bridge != nil {
		err = fn(bridge, channel)
	}
	if err != nil {
		errors.Report(&errors.MapError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     err,
		})
	}
	return err
}

// HandleMethodCall is called by the bridge when native code invokes a Go
// method.
func HandleMethodCall(channel, method string, argsData []byte) ([]byte, error) {
	ch := registry.getMethodChannel(channel)
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	args, err := DefaultCodec.Decode(argsData)
	if err != nil {
		return nil, err
	}
	result, err := ch.handleCall(method, args)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Encode(result)
}

// HandleEvent is called by the bridge when native code sends an event.
func HandleEvent(channel string, eventData []byte) error {
	ch, err := eventChannel("platform.HandleEvent", channel)
	if err != nil {
		return err
	}
	data, err := DefaultCodec.Decode(eventData)
	if err != nil {
		ch.dispatchError(err)
		return err
	}
	ch.dispatchEvent(data)
	return nil
}

// HandleEventError is called by the bridge when an event stream fails.
func HandleEventError(channel string, code, message string) error {
	ch, err := eventChannel("platform.HandleEventError", channel)
	if err != nil {
		return err
	}
	ch.dispatchError(NewChannelError(code, message))
	return nil
}

// HandleEventDone is called by the bridge when an event stream ends.
func HandleEventDone(channel string) error {
	ch, err := eventChannel("platform.HandleEventDone", channel)
	if err != nil {
		return err
	}
	ch.dispatchDone()
	return nil
}

func eventChannel(op, name string) (*EventChannel, error) {
	ch := registry.getEventChannel(name)
	if ch == nil {
		err := fmt.Errorf("%w: %s", ErrChannelNotRegistered, name)
		errors.Report(&errors.MapError{
			Op:      op,
			Kind:    errors.KindPlatform,
			Channel: name,
			Err:     err,
		})
		return nil, err
	}
	return ch, nil
}

// ResetForTest restores the package to its freshly initialized state: no
// bridge, no dispatch function, no platform views, a resumed host lifecycle
// and only the built-in listeners. It should only be called from tests.
func ResetForTest() {
	SetNativeBridge(nil)
	RegisterDispatch(nil)

	for _, ch := range registry.events() {
		ch.reset()
	}

	platformViewRegistry.reset()
	Lifecycle.reset()

	for _, fn := range builtinInits {
		fn()
	}
}
