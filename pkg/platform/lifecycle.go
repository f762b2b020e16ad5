package platform

import (
	"sync"

	"github.com/go-drift/maps/pkg/errors"
	"github.com/go-drift/maps/pkg/maps"
)

const lifecycleEventsChannel = "drift/lifecycle/events"

// AppState is the host app lifecycle state reported by native code.
type AppState string

const (
	// AppStateResumed indicates the app is visible and responding to user input.
	AppStateResumed AppState = "resumed"

	// AppStateInactive indicates the app is visible but not focused, for
	// example behind a system dialog.
	AppStateInactive AppState = "inactive"

	// AppStatePaused indicates the app is not visible but still running.
	AppStatePaused AppState = "paused"

	// AppStateDetached indicates the app is still hosted but has no view.
	AppStateDetached AppState = "detached"
)

// ViewState returns the map view state that matches s. Unknown states map
// to Created, where a map holds no rendering resources.
func (s AppState) ViewState() maps.LifecycleState {
	switch s {
	case AppStateResumed:
		return maps.Resumed
	case AppStateInactive:
		return maps.Started
	default:
		return maps.Created
	}
}

// Lifecycle is the host app lifecycle. It implements maps.HostLifecycle, so
// a MapController attached to it follows the app.
var Lifecycle = newLifecycleService()

// LifecycleService tracks the app state from "drift/lifecycle/events" and
// republishes it as map view lifecycle events.
type LifecycleService struct {
	channel *MethodChannel
	events  *EventChannel

	mu    sync.RWMutex
	state AppState
	host  *maps.LifecycleRegistry
}

func newLifecycleService() *LifecycleService {
	l := &LifecycleService{
		channel: NewMethodChannel("drift/lifecycle"),
		events:  NewEventChannel(lifecycleEventsChannel),
	}
	l.reset()
	return l
}

func init() {
	registerBuiltinInit(Lifecycle.listen)
}

func (l *LifecycleService) listen() {
	l.States().Listen(l.updateState)

	l.channel.SetHandler(func(method string, args any) (any, error) {
		if method != "didChangeState" {
			return nil, ErrMethodNotFound
		}
		state, ok := parseAppState(args)
		if !ok {
			return nil, ErrInvalidArguments
		}
		l.updateState(state)
		return nil, nil
	})
}

// States returns the stream of app states reported by native code.
func (l *LifecycleService) States() *Stream[AppState] {
	return NewStream(l.events, parseAppStateEvent)
}

func parseAppState(data any) (AppState, bool) {
	state := parseString(parseMap(data)["state"])
	return AppState(state), state != ""
}

func parseAppStateEvent(data any) (AppState, error) {
	state, ok := parseAppState(data)
	if !ok {
		return "", &errors.ParseError{
			Channel:  lifecycleEventsChannel,
			DataType: "AppState",
			Got:      data,
		}
	}
	return state, nil
}

// State returns the current app state.
func (l *LifecycleService) State() AppState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsResumed reports whether the app is in the foreground.
func (l *LifecycleService) IsResumed() bool {
	return l.State() == AppStateResumed
}

// CurrentState implements maps.HostLifecycle.
func (l *LifecycleService) CurrentState() maps.LifecycleState {
	return l.registry().CurrentState()
}

// Observe implements maps.HostLifecycle. Observers run on the goroutine
// that delivered the native event.
func (l *LifecycleService) Observe(fn func(maps.LifecycleEvent)) (cancel func()) {
	return l.registry().Observe(fn)
}

func (l *LifecycleService) registry() *maps.LifecycleRegistry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.host
}

// updateState records state and walks observers to the matching view
// state one event at a time.
func (l *LifecycleService) updateState(state AppState) {
	l.mu.Lock()
	if l.state == state {
		l.mu.Unlock()
		return
	}
	l.state = state
	host := l.host
	l.mu.Unlock()

	if err := host.MoveTo(state.ViewState()); err != nil {
		errors.Report(&errors.MapError{
			Op:      "lifecycle.updateState",
			Kind:    errors.KindLifecycle,
			Channel: lifecycleEventsChannel,
			Err:     err,
		})
	}
}

// reset restores the initial resumed state and drops all observers.
func (l *LifecycleService) reset() {
	host := maps.NewLifecycleRegistry()
	// The app is running by the time Go code executes.
	_ = host.MoveTo(maps.Resumed)
	l.mu.Lock()
	l.state = AppStateResumed
	l.host = host
	l.mu.Unlock()
}
