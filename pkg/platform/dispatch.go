package platform

import "sync/atomic"

var dispatcher atomic.Pointer[func(callback func())]

// RegisterDispatch sets the function that schedules callbacks on the UI
// thread. The host engine calls it once during startup; nil unregisters it.
func RegisterDispatch(fn func(callback func())) {
	if fn == nil {
		dispatcher.Store(nil)
		return
	}
	dispatcher.Store(&fn)
}

// Dispatch schedules callback on the UI thread. It returns false if no
// dispatch function is registered or callback is nil.
func Dispatch(callback func()) bool {
	fn := dispatcher.Load()
	if fn == nil || callback == nil {
		return false
	}
	(*fn)(callback)
	return true
}

// dispatchOrRun is Dispatch for camera listeners, which are never dropped:
// without a dispatcher the callback runs on the calling goroutine.
func dispatchOrRun(callback func()) {
	if callback == nil || Dispatch(callback) {
		return
	}
	callback()
}
