package scenario

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-drift/maps/pkg/maps"
)

// animation is one CameraController.Animate call running on its own
// goroutine.
type animation struct {
	ctx    *parkingContext
	cancel context.CancelFunc
	result chan error

	// Read and written by the runner goroutine only.
	done bool
	err  error
}

func startAnimation(camera *maps.CameraController, update maps.CameraUpdate, duration time.Duration) *animation {
	base, cancel := context.WithCancel(context.Background())
	a := &animation{
		ctx:    newParkingContext(base),
		cancel: cancel,
		result: make(chan error, 1),
	}
	go func() {
		a.result <- camera.Animate(a.ctx, update, duration)
	}()
	return a
}

// poll collects the result if the call has returned. changed reports a
// newly collected result; settled reports that the call returned or is
// waiting for its outcome.
func (a *animation) poll() (changed, settled bool) {
	if a.done {
		return false, true
	}
	select {
	case err := <-a.result:
		a.done, a.err = true, err
		return true, true
	default:
	}
	select {
	case <-a.ctx.parked:
		return false, true
	default:
		return false, false
	}
}

// await waits up to timeout for the call to return.
func (a *animation) await(timeout time.Duration) {
	if a.done {
		return
	}
	select {
	case a.err = <-a.result:
		a.done = true
	case <-time.After(timeout):
	}
}

func (a *animation) wait() {
	if !a.done {
		a.err = <-a.result
		a.done = true
	}
}

func (a *animation) outcome() string {
	switch {
	case !a.done:
		return OutcomePending
	case a.err == nil:
		return OutcomeFinished
	case stderrors.Is(a.err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}

// parkingContext marks the moment Animate starts waiting for its outcome.
// Animate reads Done only after it has issued or deferred its command.
type parkingContext struct {
	context.Context
	once   sync.Once
	parked chan struct{}
}

func newParkingContext(ctx context.Context) *parkingContext {
	return &parkingContext{Context: ctx, parked: make(chan struct{})}
}

func (c *parkingContext) Done() <-chan struct{} {
	c.once.Do(func() { close(c.parked) })
	return c.Context.Done()
}
