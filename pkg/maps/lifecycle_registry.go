package maps

import (
	"sort"
	"sync"
)

// LifecycleRegistry is an in-memory HostLifecycle. Hosts that receive their
// lifecycle from elsewhere (a platform channel, a test) feed it with
// HandleEvent or MoveTo.
type LifecycleRegistry struct {
	mu        sync.Mutex
	state     LifecycleState
	observers map[int]func(LifecycleEvent)
	nextID    int
}

// NewLifecycleRegistry returns a registry in the Initialized state.
func NewLifecycleRegistry() *LifecycleRegistry {
	return &LifecycleRegistry{
		state:     Initialized,
		observers: make(map[int]func(LifecycleEvent)),
	}
}

// CurrentState implements HostLifecycle.
func (r *LifecycleRegistry) CurrentState() LifecycleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Observe implements HostLifecycle.
func (r *LifecycleRegistry) Observe(fn func(LifecycleEvent)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, id)
			r.mu.Unlock()
		})
	}
}

// ObserverCount returns the number of registered observers.
func (r *LifecycleRegistry) ObserverCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// HandleEvent records event as the host's new state and delivers it to every
// observer, in registration order. Events may jump several states; observers
// are expected to fill the gap. Events without a target state are ignored.
func (r *LifecycleRegistry) HandleEvent(event LifecycleEvent) {
	target, ok := event.TargetState()
	if !ok {
		return
	}
	r.mu.Lock()
	if r.state == target {
		r.mu.Unlock()
		return
	}
	r.state = target
	observers := r.snapshotLocked()
	r.mu.Unlock()

	for _, fn := range observers {
		fn(event)
	}
}

// MoveTo steps the host to target one edge at a time, delivering every
// intermediate event.
func (r *LifecycleRegistry) MoveTo(target LifecycleState) error {
	path, err := defaultGraph.Path(r.CurrentState(), target)
	if err != nil {
		return err
	}
	for _, edge := range path {
		r.HandleEvent(edge.Event)
	}
	return nil
}

func (r *LifecycleRegistry) snapshotLocked() []func(LifecycleEvent) {
	ids := make([]int, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(LifecycleEvent), len(ids))
	for i, id := range ids {
		out[i] = r.observers[id]
	}
	return out
}
