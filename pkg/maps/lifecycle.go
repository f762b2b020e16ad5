package maps

import "fmt"

// LifecycleState is a lifecycle state of a map view.
// States are ordered: Destroyed < Initialized < Created < Started < Resumed.
type LifecycleState int

const (
	// Destroyed is terminal; no edge leaves it.
	Destroyed LifecycleState = iota
	Initialized
	Created
	Started
	Resumed
)

func (s LifecycleState) String() string {
	switch s {
	case Destroyed:
		return "destroyed"
	case Initialized:
		return "initialized"
	case Created:
		return "created"
	case Started:
		return "started"
	case Resumed:
		return "resumed"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// ParseLifecycleState parses the String form of a state.
func ParseLifecycleState(s string) (LifecycleState, error) {
	for st := Destroyed; st <= Resumed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle state %q", s)
}

// LifecycleEvent is a lifecycle transition.
type LifecycleEvent int

const (
	OnCreate LifecycleEvent = iota + 1
	OnStart
	OnResume
	OnPause
	OnStop
	OnDestroy
	// OnAny matches every event in observers. It has no target state and
	// cannot be used to drive a transition.
	OnAny
)

var eventNames = map[LifecycleEvent]string{
	OnCreate:  "create",
	OnStart:   "start",
	OnResume:  "resume",
	OnPause:   "pause",
	OnStop:    "stop",
	OnDestroy: "destroy",
	OnAny:     "any",
}

func (e LifecycleEvent) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("LifecycleEvent(%d)", int(e))
}

// ParseLifecycleEvent parses the String form of an event.
func ParseLifecycleEvent(s string) (LifecycleEvent, error) {
	for e, name := range eventNames {
		if name == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle event %q", s)
}

// TargetState returns the state an event leads to. ok is false for OnAny
// and unknown events.
func (e LifecycleEvent) TargetState() (state LifecycleState, ok bool) {
	switch e {
	case OnCreate, OnStop:
		return Created, true
	case OnStart, OnPause:
		return Started, true
	case OnResume:
		return Resumed, true
	case OnDestroy:
		return Destroyed, true
	default:
		return 0, false
	}
}

// Up returns the event that follows e when moving up.
func (e LifecycleEvent) Up() (LifecycleEvent, bool) {
	return e.follow(Up)
}

// Down returns the event that follows e when moving down.
func (e LifecycleEvent) Down() (LifecycleEvent, bool) {
	return e.follow(Down)
}

func (e LifecycleEvent) follow(dir Direction) (LifecycleEvent, bool) {
	state, ok := e.TargetState()
	if !ok {
		return 0, false
	}
	edge, ok := defaultGraph.Next(state, dir)
	if !ok || edge.Silent {
		return 0, false
	}
	return edge.Event, true
}

// Direction is the direction of travel through the lifecycle graph.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// LifecycleEdge is one transition of the lifecycle graph.
type LifecycleEdge struct {
	Event LifecycleEvent
	From  LifecycleState
	To    LifecycleState
	// Silent edges change the state without invoking a hook.
	Silent bool
}

// LifecycleGraph describes the valid lifecycle transitions with explicit up
// and down adjacency: each state has at most one outgoing edge per
// direction, so the path between two states is unique.
type LifecycleGraph struct {
	up   map[LifecycleState]LifecycleEdge
	down map[LifecycleState]LifecycleEdge
}

var defaultGraph = NewLifecycleGraph()

// NewLifecycleGraph returns the map view lifecycle:
//
//	initialized -create-> created -start-> started -resume-> resumed
//	resumed -pause-> started -stop-> created -destroy-> destroyed
//	initialized -destroy(silent)-> destroyed
//
// A view that was never created is destroyed without a hook call.
func NewLifecycleGraph() *LifecycleGraph {
	g := &LifecycleGraph{
		up:   make(map[LifecycleState]LifecycleEdge),
		down: make(map[LifecycleState]LifecycleEdge),
	}
	g.add(Up, LifecycleEdge{Event: OnCreate, From: Initialized, To: Created})
	g.add(Up, LifecycleEdge{Event: OnStart, From: Created, To: Started})
	g.add(Up, LifecycleEdge{Event: OnResume, From: Started, To: Resumed})
	g.add(Down, LifecycleEdge{Event: OnPause, From: Resumed, To: Started})
	g.add(Down, LifecycleEdge{Event: OnStop, From: Started, To: Created})
	g.add(Down, LifecycleEdge{Event: OnDestroy, From: Created, To: Destroyed})
	g.add(Down, LifecycleEdge{Event: OnDestroy, From: Initialized, To: Destroyed, Silent: true})
	return g
}

func (g *LifecycleGraph) add(dir Direction, edge LifecycleEdge) {
	if dir == Up {
		g.up[edge.From] = edge
	} else {
		g.down[edge.From] = edge
	}
}

// Next returns the single edge leaving from in direction dir.
func (g *LifecycleGraph) Next(from LifecycleState, dir Direction) (LifecycleEdge, bool) {
	var edge LifecycleEdge
	var ok bool
	if dir == Up {
		edge, ok = g.up[from]
	} else {
		edge, ok = g.down[from]
	}
	return edge, ok
}

// DirectionOf returns Up when to is at or above from, Down otherwise.
func DirectionOf(from, to LifecycleState) Direction {
	if to >= from {
		return Up
	}
	return Down
}

// Path returns the edges from one state to another, in order. The path is
// empty when from == to.
func (g *LifecycleGraph) Path(from, to LifecycleState) ([]LifecycleEdge, error) {
	dir := DirectionOf(from, to)
	var path []LifecycleEdge
	for cur := from; cur != to; {
		edge, ok := g.Next(cur, dir)
		if !ok {
			return nil, fmt.Errorf("no lifecycle path from %s to %s: no edge %s from %s", from, to, dir, cur)
		}
		path = append(path, edge)
		cur = edge.To
	}
	return path, nil
}
