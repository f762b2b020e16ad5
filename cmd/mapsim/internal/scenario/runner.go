package scenario

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-drift/maps/pkg/errors"
	"github.com/go-drift/maps/pkg/maps"
	mapstest "github.com/go-drift/maps/pkg/testing"
)

// Animation outcomes used in expectations.
const (
	OutcomePending  = "pending"
	OutcomeFinished = "finished"
	OutcomeCanceled = "canceled"
	OutcomeFailed   = "failed"
)

const (
	settleTimeout = 2 * time.Second
	settleTick    = 2 * time.Millisecond
	settleRounds  = 5
)

// ErrNotSettled is returned when camera commands are still running after a
// step and do not come to rest.
var ErrNotSettled = stderrors.New("scenario: camera did not settle")

// Options configure a Runner.
type Options struct {
	// DefaultDuration is used by animate steps without a duration. Zero
	// leaves the choice to the map.
	DefaultDuration time.Duration
	// Out receives the step and call trace. Nil discards it.
	Out io.Writer
	// Logger receives progress records.
	Logger zerolog.Logger
}

// Runner replays scenarios.
type Runner struct {
	opts Options
}

// NewRunner returns a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{opts: opts}
}

// Result is the outcome of a replayed scenario.
type Result struct {
	// Calls is every call the map received, in order.
	Calls []mapstest.Call
	// State is the map view's final lifecycle state.
	State maps.LifecycleState
	// Position is the camera controller's final pose.
	Position maps.CameraPose
	// Animations maps named animations to their outcome.
	Animations map[string]string
}

// ExpectationError reports the failed conditions of an expect step.
type ExpectationError struct {
	Step     int
	Line     int
	Problems []string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("step %d (line %d): expectation failed: %s", e.Step, e.Line, strings.Join(e.Problems, "; "))
}

// StepError reports a step that failed to run.
type StepError struct {
	Step int
	Line int
	Kind string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (line %d) %s: %v", e.Step, e.Line, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Run replays sc against a fresh in-memory map. It stops at the first step
// that fails or expectation that does not hold. Animations still running
// when the scenario ends are canceled.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	s := newSession(r.opts, sc)
	defer s.close()

	r.opts.Logger.Info().Str("scenario", sc.Name).Str("version", sc.Version).Int("steps", len(sc.Steps)).Msg("running scenario")
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		fmt.Fprintf(r.opts.Out, "step %d: %s\n", i+1, step)
		err := s.run(step)
		if serr := s.settle(); err == nil {
			err = serr
		}
		s.printCalls()
		if err != nil {
			var expectErr *ExpectationError
			if stderrors.As(err, &expectErr) {
				expectErr.Step, expectErr.Line = i+1, step.Line
				return s.result(), expectErr
			}
			return s.result(), &StepError{Step: i + 1, Line: step.Line, Kind: step.Kind, Err: err}
		}
		r.opts.Logger.Debug().Int("step", i+1).Str("kind", step.Kind).Stringer("state", s.lifecycle.State()).Msg("step done")
	}
	return s.result(), nil
}

// session is the state of one replay.
type session struct {
	opts      Options
	clock     *mapstest.FakeClock
	fake      *mapstest.FakeMap
	host      *maps.LifecycleRegistry
	camera    *maps.CameraController
	lifecycle *maps.LifecycleController

	// bindMu is taken after the lifecycle controller's lock.
	bindMu   sync.Mutex
	binding  *maps.CameraBinding
	attached bool

	animations []*animation
	byName     map[string]*animation
	printed    int
	expected   int
}

func newSession(opts Options, sc *Scenario) *session {
	s := &session{
		opts:   opts,
		clock:  mapstest.NewFakeClock(),
		host:   maps.NewLifecycleRegistry(),
		camera: maps.NewCameraController(sc.Camera.CameraPose()),
		byName: make(map[string]*animation),
	}
	s.fake = mapstest.NewFakeMap(sc.Map.CameraPose(), s.clock)
	lifecycleOpts := []maps.LifecycleOption{maps.WithTransitionObserver(s.onTransition)}
	if sc.Reused {
		lifecycleOpts = append(lifecycleOpts, maps.WithReused())
	}
	s.lifecycle = maps.NewLifecycleController(s.fake, lifecycleOpts...)
	return s
}

func (s *session) onTransition(edge maps.LifecycleEdge, skipped bool) {
	s.opts.Logger.Debug().
		Stringer("event", edge.Event).
		Stringer("to", edge.To).
		Bool("skipped", skipped).
		Msg("lifecycle transition")
	if edge.To < maps.Created {
		return
	}
	if err := s.bind(); err != nil {
		errors.Report(&errors.MapError{
			Op:   "scenario.bind",
			Kind: errors.KindCamera,
			Err:  err,
		})
	}
}

func (s *session) bind() error {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	if !s.attached || s.binding != nil {
		return nil
	}
	binding, err := maps.BindCamera(s.fake, s.camera)
	if err != nil {
		return err
	}
	s.binding = binding
	return nil
}

func (s *session) unbind() error {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	s.attached = false
	if s.binding == nil {
		return nil
	}
	err := s.binding.Close()
	s.binding = nil
	return err
}

func (s *session) run(step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var contract *errors.ContractError
			if e, ok := r.(error); ok && stderrors.As(e, &contract) {
				err = contract
				return
			}
			panic(r)
		}
	}()

	switch step.Kind {
	case StepLifecycle:
		target, err := parseHostTarget(step.Lifecycle)
		if err != nil {
			return err
		}
		if target.isEvent {
			s.host.HandleEvent(target.event)
			return nil
		}
		return s.host.MoveTo(target.state)
	case StepAttach:
		s.bindMu.Lock()
		s.attached = true
		s.bindMu.Unlock()
		if err := s.lifecycle.Attach(s.host); err != nil {
			return err
		}
		if s.lifecycle.State() >= maps.Created {
			return s.bind()
		}
		return nil
	case StepDetach:
		err := s.unbind()
		if lerr := s.lifecycle.Detach(); err == nil {
			err = lerr
		}
		return err
	case StepDestroy:
		err := s.unbind()
		if lerr := s.lifecycle.Destroy(); err == nil {
			err = lerr
		}
		return err
	case StepPosition:
		return s.camera.SetPosition(step.Pose.CameraPose())
	case StepMove:
		update, err := step.Update.CameraUpdate()
		if err != nil {
			return err
		}
		return s.camera.Move(update)
	case StepGesture:
		update, err := step.Update.CameraUpdate()
		if err != nil {
			return err
		}
		s.fake.Gesture(update)
		return nil
	case StepAnimate:
		return s.animate(step.Animate)
	case StepAdvance:
		s.clock.Advance(step.Advance)
		return nil
	case StepCancel:
		a, ok := s.byName[step.Cancel]
		if !ok {
			return fmt.Errorf("unknown animation %q", step.Cancel)
		}
		a.cancel()
		return nil
	case StepFail:
		s.fake.FailNext(step.Fail.Method, stderrors.New(step.Fail.Error))
		return nil
	case StepExpect:
		return s.check(step.Expect)
	default:
		return fmt.Errorf("unknown step %q", step.Kind)
	}
}

func (s *session) animate(anim Animate) error {
	update, err := anim.CameraUpdate()
	if err != nil {
		return err
	}
	duration := anim.Duration
	if duration == 0 {
		duration = s.opts.DefaultDuration
	}
	a := startAnimation(s.camera, update, duration)
	s.animations = append(s.animations, a)
	if anim.Name != "" {
		s.byName[anim.Name] = a
	}
	return nil
}

// settle waits until every animation has returned or is parked waiting for
// its outcome, and the map has been quiet for a few ticks.
func (s *session) settle() error {
	deadline := time.Now().Add(settleTimeout)
	calls := len(s.fake.Calls())
	quiet := 0
	for quiet < settleRounds {
		busy := false
		for _, a := range s.animations {
			changed, settled := a.poll()
			if changed || !settled {
				busy = true
			}
		}
		if n := len(s.fake.Calls()); n != calls || busy {
			calls = n
			quiet = 0
		} else {
			quiet++
		}
		if time.Now().After(deadline) {
			return ErrNotSettled
		}
		time.Sleep(settleTick)
	}
	return nil
}

func (s *session) printCalls() {
	calls := s.fake.Calls()
	for _, c := range calls[s.printed:] {
		fmt.Fprintf(s.opts.Out, "  %s\n", formatCall(c))
	}
	s.printed = len(calls)
}

func formatCall(c mapstest.Call) string {
	switch c.Method {
	case mapstest.MethodMoveCamera:
		return fmt.Sprintf("%s %s", c.Method, c.Update)
	case mapstest.MethodAnimateCamera:
		return fmt.Sprintf("%s %s over %s", c.Method, c.Update, c.Duration)
	default:
		return c.Method
	}
}

func (s *session) check(e Expect) error {
	var problems []string
	failf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if e.State != "" {
		if got := s.lifecycle.State().String(); got != e.State {
			failf("state is %s, want %s", got, e.State)
		}
	}
	if e.Host != "" {
		if got := s.host.CurrentState().String(); got != e.Host {
			failf("host is %s, want %s", got, e.Host)
		}
	}
	if e.Moving != nil && s.camera.IsMoving() != *e.Moving {
		failf("moving is %t, want %t", s.camera.IsMoving(), *e.Moving)
	}
	if e.Bound != nil && s.camera.Bound() != *e.Bound {
		failf("bound is %t, want %t", s.camera.Bound(), *e.Bound)
	}
	if e.Reason != "" {
		if got := s.camera.MoveStartedReason().String(); got != e.Reason {
			failf("reason is %s, want %s", got, e.Reason)
		}
	}
	if e.Position != nil {
		if got, want := s.camera.Position(), e.Position.CameraPose(); got != want {
			failf("position is %s, want %s", got, want)
		}
	}
	if e.Calls != nil {
		calls := s.awaitCalls(len(e.Calls))
		got := calls[s.expected:]
		s.expected = len(calls)
		if !equalStrings(got, e.Calls) {
			failf("calls are %v, want %v", got, e.Calls)
		}
	}
	names := make([]string, 0, len(e.Animations))
	for name := range e.Animations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a, ok := s.byName[name]
		if !ok {
			failf("animation %s never started", name)
			continue
		}
		want := e.Animations[name]
		if want != OutcomePending {
			a.await(settleTimeout)
		}
		if got := a.outcome(); got != want {
			failf("animation %s is %s, want %s", name, got, want)
		}
	}

	if len(problems) > 0 {
		return &ExpectationError{Problems: problems}
	}
	return nil
}

// awaitCalls returns the recorded method names once at least n calls
// followed the previous calls expectation, or after settleTimeout.
func (s *session) awaitCalls(n int) []string {
	deadline := time.Now().Add(settleTimeout)
	for {
		calls := s.fake.Methods()
		if len(calls)-s.expected >= n || time.Now().After(deadline) {
			return calls
		}
		select {
		case <-s.fake.Changed():
		case <-time.After(settleTick):
		}
	}
}

func (s *session) result() *Result {
	res := &Result{
		Calls:      s.fake.Calls(),
		State:      s.lifecycle.State(),
		Position:   s.camera.Position(),
		Animations: make(map[string]string, len(s.byName)),
	}
	for name, a := range s.byName {
		res.Animations[name] = a.outcome()
	}
	return res
}

func (s *session) close() {
	for _, a := range s.animations {
		a.cancel()
	}
	for _, a := range s.animations {
		a.wait()
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
