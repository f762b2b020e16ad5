// Package scenario loads YAML map scenarios and replays them against an
// in-memory map.
//
// A scenario lists steps that drive a host lifecycle, a map view and its
// camera controller, and expectations checked along the way:
//
//	version: v1.1.0
//	name: fly to sydney
//	camera: {lat: -33.86, lng: 151.2, zoom: 10}
//	steps:
//	  - lifecycle: resumed
//	  - attach
//	  - animate: {name: fly, zoom: 14, duration: 1s}
//	  - advance: 1s
//	  - expect:
//	      moving: false
//	      animations: {fly: finished}
package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/maps/pkg/maps"
)

// CurrentVersion is the newest scenario format this build understands.
// Scenarios may declare any older version with the same major version.
const CurrentVersion = "v1.1.0"

// Step kinds.
const (
	StepLifecycle = "lifecycle"
	StepAttach    = "attach"
	StepDetach    = "detach"
	StepDestroy   = "destroy"
	StepPosition  = "position"
	StepMove      = "move"
	StepAnimate   = "animate"
	StepAdvance   = "advance"
	StepCancel    = "cancel"
	StepExpect    = "expect"
	StepGesture   = "gesture"
	StepFail      = "fail"
)

// stepVersions records the format version that introduced each step kind.
var stepVersions = map[string]string{
	StepLifecycle: "v1.0.0",
	StepAttach:    "v1.0.0",
	StepDetach:    "v1.0.0",
	StepDestroy:   "v1.0.0",
	StepPosition:  "v1.0.0",
	StepMove:      "v1.0.0",
	StepAnimate:   "v1.0.0",
	StepAdvance:   "v1.0.0",
	StepCancel:    "v1.0.0",
	StepExpect:    "v1.0.0",
	StepGesture:   "v1.1.0",
	StepFail:      "v1.1.0",
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
	// Camera is the camera controller's initial pose.
	Camera Pose `yaml:"camera"`
	// Map is the native map's pose before the camera is bound.
	Map Pose `yaml:"map"`
	// Reused starts the view as a reused one, whose first create hook is
	// skipped.
	Reused bool   `yaml:"reused"`
	Steps  []Step `yaml:"steps"`
}

// Pose is a camera pose in scenario form.
type Pose struct {
	Lat     float64 `yaml:"lat"`
	Lng     float64 `yaml:"lng"`
	Zoom    float64 `yaml:"zoom"`
	Bearing float64 `yaml:"bearing"`
	Tilt    float64 `yaml:"tilt"`
}

// CameraPose converts p.
func (p Pose) CameraPose() maps.CameraPose {
	return maps.CameraPose{
		Target:  maps.LatLng{Latitude: p.Lat, Longitude: p.Lng},
		Zoom:    p.Zoom,
		Bearing: p.Bearing,
		Tilt:    p.Tilt,
	}
}

// Update is a camera update in scenario form. Exactly one form must be
// used: position, lat/lng (with optional zoom), zoom, zoom_by, or
// scroll_lat/scroll_lng.
type Update struct {
	Position  *Pose    `yaml:"position"`
	Lat       *float64 `yaml:"lat"`
	Lng       *float64 `yaml:"lng"`
	Zoom      *float64 `yaml:"zoom"`
	ZoomBy    *float64 `yaml:"zoom_by"`
	ScrollLat *float64 `yaml:"scroll_lat"`
	ScrollLng *float64 `yaml:"scroll_lng"`
}

// CameraUpdate converts u.
func (u Update) CameraUpdate() (maps.CameraUpdate, error) {
	forms := 0
	var update maps.CameraUpdate
	if u.Position != nil {
		forms++
		update = maps.NewCameraPosition(u.Position.CameraPose())
	}
	if u.Lat != nil || u.Lng != nil {
		forms++
		if u.Lat == nil || u.Lng == nil {
			return update, fmt.Errorf("update needs both lat and lng")
		}
		target := maps.LatLng{Latitude: *u.Lat, Longitude: *u.Lng}
		if u.Zoom != nil {
			update = maps.NewLatLngZoom(target, *u.Zoom)
		} else {
			update = maps.NewLatLng(target)
		}
	} else if u.Zoom != nil {
		forms++
		update = maps.ZoomTo(*u.Zoom)
	}
	if u.ZoomBy != nil {
		forms++
		update = maps.ZoomBy(*u.ZoomBy)
	}
	if u.ScrollLat != nil || u.ScrollLng != nil {
		forms++
		update = maps.ScrollBy(deref(u.ScrollLat), deref(u.ScrollLng))
	}
	switch forms {
	case 0:
		return update, fmt.Errorf("empty camera update")
	case 1:
		return update, nil
	default:
		return update, fmt.Errorf("camera update mixes %d forms", forms)
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Animate is the argument of an animate step.
type Animate struct {
	// Name identifies the animation in cancel steps and expectations.
	Name   string `yaml:"name"`
	Update `yaml:",inline"`
	// Duration of zero selects the configured default duration.
	Duration time.Duration `yaml:"duration"`
}

// Fail is the argument of a fail step: the next call to Method on the map
// returns Error.
type Fail struct {
	Method string `yaml:"method"`
	Error  string `yaml:"error"`
}

// Expect lists the conditions checked by an expect step. Unset fields are
// not checked.
type Expect struct {
	// State is the map view's lifecycle state.
	State string `yaml:"state"`
	// Host is the host's lifecycle state.
	Host     string `yaml:"host"`
	Moving   *bool  `yaml:"moving"`
	Bound    *bool  `yaml:"bound"`
	Reason   string `yaml:"reason"`
	Position *Pose  `yaml:"position"`
	// Calls are the map methods called since the previous expectation that
	// listed calls, in order.
	Calls []string `yaml:"calls"`
	// Animations maps animation names to pending, finished, canceled or
	// failed.
	Animations map[string]string `yaml:"animations"`
}

// Step is one scenario step. In YAML a step is either a bare kind
// ("attach") or a single-key mapping from kind to argument.
type Step struct {
	Kind string
	Line int

	Lifecycle string
	Pose      Pose
	Update    Update
	Animate   Animate
	Advance   time.Duration
	Cancel    string
	Expect    Expect
	Fail      Fail
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	s.Line = node.Line
	var arg *yaml.Node
	switch node.Kind {
	case yaml.ScalarNode:
		s.Kind = node.Value
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: a step has exactly one kind, got %d keys", node.Line, len(node.Content)/2)
		}
		s.Kind = node.Content[0].Value
		arg = node.Content[1]
	default:
		return fmt.Errorf("line %d: a step is a kind or a single-key mapping", node.Line)
	}
	if _, ok := stepVersions[s.Kind]; !ok {
		return fmt.Errorf("line %d: unknown step %q", node.Line, s.Kind)
	}
	if arg == nil || arg.ShortTag() == "!!null" {
		return s.requireNoArg()
	}

	var err error
	switch s.Kind {
	case StepLifecycle:
		err = arg.Decode(&s.Lifecycle)
	case StepPosition:
		err = arg.Decode(&s.Pose)
	case StepMove, StepGesture:
		err = arg.Decode(&s.Update)
	case StepAnimate:
		err = arg.Decode(&s.Animate)
	case StepAdvance:
		err = arg.Decode(&s.Advance)
	case StepCancel:
		err = arg.Decode(&s.Cancel)
	case StepExpect:
		err = arg.Decode(&s.Expect)
	case StepFail:
		err = arg.Decode(&s.Fail)
	}
	if err != nil {
		return fmt.Errorf("line %d: %s: %w", node.Line, s.Kind, err)
	}
	return nil
}

func (s *Step) requireNoArg() error {
	switch s.Kind {
	case StepAttach, StepDetach, StepDestroy, StepExpect:
		return nil
	default:
		return fmt.Errorf("line %d: step %q needs an argument", s.Line, s.Kind)
	}
}

func (s Step) String() string {
	switch s.Kind {
	case StepLifecycle:
		return s.Kind + " " + s.Lifecycle
	case StepAdvance:
		return s.Kind + " " + s.Advance.String()
	case StepCancel:
		return s.Kind + " " + s.Cancel
	case StepAnimate:
		if s.Animate.Name != "" {
			return s.Kind + " " + s.Animate.Name
		}
	case StepFail:
		return s.Kind + " " + s.Fail.Method
	}
	return s.Kind
}

// Load reads and parses the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse parses and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the format version against this build and every step
// against the declared version.
func (sc *Scenario) Validate() error {
	version, err := normalizeVersion(sc.Version)
	if err != nil {
		return err
	}
	if semver.Major(version) != semver.Major(CurrentVersion) || semver.Compare(version, CurrentVersion) > 0 {
		return fmt.Errorf("scenario version %s is not supported (this build reads up to %s)", version, CurrentVersion)
	}
	sc.Version = version

	names := make(map[string]bool)
	for i, step := range sc.Steps {
		if since := stepVersions[step.Kind]; semver.Compare(version, since) < 0 {
			return fmt.Errorf("step %d (line %d): %s steps need scenario version %s, have %s", i+1, step.Line, step.Kind, since, version)
		}
		if err := sc.validateStep(step, names); err != nil {
			return fmt.Errorf("step %d (line %d): %w", i+1, step.Line, err)
		}
	}
	return nil
}

func (sc *Scenario) validateStep(step Step, names map[string]bool) error {
	switch step.Kind {
	case StepLifecycle:
		if _, err := parseHostTarget(step.Lifecycle); err != nil {
			return err
		}
	case StepMove, StepGesture:
		if _, err := step.Update.CameraUpdate(); err != nil {
			return err
		}
	case StepAnimate:
		if _, err := step.Animate.CameraUpdate(); err != nil {
			return err
		}
		if step.Animate.Duration < 0 {
			return fmt.Errorf("negative animation duration %s", step.Animate.Duration)
		}
		if name := step.Animate.Name; name != "" {
			if names[name] {
				return fmt.Errorf("duplicate animation name %q", name)
			}
			names[name] = true
		}
	case StepAdvance:
		if step.Advance <= 0 {
			return fmt.Errorf("advance needs a positive duration")
		}
	case StepCancel:
		if !names[step.Cancel] {
			return fmt.Errorf("cancel of unknown animation %q", step.Cancel)
		}
	case StepFail:
		if step.Fail.Method == "" {
			return fmt.Errorf("fail needs a method")
		}
	case StepExpect:
		return validateExpect(step.Expect, names)
	}
	return nil
}

func validateExpect(e Expect, names map[string]bool) error {
	if e.State != "" {
		if _, err := maps.ParseLifecycleState(e.State); err != nil {
			return err
		}
	}
	if e.Host != "" {
		if _, err := maps.ParseLifecycleState(e.Host); err != nil {
			return err
		}
	}
	for name, outcome := range e.Animations {
		if !names[name] {
			return fmt.Errorf("expectation on unknown animation %q", name)
		}
		switch outcome {
		case OutcomePending, OutcomeFinished, OutcomeCanceled, OutcomeFailed:
		default:
			return fmt.Errorf("animation %q: unknown outcome %q", name, outcome)
		}
	}
	return nil
}

// normalizeVersion accepts "1.1.0" or "v1.1" forms. An empty version means
// v1.0.0.
func normalizeVersion(v string) (string, error) {
	if v == "" {
		return "v1.0.0", nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid scenario version %q", v)
	}
	return semver.Canonical(v), nil
}

// hostTarget is the argument of a lifecycle step: a state the host steps
// to one edge at a time, or an event it jumps with.
type hostTarget struct {
	state   maps.LifecycleState
	event   maps.LifecycleEvent
	isEvent bool
}

func parseHostTarget(s string) (hostTarget, error) {
	if state, err := maps.ParseLifecycleState(s); err == nil {
		return hostTarget{state: state}, nil
	}
	event, err := maps.ParseLifecycleEvent(s)
	if err != nil {
		return hostTarget{}, fmt.Errorf("lifecycle %q is neither a state nor an event", s)
	}
	if _, ok := event.TargetState(); !ok {
		return hostTarget{}, fmt.Errorf("lifecycle event %q has no target state", s)
	}
	return hostTarget{event: event, isEvent: true}, nil
}
