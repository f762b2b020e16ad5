package maps

import "fmt"

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

func (l LatLng) String() string {
	return fmt.Sprintf("(%g, %g)", l.Latitude, l.Longitude)
}

// CameraPose is the position of the map camera.
type CameraPose struct {
	// Target is the coordinate the camera points at.
	Target LatLng
	// Zoom is the zoom level.
	Zoom float64
	// Bearing is the camera direction in degrees clockwise from north.
	Bearing float64
	// Tilt is the camera angle in degrees from the nadir.
	Tilt float64
}

func (p CameraPose) String() string {
	return fmt.Sprintf("target=%s zoom=%g bearing=%g tilt=%g", p.Target, p.Zoom, p.Bearing, p.Tilt)
}

type updateKind int

const (
	updateCameraPosition updateKind = iota
	updateLatLng
	updateLatLngZoom
	updateZoomTo
	updateZoomBy
	updateScrollBy
)

var updateKindNames = [...]string{
	updateCameraPosition: "newCameraPosition",
	updateLatLng:         "newLatLng",
	updateLatLngZoom:     "newLatLngZoom",
	updateZoomTo:         "zoomTo",
	updateZoomBy:         "zoomBy",
	updateScrollBy:       "scrollBy",
}

// CameraUpdate describes a change to the camera. The map applies it relative
// to its pose at the time the command runs, so a deferred update lands on
// the pose the map has when it is bound.
type CameraUpdate struct {
	kind   updateKind
	pose   CameraPose
	target LatLng
	amount float64
}

// NewCameraPosition moves the camera to pose.
func NewCameraPosition(pose CameraPose) CameraUpdate {
	return CameraUpdate{kind: updateCameraPosition, pose: pose}
}

// NewLatLng centers the camera on target, keeping zoom, bearing and tilt.
func NewLatLng(target LatLng) CameraUpdate {
	return CameraUpdate{kind: updateLatLng, target: target}
}

// NewLatLngZoom centers the camera on target at the given zoom.
func NewLatLngZoom(target LatLng, zoom float64) CameraUpdate {
	return CameraUpdate{kind: updateLatLngZoom, target: target, amount: zoom}
}

// ZoomTo sets the zoom level.
func ZoomTo(zoom float64) CameraUpdate {
	return CameraUpdate{kind: updateZoomTo, amount: zoom}
}

// ZoomBy changes the zoom level by delta.
func ZoomBy(delta float64) CameraUpdate {
	return CameraUpdate{kind: updateZoomBy, amount: delta}
}

// ScrollBy shifts the camera target by the given degrees.
func ScrollBy(dLat, dLng float64) CameraUpdate {
	return CameraUpdate{kind: updateScrollBy, target: LatLng{Latitude: dLat, Longitude: dLng}}
}

// Apply returns the pose that results from applying u to current.
func (u CameraUpdate) Apply(current CameraPose) CameraPose {
	next := current
	switch u.kind {
	case updateCameraPosition:
		next = u.pose
	case updateLatLng:
		next.Target = u.target
	case updateLatLngZoom:
		next.Target = u.target
		next.Zoom = u.amount
	case updateZoomTo:
		next.Zoom = u.amount
	case updateZoomBy:
		next.Zoom += u.amount
	case updateScrollBy:
		next.Target.Latitude += u.target.Latitude
		next.Target.Longitude += u.target.Longitude
	}
	return next
}

// Args encodes u for a platform channel call.
func (u CameraUpdate) Args() map[string]any {
	args := map[string]any{"type": updateKindNames[u.kind]}
	switch u.kind {
	case updateCameraPosition:
		args["camera"] = SaveCameraPose(u.pose)
	case updateLatLng:
		args["latitude"] = u.target.Latitude
		args["longitude"] = u.target.Longitude
	case updateLatLngZoom:
		args["latitude"] = u.target.Latitude
		args["longitude"] = u.target.Longitude
		args["zoom"] = u.amount
	case updateZoomTo:
		args["zoom"] = u.amount
	case updateZoomBy:
		args["amount"] = u.amount
	case updateScrollBy:
		args["dLatitude"] = u.target.Latitude
		args["dLongitude"] = u.target.Longitude
	}
	return args
}

func (u CameraUpdate) String() string {
	switch u.kind {
	case updateCameraPosition:
		return fmt.Sprintf("%s(%s)", updateKindNames[u.kind], u.pose)
	case updateLatLng:
		return fmt.Sprintf("%s%s", updateKindNames[u.kind], u.target)
	case updateLatLngZoom:
		return fmt.Sprintf("%s(%s, %g)", updateKindNames[u.kind], u.target, u.amount)
	case updateScrollBy:
		return fmt.Sprintf("%s(%g, %g)", updateKindNames[u.kind], u.target.Latitude, u.target.Longitude)
	default:
		return fmt.Sprintf("%s(%g)", updateKindNames[u.kind], u.amount)
	}
}

// CameraMoveStartedReason explains why the camera last started moving.
type CameraMoveStartedReason int

// Native reason codes are passed through unchanged; the two negative values
// are local to this package.
const (
	ReasonUnknown            CameraMoveStartedReason = -2
	ReasonNoMovementYet      CameraMoveStartedReason = -1
	ReasonGesture            CameraMoveStartedReason = 1
	ReasonAPIAnimation       CameraMoveStartedReason = 2
	ReasonDeveloperAnimation CameraMoveStartedReason = 3
)

// ReasonFromCode maps a native reason code to a CameraMoveStartedReason.
func ReasonFromCode(code int) CameraMoveStartedReason {
	switch r := CameraMoveStartedReason(code); r {
	case ReasonGesture, ReasonAPIAnimation, ReasonDeveloperAnimation:
		return r
	default:
		return ReasonUnknown
	}
}

func (r CameraMoveStartedReason) String() string {
	switch r {
	case ReasonNoMovementYet:
		return "no_movement_yet"
	case ReasonGesture:
		return "gesture"
	case ReasonAPIAnimation:
		return "api_animation"
	case ReasonDeveloperAnimation:
		return "developer_animation"
	default:
		return "unknown"
	}
}
