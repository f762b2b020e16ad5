package platform

import (
	"sync"
	"sync/atomic"

	"github.com/go-drift/maps/pkg/errors"
)

const platformViewsChannel = "drift/platform_views"

// Rect is a view frame in logical pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// PlatformView is a native view hosted by the PlatformViewRegistry.
type PlatformView interface {
	// ViewID returns the unique identifier for this view.
	ViewID() int64

	// ViewType returns the type identifier for this view (e.g., "google_map").
	ViewType() string

	// Create initializes the view with its creation parameters.
	Create(params map[string]any) error

	// Dispose releases Go-side resources. The registry tells native code
	// to destroy the view.
	Dispose()

	// SetFrame positions the view in logical pixels.
	SetFrame(frame Rect) error

	// SetVisible shows or hides the view.
	SetVisible(visible bool) error
}

// PlatformViewFactory creates platform views of one type.
type PlatformViewFactory interface {
	// Create creates a new platform view instance.
	Create(viewID int64, params map[string]any) (PlatformView, error)

	// ViewType returns the view type this factory creates.
	ViewType() string
}

// viewEventHandler is implemented by views that receive native events.
type viewEventHandler interface {
	handleViewEvent(method string, args map[string]any)
}

// PlatformViewRegistry manages platform view types and instances. Native
// events for a view arrive on the "drift/platform_views" event channel with
// a "viewId" and a "method" key and are routed to the view.
type PlatformViewRegistry struct {
	mu        sync.RWMutex
	factories map[string]PlatformViewFactory
	views     map[int64]PlatformView
	nextID    atomic.Int64
	channel   *MethodChannel
	events    *EventChannel
}

var platformViewRegistry = newPlatformViewRegistry(platformViewsChannel)

// GetPlatformViewRegistry returns the global platform view registry.
func GetPlatformViewRegistry() *PlatformViewRegistry {
	return platformViewRegistry
}

func newPlatformViewRegistry(channel string) *PlatformViewRegistry {
	r := &PlatformViewRegistry{
		factories: make(map[string]PlatformViewFactory),
		views:     make(map[int64]PlatformView),
		channel:   NewMethodChannel(channel),
		events:    NewEventChannel(channel),
	}
	r.channel.SetHandler(r.handleMethodCall)
	return r
}

func init() {
	registerBuiltinInit(platformViewRegistry.listen)
}

func (r *PlatformViewRegistry) listen() {
	r.events.Listen(EventHandler{
		OnEvent: r.routeEvent,
		OnError: func(err error) {
			errors.Report(&errors.MapError{
				Op:      "platform.PlatformViewRegistry.streamError",
				Kind:    errors.KindPlatform,
				Channel: r.events.Name(),
				Err:     err,
			})
		},
	})
}

// RegisterFactory registers a factory for a platform view type.
func (r *PlatformViewRegistry) RegisterFactory(factory PlatformViewFactory) {
	r.mu.Lock()
	r.factories[factory.ViewType()] = factory
	r.mu.Unlock()
}

// Create creates a platform view of viewType and asks native code to
// create its counterpart.
func (r *PlatformViewRegistry) Create(viewType string, params map[string]any) (PlatformView, error) {
	r.mu.RLock()
	factory, ok := r.factories[viewType]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrViewTypeNotFound
	}

	viewID := r.nextID.Add(1)
	view, err := factory.Create(viewID, params)
	if err != nil {
		return nil, err
	}
	if err := view.Create(params); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.views[viewID] = view
	r.mu.Unlock()

	_, err = r.channel.Invoke("create", map[string]any{
		"viewId":   viewID,
		"viewType": viewType,
		"params":   params,
	})
	if err != nil {
		r.mu.Lock()
		delete(r.views, viewID)
		r.mu.Unlock()
		view.Dispose()
		return nil, err
	}
	return view, nil
}

// Dispose destroys a platform view. Unknown IDs are ignored.
func (r *PlatformViewRegistry) Dispose(viewID int64) {
	r.mu.Lock()
	view, ok := r.views[viewID]
	delete(r.views, viewID)
	r.mu.Unlock()
	if !ok {
		return
	}

	view.Dispose()
	if _, err := r.channel.Invoke("dispose", map[string]any{"viewId": viewID}); err != nil {
		errors.Report(&errors.MapError{
			Op:      "platform.PlatformViewRegistry.Dispose",
			Kind:    errors.KindPlatform,
			Channel: r.channel.Name(),
			ViewID:  viewID,
			Err:     err,
		})
	}
}

// GetView returns a platform view by ID, or nil.
func (r *PlatformViewRegistry) GetView(viewID int64) PlatformView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[viewID]
}

// ViewCount returns the number of live views.
func (r *PlatformViewRegistry) ViewCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// UpdateViewGeometry tells native code where a view is.
func (r *PlatformViewRegistry) UpdateViewGeometry(viewID int64, frame Rect) error {
	_, err := r.channel.Invoke("setGeometry", map[string]any{
		"viewId": viewID,
		"x":      frame.X,
		"y":      frame.Y,
		"width":  frame.Width,
		"height": frame.Height,
	})
	return err
}

// SetViewVisible tells native code to show or hide a view.
func (r *PlatformViewRegistry) SetViewVisible(viewID int64, visible bool) error {
	_, err := r.channel.Invoke("setVisible", map[string]any{
		"viewId":  viewID,
		"visible": visible,
	})
	return err
}

// InvokeViewMethod invokes method on one platform view. args is not modified.
func (r *PlatformViewRegistry) InvokeViewMethod(viewID int64, method string, args map[string]any) (any, error) {
	invokeArgs := make(map[string]any, len(args)+2)
	for k, v := range args {
		invokeArgs[k] = v
	}
	invokeArgs["viewId"] = viewID
	invokeArgs["method"] = method
	return r.channel.Invoke("invokeViewMethod", invokeArgs)
}

func (r *PlatformViewRegistry) handleMethodCall(method string, args any) (any, error) {
	switch method {
	case "onViewCreated", "onViewDisposed":
		return nil, nil
	default:
		return nil, ErrMethodNotFound
	}
}

// routeEvent delivers a native view event. Events for views that are gone
// are dropped.
func (r *PlatformViewRegistry) routeEvent(data any) {
	defer errors.Recover("platform.PlatformViewRegistry.routeEvent")

	m := parseMap(data)
	viewID, ok := toInt64(m["viewId"])
	method := parseString(m["method"])
	if !ok || method == "" {
		errors.Report(&errors.MapError{
			Op:      "platform.PlatformViewRegistry.routeEvent",
			Kind:    errors.KindParsing,
			Channel: r.events.Name(),
			Err: &errors.ParseError{
				Channel:  r.events.Name(),
				DataType: "PlatformViewEvent",
				Got:      data,
			},
		})
		return
	}
	if h, ok := r.GetView(viewID).(viewEventHandler); ok {
		h.handleViewEvent(method, m)
	}
}

func (r *PlatformViewRegistry) reset() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[int64]PlatformView)
	r.mu.Unlock()
	r.nextID.Store(0)
	for _, v := range views {
		v.Dispose()
	}
}

// basePlatformView provides the identity and geometry half of PlatformView.
type basePlatformView struct {
	viewID   int64
	viewType string
}

func (v *basePlatformView) ViewID() int64 {
	return v.viewID
}

func (v *basePlatformView) ViewType() string {
	return v.viewType
}

func (v *basePlatformView) SetFrame(frame Rect) error {
	return GetPlatformViewRegistry().UpdateViewGeometry(v.viewID, frame)
}

func (v *basePlatformView) SetVisible(visible bool) error {
	return GetPlatformViewRegistry().SetViewVisible(v.viewID, visible)
}
