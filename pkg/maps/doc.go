// Package maps binds Drift UI state to a native map resource.
//
// The package has no knowledge of the platform bridge. It defines the
// capability surface it needs from a map ([Map] for the camera and
// [LifecycleHooks] for the view lifecycle) and the controllers that drive it:
//
//   - [LifecycleController] turns arbitrary host lifecycle transitions into the
//     gap-free create/start/resume/pause/stop/destroy sequence a map view
//     requires, including reuse of a view across detach and reattach.
//   - [CameraController] owns the camera pose. It applies Move and Animate
//     commands to the bound map, or defers them until a map is bound, and
//     guarantees that a newer motion command cancels an older animation.
//   - [CameraBinding] connects a CameraController to a Map and republishes the
//     map's camera callbacks into the controller's observable state.
//
// A typical host wires the three together:
//
//	camera := maps.NewCameraController(maps.CameraPose{Zoom: 10})
//	lifecycle := maps.NewLifecycleController(view)
//	if err := lifecycle.Attach(host); err != nil {
//	    return err
//	}
//	binding, err := maps.BindCamera(view, camera)
//	if err != nil {
//	    return err
//	}
//	defer binding.Close()
//
//	err = camera.Animate(ctx, maps.NewLatLngZoom(maps.LatLng{Latitude: 48.85, Longitude: 2.35}, 12), 0)
//	if errors.Is(err, maps.ErrAnimationCanceled) {
//	    // superseded by a newer command
//	}
//
// platform.MapController performs this wiring for the native map view.
package maps
