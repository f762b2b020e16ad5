// Package testing provides test doubles for code built on the maps binding.
//
// [FakeMap] stands in for a native map view. It implements both
// maps.Map and maps.LifecycleHooks, records every call, and reproduces the
// native camera semantics the controllers rely on: a new motion command
// cancels the animation in flight, and camera listeners fire in the same
// order a device would fire them.
//
//	clock := mapstest.NewFakeClock()
//	fake := mapstest.NewFakeMap(maps.CameraPose{}, clock)
//	camera := maps.NewCameraController(maps.CameraPose{Zoom: 10})
//	binding, _ := maps.BindCamera(fake, camera)
//	defer binding.Close()
//
//	go camera.Animate(ctx, maps.ZoomTo(14), 300*time.Millisecond)
//	// ... wait for the animateCamera call ...
//	clock.Advance(300 * time.Millisecond) // finishes the animation
//
// [FakeClock] drives animation timing deterministically; without a clock,
// call [FakeMap.FinishAnimation].
package testing
