// Package fieldplot renders live 2D scalar fields without staging them
// through an intermediate image.
//
// # Overview
//
// fieldplot is a small visualization library for numerical pipelines in
// the GoGPU ecosystem. A Surface owns a buffer shared between the compute
// domain and the display domain: field values are color-mapped straight
// into that buffer, then drawn as a textured quad into the next tile of a
// rows×cols multiplot grid. When the grid is full, the surface is
// presented and the cycle restarts.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/fieldplot"
//	    "github.com/gogpu/fieldplot/backend"
//	)
//
//	dev, _ := backend.Open(backend.Options{})
//	s, _ := fieldplot.New(dev, 1, 2)
//	defer s.Close()
//
//	// Two fields side by side; the second render presents the surface.
//	fieldplot.Render(s, pressure, 100, 100, fieldplot.Heat())
//	fieldplot.Render(s, vorticity, 100, 100, fieldplot.Rainbow())
//
// # Architecture
//
// The library is organized into:
//   - Public API: Surface, Grid, Binder, Mapper, Renderer, ColorMap
//   - plotcore: the Device interface both domains hand the buffer through
//   - backend: device registry, software device
//   - backend/native: wgpu-backed device
//
// # Coordinate System
//
// Fields are row-major with the first element at the bottom-left of the
// plotted rectangle, left-to-right then bottom-to-top. Tile rectangles
// are in normalized device coordinates [-1, 1] with y up.
//
// # Scope
//
// fieldplot renders exactly one kind of content: a rectangular scalar
// field mapped to color. Windowing, the event loop, and input handling
// belong to the host application.
package fieldplot
