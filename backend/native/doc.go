// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package native provides the wgpu/hal GPU device for fieldplot.
//
// The shared color buffer lives in GPU memory as a storage buffer.
// Host writes go through a CPU staging shadow: AcquireWrite exposes the
// shadow, ReleaseWrite uploads it with a queue write. Each tile blit is
// a compute pass that samples the packed RGB bytes with nearest-neighbor
// filtering and composites RGBA pixels into a frame storage buffer. The
// WGSL shader is compiled to SPIR-V at device creation via naga.
//
// Importing this package registers the "native" backend:
//
//	import (
//		"github.com/gogpu/fieldplot/backend"
//		_ "github.com/gogpu/fieldplot/backend/native"
//	)
//
//	dev, err := backend.Open(backend.Options{})
//
// A standalone device owns a Vulkan instance and adapter. Applications
// that already hold a GPU device (for example a gogpu window) can share
// it through NewFromContext instead.
package native
