// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend manages plotcore.Device implementations.
//
// Backends register themselves with a name, a selection priority, and an
// availability probe, typically from init() functions. Open selects the
// highest-priority available backend:
//
//	import (
//	    "github.com/gogpu/fieldplot/backend"
//	    _ "github.com/gogpu/fieldplot/backend/native" // enable GPU device
//	)
//
//	dev, err := backend.Open(backend.Options{})
//
// The software device in this package is always available and serves as
// the fallback (and as the reference implementation of the hand-off
// protocol for tests and headless use).
package backend
