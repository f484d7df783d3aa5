// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel splits raster work into horizontal bands executed
// across goroutines. Bands never overlap, so workers write disjoint
// frame rows and need no synchronization beyond the final wait.
package parallel

import (
	"runtime"
	"sync"
)

// MinBandRows is the row count below which banding is not worth the
// goroutine overhead; callers should run such work inline.
const MinBandRows = 64

// Rows runs fn over [0, n) split into one band per available CPU.
// Each invocation receives a half-open row range [y0, y1). Rows blocks
// until every band has finished.
func Rows(n int, fn func(y0, y1 int)) {
	RowsWithWorkers(n, runtime.GOMAXPROCS(0), fn)
}

// RowsWithWorkers runs fn over [0, n) split into at most workers bands.
// If workers <= 1 or the range is smaller than the worker count, fn runs
// inline on the full range.
func RowsWithWorkers(n, workers int, fn func(y0, y1 int)) {
	if n <= 0 {
		return
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	band := n / workers
	rem := n % workers

	var wg sync.WaitGroup
	wg.Add(workers)
	y0 := 0
	for i := 0; i < workers; i++ {
		y1 := y0 + band
		// Spread the remainder over the first bands.
		if i < rem {
			y1++
		}
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
		y0 = y1
	}
	wg.Wait()
}
