// Package plotcore defines the device abstraction that fieldplot renders
// through.
//
// A Device owns the memory shared between the compute domain (which writes
// color-mapped field values) and the display domain (which draws them). The
// package contains no GPU code itself: backends under backend/ implement
// the Device interface, and fieldplot drives it. This split keeps the
// orchestration layer independent of any particular GPU library and makes
// the hand-off protocol testable with plain Go fakes.
//
// The protocol is strict and sequential:
//
//  1. CreateBuffer allocates the shared buffer.
//  2. Register binds it into both domains for a width×height image.
//  3. AcquireWrite opens the compute-domain write window.
//  4. ReleaseWrite closes it; only then may Blit read the buffer.
//  5. Unregister must precede DestroyBuffer, and DestroyBuffer must
//     precede the creation of a replacement buffer.
//
// Backends are expected to reject out-of-order access rather than race.
package plotcore
