// Package viewport defines the boundary between the Lockstep sync engine and
// the image-rendering collaborator that actually redraws viewports.
//
// The engine schedules and delivers already-constructed operation payloads; it
// never interprets pan deltas, window/level values, or any other geometry. The
// Applier interface is the single seam through which a dispatched operation
// reaches a renderer, and the simulated applier in this package stands in for
// a real render pipeline during development, testing, and standalone daemon
// runs.
package viewport

import "context"

// Update carries one synchronized parameter change to a single viewport.
// The payload is opaque to this package; FanOut tells the renderer how many
// viewports the originating operation targets, which drives its cost model.
type Update struct {
	Type   string // Sync operation type: pan, zoom, window-level, scroll, crosshair, orientation
	Data   any    // Opaque payload owned by the renderer (pan delta, W/L values, ...)
	FanOut int    // Number of target viewports in the dispatched operation
}

// Applier is implemented by the render collaborator. The engine calls Apply
// once per target viewport per dispatched operation and awaits the result
// under a bounded timeout; the context carries that deadline.
//
// Apply must return ctx.Err() when the deadline expires so the dispatcher can
// attribute the failure as a timeout rather than a render error.
type Applier interface {
	Apply(ctx context.Context, viewportID string, update Update) error
}
