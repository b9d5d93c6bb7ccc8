// Package event provides a small synchronous pub-sub bus and the workflow
// events published on it.
//
// The coordinator publishes an event for every admitted, completed, failed
// or canceled execution, for resets, and whenever the stage pointer moves.
// The CLI subscribes to print progress; tests subscribe to assert ordering.
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers are called synchronously on
// the publishing goroutine; a panicking handler is recovered, logged and
// does not stop delivery to the remaining handlers.
package event
