// Package bridge turns the engine's blocking event source into ordered
// notifications on an [event.Bus].
//
// A Bridge runs two goroutines. The pump blocks on [Source.Next], records
// the raw event, answers translation requests and translates the event into
// exactly one notification. The dispatcher receives notifications through a
// single channel and publishes them, so delivery order equals engine order.
//
// Lifecycle:
//
//	b := bridge.New(mgr.EventEmitter(), bus, bridge.WithStringResponder(mgr))
//	b.Start(ctx)   // spawns pump + dispatcher
//	// ... engine runs ...
//	mgr.Close()    // tears down the source; the pump sees the end
//	b.Wait()       // dispatcher drains what was queued
package bridge
