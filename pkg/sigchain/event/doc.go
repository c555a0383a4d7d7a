// Package event delivers change notifications from the signal chain editor
// to the editing surface.
//
// # Overview
//
// The editor publishes one event per applied change (node added, branch
// switched, document loaded, ...). Delivery is synchronous: Publish calls
// every matching handler on the caller's goroutine before it returns, so a
// view refreshed from a handler always sees the state the event describes.
//
// # Event Interface
//
// All events implement the Event interface:
//
//   - Identity: ID, Type, Source
//   - Correlation: CorrelationID groups the events of one editor session
//   - Payload: Data() returns one of NodeChange, BranchChange, ChainChange
//     or DocumentChange
//
// Use New to build typed events:
//
//	evt := event.New(event.TypeNodeAdded, "editor", event.NodeChange{NodeID: 101})
//
// # Subscriptions
//
//	bus := event.NewBus(event.BusConfig{})
//	sub := bus.Subscribe([]string{event.TypeNodeAdded}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        redraw()
//	        return nil
//	    }))
//	sub.Pause()  // drop notifications during a bulk load
//	sub.Resume()
package event
