// Package events publishes graph change notifications.
//
// Every successful node or edge mutation made through the dependency service is
// described by an Event and handed to a Publisher. Publishing is best effort:
// the graph is the source of truth and a lost event never rolls back a change.
//
// Implementations:
//
//   - NopPublisher: discards events (default)
//   - Recorder: keeps events in memory, used by tests
//   - NATSPublisher: JSON payloads on a NATS subject
//
// Each event carries a human readable message rendered from a per-type
// template:
//
//	msg := events.NewMessageTemplateEngine().Render(evt)
package events
