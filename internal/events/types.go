package events

import (
	"time"
)

// Type names the kind of graph change.
type Type string

const (
	// TypeEdgeAdded is emitted when an edge is created or its hostname replaced.
	TypeEdgeAdded Type = "edge.added"

	// TypeEdgeRemoved is emitted when an edge is deleted.
	TypeEdgeRemoved Type = "edge.removed"

	// TypeNodeUpserted is emitted when a node is created or refreshed.
	TypeNodeUpserted Type = "node.upserted"

	// TypeNodeDeleted is emitted when a node and its edges are deleted.
	TypeNodeDeleted Type = "node.deleted"
)

// Severity mirrors the Normal/Warning split of cluster events.
type Severity string

const (
	SeverityNormal  Severity = "Normal"
	SeverityWarning Severity = "Warning"
)

// Event describes one graph change.
type Event struct {
	Type Type `json:"type"`

	// From is the node the change applies to. For edge events it is the
	// dependent side.
	From string `json:"from"`

	// To is the dependency side of an edge event, empty for node events.
	To string `json:"to,omitempty"`

	Hostname string    `json:"hostname,omitempty"`
	At       time.Time `json:"at"`

	// Message is filled by publishers that render one.
	Message string `json:"message,omitempty"`
}

// EdgeAdded builds an edge.added event.
func EdgeAdded(from, to, hostname string) Event {
	return Event{Type: TypeEdgeAdded, From: from, To: to, Hostname: hostname, At: time.Now().UTC()}
}

// EdgeRemoved builds an edge.removed event.
func EdgeRemoved(from, to string) Event {
	return Event{Type: TypeEdgeRemoved, From: from, To: to, At: time.Now().UTC()}
}

// NodeUpserted builds a node.upserted event.
func NodeUpserted(id, hostname string) Event {
	return Event{Type: TypeNodeUpserted, From: id, Hostname: hostname, At: time.Now().UTC()}
}

// NodeDeleted builds a node.deleted event.
func NodeDeleted(id string) Event {
	return Event{Type: TypeNodeDeleted, From: id, At: time.Now().UTC()}
}

// severityFor returns the severity for a given event type.
func severityFor(t Type) Severity {
	switch t {
	case TypeNodeDeleted:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}
