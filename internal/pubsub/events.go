// Package pubsub provides a generic publish/subscribe broker used to fan
// out execution lifecycle events and log entries to interested listeners.
package pubsub

import (
	"context"
	"time"
)

// EventType labels what happened to the payload's subject.
type EventType string

const (
	// RunStarted marks the beginning of a graph execution.
	RunStarted EventType = "run_started"
	// RunCompleted marks a graph execution finishing, successfully or not.
	RunCompleted EventType = "run_completed"
	// NodeDispatched marks a node handed to a worker.
	NodeDispatched EventType = "node_dispatched"
	// NodeCompleted marks a node's work returning without error.
	NodeCompleted EventType = "node_completed"
	// NodeFailed marks a node's work returning an error.
	NodeFailed EventType = "node_failed"
	// EntryWritten marks a log entry passing through the logger.
	EntryWritten EventType = "entry_written"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
