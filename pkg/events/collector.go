package events

import "slices"

// EventCollector is embedded in aggregates. Events recorded during a state change
// stay pending until the owner drains them for publication.
type EventCollector struct {
	pending []DomainEvent
}

// Record queues an event.
func (c *EventCollector) Record(event DomainEvent) {
	c.pending = append(c.pending, event)
}

// Pending returns a copy of the queued events in record order.
func (c *EventCollector) Pending() []DomainEvent {
	return slices.Clone(c.pending)
}

// Drain returns the queued events and empties the queue, so each event is handed out once.
func (c *EventCollector) Drain() []DomainEvent {
	drained := c.pending
	c.pending = nil
	return drained
}
