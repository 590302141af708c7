package messaging

// ChannelQueue is an in-memory ProducerConsumerCloser backed by a
// channel, attachable to the engine via engine.WithNotifier; the engine
// has no notifier unless one is attached.
type ChannelQueue struct {
	bus chan []byte
}

// NewChannelQueue creates a new ChannelQueue.
func NewChannelQueue() ChannelQueue {
	return ChannelQueue{make(chan []byte)}
}

// Produce pushes one page-record payload onto the bus, blocking until
// a consumer reads it.
func (c ChannelQueue) Produce(data []byte) error {
	c.bus <- data
	return nil
}

// Consume forwards every payload produced onto events until the bus
// is closed.
func (c ChannelQueue) Consume(events chan<- []byte) error {
	for event := range c.bus {
		events <- event
	}
	return nil
}

// Close shuts down the bus; a subsequent Produce panics, matching the
// usual close-a-channel contract.
func (c ChannelQueue) Close() {
	close(c.bus)
}
