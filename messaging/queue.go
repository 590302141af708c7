// Package messaging decouples the crawl engine from whatever forwards
// finished page payloads onward, whether that's an in-process channel,
// or eventually RabbitMQ/Kafka/Redis for a multi-process deployment.
package messaging

// Producer accepts one serialized page-record payload per call,
// forwarding it to whatever sits on the other side of the queue.
type Producer interface {
	Produce([]byte) error
}

// Consumer blocks, forwarding serialized page-record payloads onto
// events as they arrive, until the underlying queue is closed.
type Consumer interface {
	Consume(events chan<- []byte) error
}

// ProducerConsumer is the minimal behavior of a notification bus: it
// can both accept payloads and forward them to a reader.
type ProducerConsumer interface {
	Producer
	Consumer
}

// ProducerConsumerCloser adds a Close to ProducerConsumer, for buses
// backed by a connection or resource that needs releasing.
type ProducerConsumerCloser interface {
	ProducerConsumer
	Close()
}
