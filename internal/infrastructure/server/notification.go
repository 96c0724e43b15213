package server

import (
	"time"

	"github.com/cskr/pubsub"
)

// Lifecycle event topics published by the hub.
const (
	// EventClientIdentified fires after a client is admitted into the
	// session map.
	EventClientIdentified = "client.identified"
	// EventClientDisconnected fires after a session leaves the map, for
	// any reason: explicit disconnect, transport loss, or override
	// eviction.
	EventClientDisconnected = "client.disconnected"
)

// Event describes one session lifecycle change.
type Event struct {
	Topic      string
	Identifier string
	RemoteAddr string
	Time       time.Time
}

const eventBufferSize = 16

// notifier fans lifecycle events out to subscribers. Each subscriber has its
// own buffered channel; an event that finds a subscriber's buffer full is
// dropped for that subscriber, so the hub never blocks on it.
type notifier struct {
	bus *pubsub.PubSub
}

func newNotifier() *notifier {
	return &notifier{bus: pubsub.New(eventBufferSize)}
}

// Subscribe returns a channel receiving Events for the given topics.
func (n *notifier) Subscribe(topics ...string) chan interface{} {
	if len(topics) == 0 {
		topics = []string{EventClientIdentified, EventClientDisconnected}
	}
	return n.bus.Sub(topics...)
}

// Unsubscribe removes the channel from every topic and closes it.
func (n *notifier) Unsubscribe(ch chan interface{}) {
	n.bus.Unsub(ch)
}

func (n *notifier) publish(topic, identifier, remoteAddr string) {
	n.bus.TryPub(Event{
		Topic:      topic,
		Identifier: identifier,
		RemoteAddr: remoteAddr,
		Time:       time.Now(),
	}, topic)
}

func (n *notifier) shutdown() {
	n.bus.Shutdown()
}
