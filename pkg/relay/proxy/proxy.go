// Package proxy distributes encoded packets between the members of a room.
package proxy

import "errors"

var ErrClosed = errors.New("proxy closed")

// Proxy fans out raw packets per topic. A topic is a game code or the lobby.
type Proxy interface {
	Publish(topic string, data []byte) error
	// Subscribe returns a channel with every packet published to topic and
	// a function that ends the subscription.
	Subscribe(topic string) (<-chan []byte, func(), error)
	// Release drops all resources of topic once the room is gone.
	Release(topic string)
	Close()
}
