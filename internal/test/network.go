package test

import (
	"sync"

	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
)

// Intercept is applied to every message before it is delivered.
// Returning nil drops the message.
type Intercept func(msg *protocol.Message) *protocol.Message

// Network delivers messages between a fixed set of parties, until each of them is Done.
type Network struct {
	inboxes   map[party.ID]chan *protocol.Message
	closed    chan *protocol.Message
	done      chan struct{}
	intercept Intercept
	mtx       sync.Mutex
}

// NewNetwork creates the inboxes of parties. intercept may be nil.
func NewNetwork(parties party.IDSlice, intercept Intercept) *Network {
	closed := make(chan *protocol.Message)
	close(closed)
	n := &Network{
		inboxes:   make(map[party.ID]chan *protocol.Message, len(parties)),
		closed:    closed,
		done:      make(chan struct{}),
		intercept: intercept,
	}
	// a two party protocol never has more than a few messages in flight
	for _, id := range parties {
		n.inboxes[id] = make(chan *protocol.Message, 2*len(parties)+2)
	}
	return n
}

// Next returns the inbox of id, or a closed channel once id is done.
func (n *Network) Next(id party.ID) <-chan *protocol.Message {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if inbox, ok := n.inboxes[id]; ok {
		return inbox
	}
	return n.closed
}

// Send delivers msg to its recipients which are still running.
func (n *Network) Send(msg *protocol.Message) {
	if n.intercept != nil {
		if msg = n.intercept(msg); msg == nil {
			return
		}
	}
	n.mtx.Lock()
	defer n.mtx.Unlock()
	for id, inbox := range n.inboxes {
		if msg.IsFor(id) {
			inbox <- msg
		}
	}
}

// Done removes id from the network, and returns a channel closed once every party is done.
func (n *Network) Done(id party.ID) chan struct{} {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if inbox, ok := n.inboxes[id]; ok {
		close(inbox)
		delete(n.inboxes, id)
		if len(n.inboxes) == 0 {
			close(n.done)
		}
	}
	return n.done
}
