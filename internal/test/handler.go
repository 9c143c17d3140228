package test

import (
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
)

// HandlerLoop relays the messages of h until its protocol is done, and then waits for the other parties.
// The outcome is read from h.Result().
func HandlerLoop(id party.ID, h protocol.Handler, network *Network) {
	outgoing := h.Listen()
	for {
		select {
		case msg, ok := <-outgoing:
			if !ok {
				<-network.Done(id)
				return
			}
			go network.Send(msg)
		case msg := <-network.Next(id):
			if msg != nil {
				h.Accept(msg)
			}
		}
	}
}
