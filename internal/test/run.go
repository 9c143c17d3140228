package test

import (
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// RunHandlers connects the handlers through a new Network, and blocks until every one of them is done.
func RunHandlers(handlers map[party.ID]protocol.Handler) error {
	return RunHandlersWith(handlers, nil)
}

// RunHandlersWith is RunHandlers, with every message going through intercept first.
func RunHandlersWith(handlers map[party.ID]protocol.Handler, intercept Intercept) error {
	ids := make([]party.ID, 0, len(handlers))
	for id := range handlers {
		ids = append(ids, id)
	}
	network := NewNetwork(party.NewIDSlice(ids), intercept)

	var errGroup errgroup.Group
	for id, h := range handlers {
		id, h := id, h
		errGroup.Go(func() error {
			HandlerLoop(id, h, network)
			return nil
		})
	}
	return errGroup.Wait()
}
