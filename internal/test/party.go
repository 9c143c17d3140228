package test

import (
	"github.com/taurusgroup/uprove-tokens/pkg/party"
)

// PartyIDs returns the IDs of an issuer/verifier and a client, in this order.
func PartyIDs() (server, client party.ID) {
	return "server", "client"
}
