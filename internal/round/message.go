package round

import "github.com/taurusgroup/uprove-tokens/pkg/party"

// Content represents the message exchanged by a round.
type Content interface {
	RoundNumber() Number
}

type Message struct {
	From, To party.ID
	Content  Content
}
