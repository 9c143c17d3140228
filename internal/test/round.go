package test

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/uprove-tokens/internal/round"
)

// Rule describes various hooks that can be applied to a protocol execution.
type Rule interface {
	// ModifyBefore modifies r before r.Finalize() is called.
	ModifyBefore(r round.Session)
	// ModifyContent modifies content for the message sent by r, before it is delivered.
	ModifyContent(r round.Session, content round.Content)
}

// Exchange runs a two party protocol at the round level, without a Handler.
//
// The leader's round is finalized first, and each message it produces is encoded with cbor,
// decoded into the content expected by the other party's round, verified and stored.
// The parties then alternate until both have reached an output or an abort round,
// which are returned in the same order as the arguments.
func Exchange(leader, follower round.Session, rule Rule) (round.Session, round.Session, error) {
	current, other := leader, follower
	swapped := false
	for i := 0; ; i++ {
		if finished(current) && finished(other) {
			break
		}
		if i > 2*int(leader.FinalRoundNumber()+follower.FinalRoundNumber())+2 {
			return nil, nil, errors.New("test: protocol did not terminate")
		}
		if finished(current) {
			return nil, nil, fmt.Errorf("test: %s finished while %s is waiting", current.SelfID(), other.SelfID())
		}

		if rule != nil {
			rule.ModifyBefore(current)
		}
		out := make(chan *round.Message, 2)
		next, err := current.Finalize(out)
		close(out)
		if err != nil {
			return nil, nil, err
		}
		for msg := range out {
			if rule != nil {
				rule.ModifyContent(current, msg.Content)
			}
			if err = deliver(other, msg); err != nil {
				if swapped {
					return other, next, err
				}
				return next, other, err
			}
		}
		current = next
		if _, ok := current.(*round.Abort); ok {
			break
		}
		current, other = other, current
		swapped = !swapped
	}
	if swapped {
		return other, current, nil
	}
	return current, other, nil
}

func deliver(r round.Session, msg *round.Message) error {
	if msg.Content.RoundNumber() != r.Number() {
		return fmt.Errorf("test: message for round %d delivered to round %d", msg.Content.RoundNumber(), r.Number())
	}
	data, err := cbor.Marshal(msg.Content)
	if err != nil {
		return err
	}
	m := *msg
	m.Content = r.MessageContent()
	if m.Content == nil {
		return fmt.Errorf("test: round %d of %s does not expect a message", r.Number(), r.SelfID())
	}
	if err = cbor.Unmarshal(data, m.Content); err != nil {
		return err
	}
	if err = r.VerifyMessage(m); err != nil {
		return err
	}
	return r.StoreMessage(m)
}

func finished(r round.Session) bool {
	switch r.(type) {
	case *round.Output, *round.Abort:
		return true
	default:
		return false
	}
}
