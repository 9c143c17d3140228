package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/party"
)

// TwoPartyHandler represents a restriction of the Handler for 2 party protocols.
type TwoPartyHandler struct {
	round    round.Session
	leader   bool
	err      error
	result   interface{}
	messages map[round.Number]*Message
	out      chan *Message
	done     bool
	mtx      sync.Mutex

	Log zerolog.Logger
}

// HandlerOption configures a TwoPartyHandler.
type HandlerOption func(*TwoPartyHandler)

// WithLogger sets the logger used by the handler.
//
// By default, the handler does not log anything.
func WithLogger(logger zerolog.Logger) HandlerOption {
	return func(h *TwoPartyHandler) {
		h.Log = logger
	}
}

// NewTwoPartyHandler creates the first round of the protocol, and starts it immediately if this party is the leader.
//
// The leader is the party whose first round does not expect any message.
func NewTwoPartyHandler(create StartFunc, sessionID []byte, leader bool, opts ...HandlerOption) (*TwoPartyHandler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	handler := &TwoPartyHandler{
		round:    r,
		leader:   leader,
		messages: map[round.Number]*Message{},
		out:      make(chan *Message, 4),
		Log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(handler)
	}
	handler.Log = handler.Log.With().
		Str("protocol", r.ProtocolID()).
		Str("party", string(r.SelfID())).
		Bool("leader", leader).
		Logger()
	handler.Log.Info().Msg("start")

	if leader {
		handler.mtx.Lock()
		handler.advance()
		handler.mtx.Unlock()
	}
	return handler, nil
}

// Result returns the protocol result if the protocol completed successfully. Otherwise an error is returned.
func (h *TwoPartyHandler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, h.err
	}
	return nil, errors.New("protocol: not finished")
}

// Listen returns a channel with outgoing messages that must be sent to the other party.
// The channel is closed when the protocol is done executing.
func (h *TwoPartyHandler) Listen() <-chan *Message {
	return h.out
}

// Stop aborts the protocol, unless it has already finished.
func (h *TwoPartyHandler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err == nil && h.result == nil {
		h.abort(errors.New("aborted by user"), true)
	}
}

func (h *TwoPartyHandler) String() string {
	return fmt.Sprintf("party: %s, protocol: %s", h.round.SelfID(), h.round.ProtocolID())
}

// abort records err, and closes the out channel.
//
// When notify is set, the other party is told about the failure with a message for round 0.
func (h *TwoPartyHandler) abort(err error, notify bool) {
	if h.done {
		return
	}
	if err != nil {
		h.err = err
		h.Log.Error().Err(err).Msg("abort")
		if notify {
			select {
			case h.out <- &Message{
				SSID:     h.round.SSID(),
				From:     h.round.SelfID(),
				To:       h.otherID(),
				Protocol: h.round.ProtocolID(),
				Data:     []byte(h.err.Error()),
			}:
			default:
			}
		}
	}
	h.done = true
	close(h.out)
}

func (h *TwoPartyHandler) otherID() party.ID {
	others := h.round.OtherPartyIDs()
	if len(others) == 0 {
		return ""
	}
	return others[0]
}

func (h *TwoPartyHandler) canAdvance() bool {
	if h.round.MessageContent() == nil {
		return true
	}
	return h.messages[h.round.Number()] != nil
}

func extractRoundMessage(r round.Session, msg *Message) (round.Message, error) {
	content := r.MessageContent()
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return round.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return round.Message{
		From:    msg.From,
		To:      msg.To,
		Content: content,
	}, nil
}

func (h *TwoPartyHandler) verifyMessage(msg *Message) error {
	if msg == nil {
		return nil
	}
	r := h.round
	roundMsg, err := extractRoundMessage(r, msg)
	if err != nil {
		return err
	}

	if err = r.VerifyMessage(roundMsg); err != nil {
		return err
	}

	if err = r.StoreMessage(roundMsg); err != nil {
		return err
	}

	return nil
}

func (h *TwoPartyHandler) advance() {
	for !h.done && h.canAdvance() {
		number := h.round.Number()
		msg := h.messages[number]
		delete(h.messages, number)
		if err := h.verifyMessage(msg); err != nil {
			h.abort(Error{RoundNumber: number, Culprit: msg.From, Err: err}, true)
			return
		}
		out := make(chan *round.Message, 1)
		newRound, err := h.round.Finalize(out)
		close(out)
		if err != nil {
			h.abort(Error{RoundNumber: number, Err: err}, true)
			return
		}
		if newRound == nil {
			h.abort(Error{RoundNumber: number, Err: errors.New("round returned no successor")}, true)
			return
		}
		for roundMsg := range out {
			data, err := cbor.Marshal(roundMsg.Content)
			if err != nil {
				h.abort(Error{RoundNumber: number, Err: fmt.Errorf("failed to marshal round message: %w", err)}, true)
				return
			}
			h.out <- &Message{
				SSID:        newRound.SSID(),
				From:        newRound.SelfID(),
				To:          roundMsg.To,
				Protocol:    newRound.ProtocolID(),
				RoundNumber: roundMsg.Content.RoundNumber(),
				Data:        data,
			}
		}
		h.round = newRound
		switch R := newRound.(type) {
		// An abort happened
		case *round.Abort:
			var culprit party.ID
			if len(R.Culprits) > 0 {
				culprit = R.Culprits[0]
			}
			h.abort(Error{RoundNumber: number, Culprit: culprit, Err: R.Err}, true)
			return
		// We have the result
		case *round.Output:
			h.result = R.Result
			h.Log.Info().Msg("done")
			h.abort(nil, false)
			return
		default:
			h.Log.Debug().Int("round", int(newRound.Number())).Msg("round advanced")
		}
	}
}

// CanAccept checks the header of msg against the current session.
func (h *TwoPartyHandler) CanAccept(msg *Message) bool {
	r := h.round
	if msg == nil {
		return false
	}
	if !msg.IsFor(r.SelfID()) {
		return false
	}
	if msg.Protocol != r.ProtocolID() {
		return false
	}
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return false
	}
	if !r.PartyIDs().Contains(msg.From) {
		return false
	}
	if msg.Data == nil {
		return false
	}
	if msg.RoundNumber > r.FinalRoundNumber() {
		return false
	}
	return true
}

// Accept stores msg, and advances the protocol as far as possible.
func (h *TwoPartyHandler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.done || !h.CanAccept(msg) {
		return
	}

	if msg.RoundNumber == 0 {
		h.abort(Error{
			RoundNumber: h.round.Number(),
			Culprit:     msg.From,
			Err:         fmt.Errorf("aborted by other party with error: \"%s\"", msg.Data),
		}, false)
		return
	}

	if msg.RoundNumber < h.round.Number() {
		h.Log.Warn().Stringer("msg", msg).Msg("ignoring message for a past round")
		return
	}

	h.messages[msg.RoundNumber] = msg

	h.advance()
}
