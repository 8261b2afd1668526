package hub

import (
	"errors"
	"fmt"

	"github.com/aigeo-prime/firewatch/internal/dispatcher"
	"github.com/aigeo-prime/firewatch/pkg/streaming"
)

var errNoFireData = errors.New("fire data unavailable")

func (h *Hub) registerCommands() {
	h.commands.Register(streaming.TypeGetState, func(dispatcher.Event) (any, error) {
		return h.snapshotMessage()
	}, dispatcher.Logged())

	h.commands.Register(streaming.TypeGetFire, func(dispatcher.Event) (any, error) {
		if h.fire == nil {
			return nil, errNoFireData
		}
		return streaming.Encode(streaming.TypeFireData, 0, h.fire.GeoJSON())
	}, dispatcher.Logged())

	h.commands.Register(streaming.TypePing, func(dispatcher.Event) (any, error) {
		return streaming.Encode(streaming.TypePong, 0, nil)
	})
}

// handleMessage routes one inbound observer message and returns the reply to
// queue, if any. Failures become error envelopes.
func (h *Hub) handleMessage(subscriberID string, message []byte) []byte {
	env, err := streaming.Decode(message)
	if err != nil {
		return streaming.EncodeError("malformed message")
	}

	result, err := h.commands.Dispatch(dispatcher.Event{Command: env.Type, Payload: subscriberID})
	if errors.Is(err, dispatcher.ErrUnknownCommand) {
		return streaming.EncodeError(fmt.Sprintf("unknown message type: %s", env.Type))
	}
	if err != nil {
		return streaming.EncodeError(err.Error())
	}

	reply, _ := result.([]byte)
	return reply
}
