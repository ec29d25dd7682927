package realtime

import (
	"encoding/json"
	"fmt"
)

const (
	typeLike       = "like"
	typeSubscribe  = "subscribe"
	typeSubscribed = "subscribed"
)

// outgoingMessage is the JSON pushed to websocket clients.
type outgoingMessage struct {
	Type    string   `json:"type"`
	PostID  string   `json:"postId,omitempty"`
	Count   int      `json:"count"`
	PostIDs []string `json:"postIds,omitempty"`
}

// incomingMessage is the JSON a client may send. A subscribe message limits
// the like events it receives to the listed post ids; an empty list
// restores the full stream.
type incomingMessage struct {
	Type    string   `json:"type"`
	PostIDs []string `json:"postIds"`
}

func parseIncoming(data []byte) (*incomingMessage, error) {
	var msg incomingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if msg.Type != typeSubscribe {
		return nil, fmt.Errorf("unsupported message type %q", msg.Type)
	}
	return &msg, nil
}
