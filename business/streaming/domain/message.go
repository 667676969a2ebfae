// Package domain contains stream frames, channels and client requests.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Channel names a topic clients subscribe to.
type Channel string

const (
	ChannelPrices        Channel = "prices"
	ChannelOpportunities Channel = "opportunities"
	ChannelMEV           Channel = "mev"
	ChannelDepth         Channel = "depth"
)

// Channels lists every channel a client may subscribe to.
var Channels = []Channel{ChannelPrices, ChannelOpportunities, ChannelMEV, ChannelDepth}

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Channels, c) {
		return "", fmt.Errorf("unknown channel %q", s)
	}
	return c, nil
}

// Message types sent to clients.
const (
	TypePriceUpdate       = "price_update"
	TypeOpportunityUpdate = "opportunity_update"
	TypeMEVAlert          = "mev_alert"
	TypeMarketDepth       = "market_depth"
	TypeSubscribed        = "subscribed"
	TypeUnsubscribed      = "unsubscribed"
	TypeError             = "error"
)

// Message is one frame on the wire.
type Message struct {
	Type      string    `json:"type"`
	Channel   Channel   `json:"channel,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Action is what a client asks the hub to do.
type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
)

// Request is a client's control frame.
type Request struct {
	Action   Action   `json:"action"`
	Channels []string `json:"channels"`
	Pairs    []string `json:"pairs,omitempty"`
}

// Validate checks the action and resolves channel names.
func (r Request) Validate() ([]Channel, error) {
	if r.Action != ActionSubscribe && r.Action != ActionUnsubscribe {
		return nil, fmt.Errorf("unknown action %q", r.Action)
	}
	if len(r.Channels) == 0 {
		return nil, fmt.Errorf("no channels")
	}
	out := make([]Channel, 0, len(r.Channels))
	for _, name := range r.Channels {
		c, err := ParseChannel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats describe hub activity.
type Stats struct {
	ConnectedClients int             `json:"connected_clients"`
	MessagesSent     uint64          `json:"messages_sent"`
	MessagesDropped  uint64          `json:"messages_dropped"`
	SinkFailures     uint64          `json:"sink_failures"`
	Subscriptions    map[Channel]int `json:"subscriptions"`
}
