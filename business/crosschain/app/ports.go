// Package app contains the cross-chain route finder and opportunity scanner.
package app

import "context"

// Publisher fans opportunities out to stream subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel, msgType string, data any)
}
