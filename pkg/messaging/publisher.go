// Package messaging publishes domain events to a message broker.
package messaging

import (
	"context"
)

// Publisher sends one keyed message. Messages with the same key keep their order.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// NopPublisher dipakai kalau kafka tidak dikonfigurasi
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
