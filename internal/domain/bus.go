package domain

import "context"

// SignalBus provides pub/sub fan-out between relay instances. Payloads are
// raw bytes; callers own the encoding.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ResolutionChannel is the bus channel resolution events are published on.
const ResolutionChannel = "resolutions"
