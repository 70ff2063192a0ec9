package events

import "context"

// HandlerFunc processes one delivered event.
type HandlerFunc func(ctx context.Context, evt EventEnvelope) error
