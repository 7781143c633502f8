package eventstream

import "context"

// Publisher publishes memoir events to an event stream backend.
type Publisher interface {
	PublishProgress(ctx context.Context, event *ProgressEvent) error
	PublishTurn(ctx context.Context, event *TurnExtractedEvent) error
	Close() error
}
