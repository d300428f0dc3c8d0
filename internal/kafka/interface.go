package kafka

import (
	"context"

	"github.com/anandupg/Lyvo-Backend-sub001/internal/domain"
)

// EventProducer hands chat events off to downstream consumers (the
// notification collaborator, analytics). Best-effort: callers log
// produce failures and carry on.
type EventProducer interface {
	Produce(ctx context.Context, event *domain.ChatEvent) error
	Close() error
}
