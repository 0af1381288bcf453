package repository

import (
	"context"
	"errors"

	"github.com/fathima-sithara/webhook-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the narrow persistence contract the reconciler depends on. The
// service owns the handle lifecycle; nothing in this package keeps ambient
// connection state.
type Store interface {
	FindByMessageID(ctx context.Context, id string) (*domain.Message, error)
	// UpsertMessage inserts or replaces the document keyed by m.ID.
	UpsertMessage(ctx context.Context, m *domain.Message) error
	// UpdateStatus applies status only when its rank is >= the persisted
	// rank of the message, atomically. It reports whether the update was
	// applied; a missing message is (false, nil), not an error.
	UpdateStatus(ctx context.Context, id, status string) (bool, error)
	DistinctConversationIDs(ctx context.Context) ([]string, error)
	LatestMessageFor(ctx context.Context, conversationID string) (*domain.Message, error)
	// ListMessages returns the conversation history ordered by occurred_at
	// ascending.
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}
