package service

import (
	"context"
	"testing"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func putMessage(t *testing.T, store repository.Store, id, conv string, at time.Time) {
	t.Helper()
	err := store.UpsertMessage(context.Background(), &domain.Message{
		ID:             id,
		ConversationID: conv,
		Status:         domain.StatusSent,
		OccurredAt:     at,
		CreatedAt:      at,
	})
	require.NoError(t, err)
}

func TestConversationsOrderedByRecency(t *testing.T) {
	store := repository.NewMemoryStore()
	qry := NewQuery(store, nil, zap.NewNop().Sugar())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putMessage(t, store, "a1", "A", base.Add(1*time.Hour))
	putMessage(t, store, "a2", "A", base.Add(3*time.Hour))
	putMessage(t, store, "b1", "B", base.Add(5*time.Hour))

	convs, err := qry.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	require.Equal(t, "B", convs[0].ConversationID)
	require.Equal(t, "A", convs[1].ConversationID)
	require.Equal(t, "a2", convs[1].LastMessage.ID)
}

func TestHistoryAscending(t *testing.T) {
	store := repository.NewMemoryStore()
	qry := NewQuery(store, nil, zap.NewNop().Sugar())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	putMessage(t, store, "m2", "A", base.Add(2*time.Hour))
	putMessage(t, store, "m1", "A", base.Add(1*time.Hour))
	putMessage(t, store, "m3", "A", base.Add(3*time.Hour))

	msgs, err := qry.History(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "m1", msgs[0].ID)
	require.Equal(t, "m3", msgs[2].ID)
}
