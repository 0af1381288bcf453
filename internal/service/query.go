package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	conversationsCacheKey = "webhook-service:conversations"
	conversationsCacheTTL = 5 * time.Second
)

// Conversation is one row of the conversation listing: the remote party and
// the most recent message exchanged with them.
type Conversation struct {
	ConversationID string          `json:"conversation_id"`
	DisplayName    string          `json:"display_name,omitempty"`
	LastMessage    *domain.Message `json:"last_message"`
}

type Query struct {
	store repository.Store
	cache *redis.Client // optional
	log   *zap.SugaredLogger
}

func NewQuery(store repository.Store, cache *redis.Client, log *zap.SugaredLogger) *Query {
	return &Query{store: store, cache: cache, log: log}
}

// Conversations returns one entry per distinct conversation, newest
// activity first. Results are briefly cached in Redis when configured; the
// cache is best effort and the store remains the source of truth.
func (q *Query) Conversations(ctx context.Context) ([]Conversation, error) {
	if q.cache != nil {
		if b, err := q.cache.Get(ctx, conversationsCacheKey).Bytes(); err == nil {
			var out []Conversation
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
		}
	}

	ids, err := q.store.DistinctConversationIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(ids))
	for _, id := range ids {
		m, err := q.store.LatestMessageFor(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Conversation{
			ConversationID: id,
			DisplayName:    m.DisplayName,
			LastMessage:    m,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.OccurredAt.After(out[j].LastMessage.OccurredAt)
	})

	if q.cache != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := q.cache.Set(ctx, conversationsCacheKey, b, conversationsCacheTTL).Err(); err != nil {
				q.log.Debugw("conversation cache set failed", "err", err)
			}
		}
	}
	return out, nil
}

// History returns the full message history of one conversation, oldest
// first.
func (q *Query) History(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	return q.store.ListMessages(ctx, conversationID)
}
