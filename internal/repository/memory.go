package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/fathima-sithara/webhook-service/internal/domain"
)

// MemoryStore is an in-process Store used by tests and replay dry runs.
// Messages are copied on the way in and out so callers never share state
// with the map.
type MemoryStore struct {
	mu   sync.RWMutex
	msgs map[string]*domain.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{msgs: make(map[string]*domain.Message)}
}

func (s *MemoryStore) FindByMessageID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.msgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) UpsertMessage(ctx context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	cp.StatusRank = domain.RankOf(cp.Status)
	s.msgs[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.msgs[id]
	if !ok {
		return false, nil
	}
	rank := domain.RankOf(status)
	if rank < m.StatusRank {
		return false, nil
	}
	m.Status = status
	m.StatusRank = rank
	return true, nil
}

func (s *MemoryStore) DistinctConversationIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range s.msgs {
		if m.ConversationID == "" {
			continue
		}
		if _, ok := seen[m.ConversationID]; ok {
			continue
		}
		seen[m.ConversationID] = struct{}{}
		out = append(out, m.ConversationID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) LatestMessageFor(ctx context.Context, conversationID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Message
	for _, m := range s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if latest == nil || m.OccurredAt.After(latest.OccurredAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Message{}
	for _, m := range s.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.msgs[id]; !ok {
		return ErrNotFound
	}
	delete(s.msgs, id)
	return nil
}
