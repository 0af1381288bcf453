package service

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultDeliverAfter = 2 * time.Second
	defaultReadAfter    = 5 * time.Second
)

// Simulator advances locally created outgoing messages through delivered and
// read, standing in for the real provider's callbacks in local setups. It is
// a demo affordance: pending transitions are lost on restart, and a
// transition firing after its message was deleted is a no-op.
type Simulator struct {
	store        repository.Store
	log          *zap.SugaredLogger
	deliverAfter time.Duration
	readAfter    time.Duration

	mu     sync.Mutex
	timers map[string][]*time.Timer
	closed bool
}

func NewSimulator(store repository.Store, log *zap.SugaredLogger, deliverAfter, readAfter time.Duration) *Simulator {
	if deliverAfter <= 0 {
		deliverAfter = defaultDeliverAfter
	}
	if readAfter <= deliverAfter {
		readAfter = deliverAfter + defaultReadAfter - defaultDeliverAfter
	}
	return &Simulator{
		store:        store,
		log:          log,
		deliverAfter: deliverAfter,
		readAfter:    readAfter,
		timers:       make(map[string][]*time.Timer),
	}
}

// Schedule queues the delivered and read transitions for id.
func (s *Simulator) Schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	deliver := time.AfterFunc(s.deliverAfter, func() {
		s.apply(id, domain.StatusDelivered)
	})
	read := time.AfterFunc(s.readAfter, func() {
		s.apply(id, domain.StatusRead)
		s.forget(id)
	})
	s.timers[id] = []*time.Timer{deliver, read}
}

// Cancel stops any pending transitions for id. Safe to call for ids that
// were never scheduled.
func (s *Simulator) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.timers[id] {
		t.Stop()
	}
	delete(s.timers, id)
}

// Close stops all pending transitions. Further Schedule calls are ignored.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, timers := range s.timers {
		for _, t := range timers {
			t.Stop()
		}
		delete(s.timers, id)
	}
}

func (s *Simulator) apply(id, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	applied, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		s.log.Warnw("simulated status update failed", "message_id", id, "status", status, "err", err)
		return
	}
	if applied {
		s.log.Debugw("simulated status applied", "message_id", id, "status", status)
	}
}

func (s *Simulator) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, id)
}
