package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/fathima-sithara/webhook-service/internal/events"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"github.com/fathima-sithara/webhook-service/internal/webhook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyBody           = errors.New("message body must not be empty")
	ErrMissingConversation = errors.New("conversation id required")
)

// outboundIDPrefix namespaces locally generated ids away from
// provider-assigned ones.
const outboundIDPrefix = "out-"

// Ingestor reconciles normalized webhook records into the store. Webhook
// deliveries are at-least-once and may arrive out of order, so every merge
// is idempotent and status transitions are rank-monotonic.
type Ingestor struct {
	store    repository.Store
	sim      *Simulator
	pub      *events.Publisher
	log      *zap.SugaredLogger
	locks    *keyedMutex
	selfAddr string
}

func NewIngestor(store repository.Store, sim *Simulator, pub *events.Publisher, log *zap.SugaredLogger, selfAddr string) *Ingestor {
	return &Ingestor{
		store:    store,
		sim:      sim,
		pub:      pub,
		log:      log,
		locks:    newKeyedMutex(),
		selfAddr: selfAddr,
	}
}

// Ingest normalizes one webhook payload and applies every extracted record
// in source order. A store failure on one record is collected into the
// summary and does not abort its siblings.
func (s *Ingestor) Ingest(ctx context.Context, payload map[string]any) domain.IngestSummary {
	msgs, sts := webhook.Normalize(payload)

	var sum domain.IngestSummary
	for i := range msgs {
		s.reconcileMessage(ctx, &msgs[i], &sum)
	}
	for i := range sts {
		s.reconcileStatus(ctx, &sts[i], &sum)
	}

	s.log.Infow("payload ingested",
		"messages", len(msgs), "statuses", len(sts),
		"inserted", sum.Inserted, "updated", sum.Updated, "skipped", sum.Skipped,
		"errors", len(sum.Errors))
	return sum
}

func (s *Ingestor) reconcileMessage(ctx context.Context, nm *domain.NormalizedMessage, sum *domain.IngestSummary) {
	unlock := s.locks.Lock(nm.ID)
	defer unlock()

	existing, err := s.store.FindByMessageID(ctx, nm.ID)
	switch {
	case err == nil:
		// Duplicate delivery: refresh content, keep the creation time and
		// never regress the status the message has already reached.
		merged := messageFrom(nm)
		merged.Status = existing.Status
		merged.CreatedAt = existing.CreatedAt
		if err := s.store.UpsertMessage(ctx, merged); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("message %s: %v", nm.ID, err))
			return
		}
		sum.Updated++
	case errors.Is(err, repository.ErrNotFound):
		m := messageFrom(nm)
		m.Status = domain.StatusSent
		m.CreatedAt = time.Now().UTC()
		if err := s.store.UpsertMessage(ctx, m); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("message %s: %v", nm.ID, err))
			return
		}
		sum.Inserted++
		s.pub.MessageIngested(m)
	default:
		sum.Errors = append(sum.Errors, fmt.Sprintf("message %s: %v", nm.ID, err))
	}
}

func (s *Ingestor) reconcileStatus(ctx context.Context, st *domain.NormalizedStatus, sum *domain.IngestSummary) {
	unlock := s.locks.Lock(st.MessageID)
	defer unlock()

	_, err := s.store.FindByMessageID(ctx, st.MessageID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Status arrived before its message, or references one we never
		// had. Not an error under at-least-once, out-of-order delivery.
		sum.Skipped++
		return
	case err != nil:
		sum.Errors = append(sum.Errors, fmt.Sprintf("status %s: %v", st.MessageID, err))
		return
	}

	applied, err := s.store.UpdateStatus(ctx, st.MessageID, st.Status)
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("status %s: %v", st.MessageID, err))
		return
	}
	if applied {
		sum.Updated++
		s.pub.StatusUpdated(st.MessageID, st.Status)
	} else {
		sum.Skipped++
	}
}

// Send creates one outgoing message for conversationID and schedules its
// simulated delivered/read progression. Blank bodies are rejected before
// anything is persisted.
func (s *Ingestor) Send(ctx context.Context, conversationID, body string) (*domain.Message, error) {
	if conversationID == "" {
		return nil, ErrMissingConversation
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	now := time.Now().UTC()
	m := &domain.Message{
		ID:             outboundIDPrefix + uuid.NewString(),
		ConversationID: conversationID,
		From:           s.selfAddr,
		To:             conversationID,
		Body:           body,
		Kind:           "text",
		Status:         domain.StatusSent,
		OccurredAt:     now,
		CreatedAt:      now,
	}
	if err := s.store.UpsertMessage(ctx, m); err != nil {
		return nil, err
	}
	if s.sim != nil {
		s.sim.Schedule(m.ID)
	}
	s.pub.MessageSent(m)
	return m, nil
}

// Delete removes a message and cancels any pending simulated transitions
// for it. It reports whether a message was actually removed.
func (s *Ingestor) Delete(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if s.sim != nil {
		s.sim.Cancel(id)
	}
	err := s.store.DeleteMessage(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func messageFrom(nm *domain.NormalizedMessage) *domain.Message {
	return &domain.Message{
		ID:             nm.ID,
		ReplyToID:      nm.ReplyToID,
		ConversationID: nm.ConversationID,
		From:           nm.From,
		To:             nm.To,
		DisplayName:    nm.DisplayName,
		Body:           nm.Body,
		Kind:           nm.Kind,
		OccurredAt:     nm.OccurredAt,
		Raw:            nm.Raw,
	}
}
