package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/fathima-sithara/webhook-service/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIngestor(store repository.Store) *Ingestor {
	return NewIngestor(store, nil, nil, zap.NewNop().Sugar(), "15550001111")
}

func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var p map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func messagePayload(t *testing.T, id, from, body string) map[string]any {
	t.Helper()
	return payload(t, `{
	  "entry": [{"changes": [{"value": {
	    "contacts": [{"wa_id": "`+from+`", "profile": {"name": "Ana"}}],
	    "messages": [{"id": "`+id+`", "from": "`+from+`", "type": "text", "timestamp": "1700000000", "text": {"body": "`+body+`"}}]
	  }}]}]
	}`)
}

func statusPayload(t *testing.T, id, status string) map[string]any {
	t.Helper()
	return payload(t, `{"statuses": [{"id": "`+id+`", "status": "`+status+`"}]}`)
}

func TestIngestInsertsNewMessage(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)

	sum := ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))
	require.Equal(t, domain.IngestSummary{Inserted: 1}, sum)

	m, err := store.FindByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSent, m.Status)
	require.Equal(t, "hi", m.Body)
	require.Equal(t, "15551234567", m.ConversationID)
	require.False(t, m.CreatedAt.IsZero())
}

func TestIngestIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	p := messagePayload(t, "wamid.1", "15551234567", "hi")

	first := ing.Ingest(context.Background(), p)
	second := ing.Ingest(context.Background(), p)

	require.Equal(t, 1, first.Inserted)
	require.Equal(t, 0, second.Inserted)
	require.Equal(t, 1, second.Updated)

	m, err := store.FindByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSent, m.Status)
}

func TestDuplicateMessageNeverRegressesStatus(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)

	ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))
	ing.Ingest(context.Background(), statusPayload(t, "wamid.1", "read"))

	// duplicate envelope re-arrives with fresher content
	sum := ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi again"))
	require.Equal(t, 1, sum.Updated)

	m, err := store.FindByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.Equal(t, "hi again", m.Body)
	require.Equal(t, domain.StatusRead, m.Status)
}

func TestStatusMonotonicity(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))

	// arrival order: sent, read, delivered — the late delivered must lose
	for _, st := range []string{"sent", "read", "delivered"} {
		ing.Ingest(context.Background(), statusPayload(t, "wamid.1", st))
	}

	m, err := store.FindByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRead, m.Status)
}

func TestStatusDuplicateDeliveryIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))

	first := ing.Ingest(context.Background(), statusPayload(t, "wamid.1", "delivered"))
	second := ing.Ingest(context.Background(), statusPayload(t, "wamid.1", "delivered"))

	// equal rank re-applies harmlessly rather than being rejected
	require.Equal(t, 1, first.Updated)
	require.Equal(t, 1, second.Updated)
}

func TestUnknownStatusNeverDowngrades(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))

	sum := ing.Ingest(context.Background(), statusPayload(t, "wamid.1", "warehoused"))
	require.Equal(t, 1, sum.Skipped)

	m, err := store.FindByMessageID(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusSent, m.Status)
}

func TestStatusBeforeMessageIsSkippedThenApplies(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)

	early := ing.Ingest(context.Background(), statusPayload(t, "wamid.X", "delivered"))
	require.Equal(t, domain.IngestSummary{Skipped: 1}, early)

	ing.Ingest(context.Background(), messagePayload(t, "wamid.X", "15551234567", "late"))
	late := ing.Ingest(context.Background(), statusPayload(t, "wamid.X", "delivered"))
	require.Equal(t, 1, late.Updated)

	m, err := store.FindByMessageID(context.Background(), "wamid.X")
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, m.Status)
}

// failingStore rejects upserts for one id, to exercise per-record isolation.
type failingStore struct {
	*repository.MemoryStore
	failID string
}

func (f *failingStore) UpsertMessage(ctx context.Context, m *domain.Message) error {
	if m.ID == f.failID {
		return errors.New("write rejected")
	}
	return f.MemoryStore.UpsertMessage(ctx, m)
}

func TestStoreFailureDoesNotAbortSiblings(t *testing.T) {
	store := &failingStore{MemoryStore: repository.NewMemoryStore(), failID: "bad"}
	ing := newTestIngestor(store)

	sum := ing.Ingest(context.Background(), payload(t, `{
	  "messages": [
	    {"id": "ok-1", "from": "111"},
	    {"id": "bad", "from": "111"},
	    {"id": "ok-2", "from": "111"}
	  ]
	}`))

	require.Equal(t, 2, sum.Inserted)
	require.Len(t, sum.Errors, 1)
	require.Contains(t, sum.Errors[0], "bad")

	_, err := store.FindByMessageID(context.Background(), "ok-2")
	require.NoError(t, err)
}

func TestConcurrentDuplicateDeliveriesInsertOnce(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	p := messagePayload(t, "wamid.R", "15551234567", "race")

	const n = 16
	sums := make([]domain.IngestSummary, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sums[i] = ing.Ingest(context.Background(), p)
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, s := range sums {
		inserted += s.Inserted
	}
	require.Equal(t, 1, inserted)
}

func TestSendRejectsBlankBody(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)

	for _, body := range []string{"", "   ", "\t\n"} {
		_, err := ing.Send(context.Background(), "15551234567", body)
		require.ErrorIs(t, err, ErrEmptyBody)
	}

	ids, err := store.DistinctConversationIDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestSendCreatesNamespacedMessage(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)

	m, err := ing.Send(context.Background(), "15551234567", "hello there")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(m.ID, "out-"))
	require.Equal(t, domain.StatusSent, m.Status)
	require.Equal(t, "15550001111", m.From)
	require.Equal(t, "15551234567", m.To)

	stored, err := store.FindByMessageID(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, "hello there", stored.Body)
}

func TestDeleteReportsExistence(t *testing.T) {
	store := repository.NewMemoryStore()
	ing := newTestIngestor(store)
	ing.Ingest(context.Background(), messagePayload(t, "wamid.1", "15551234567", "hi"))

	ok, err := ing.Delete(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ing.Delete(context.Background(), "wamid.1")
	require.NoError(t, err)
	require.False(t, ok)
}
