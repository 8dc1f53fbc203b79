package outbox_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/ticket-checkout/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
	"github.com/robertarktes/ticket-checkout/internal/outbox"
)

type memoryOutbox struct {
	mu      sync.Mutex
	pending []crdb.OutboxRecord
}

func (m *memoryOutbox) PublishPending(_ context.Context, limit int, publish func(crdb.OutboxRecord) error) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	var kept []crdb.OutboxRecord
	for i, rec := range m.pending {
		if i >= limit {
			kept = append(kept, rec)
			continue
		}
		if err := publish(rec); err != nil {
			kept = append(kept, rec)
			continue
		}
		n++
	}
	m.pending = kept
	return n, nil
}

func (m *memoryOutbox) OldestUnpublished(context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	return &m.pending[0].CreatedAt, nil
}

type broker struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	fail      map[string]bool
}

func (b *broker) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[msg.MessageId] {
		return errors.New("channel closed")
	}
	b.keys = append(b.keys, key)
	b.published = append(b.published, msg)
	return nil
}

func records(n int) []crdb.OutboxRecord {
	recs := make([]crdb.OutboxRecord, n)
	for i := range recs {
		recs[i] = crdb.OutboxRecord{
			ID:        uuid.New(),
			EventType: domain.EventBookingConfirmed,
			Payload:   []byte(`{}`),
			CreatedAt: time.Now(),
			DedupeKey: uuid.NewString(),
		}
	}
	return recs
}

func TestDrain_PublishesEverything(t *testing.T) {
	store := &memoryOutbox{pending: records(25)}
	b := &broker{}

	n, err := outbox.NewPublisher(store, b, observability.NopLogger()).Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Empty(t, store.pending)
	assert.Len(t, b.published, 25)
	assert.Equal(t, domain.EventBookingConfirmed, b.keys[0])
	assert.Equal(t, "application/json", b.published[0].ContentType)
}

func TestDrain_KeepsFailedRecords(t *testing.T) {
	recs := records(3)
	store := &memoryOutbox{pending: recs}
	b := &broker{fail: map[string]bool{recs[1].DedupeKey: true}}

	n, err := outbox.NewPublisher(store, b, observability.NopLogger()).Drain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.pending, 1)
	assert.Equal(t, recs[1].ID, store.pending[0].ID)
}
