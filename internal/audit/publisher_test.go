package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeKafkaClient struct {
	mu      sync.Mutex
	records []*kgo.Record
	flushed bool
	closed  bool
}

func (f *fakeKafkaClient) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.mu.Lock()
	f.records = append(f.records, r)
	f.mu.Unlock()
	if promise != nil {
		promise(r, nil)
	}
}

func (f *fakeKafkaClient) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = true
	return nil
}

func (f *fakeKafkaClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestKafkaPublisher_PublishesQueuedEvents(t *testing.T) {
	client := &fakeKafkaClient{}
	publisher := newKafkaPublisher(client, "", slog.Default())

	memberID := uuid.New()
	event := NewEvent(KindMemberCreated, memberID, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	event.Detail = map[string]string{"username": "olanord"}

	publisher.Record(context.Background(), event)
	publisher.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.records, 1)

	record := client.records[0]
	assert.Equal(t, DefaultTopic, record.Topic)
	assert.Equal(t, memberID.String(), string(record.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, KindMemberCreated, decoded.Kind)
	assert.Equal(t, memberID, decoded.MemberID)
	assert.Equal(t, "olanord", decoded.Detail["username"])

	assert.True(t, client.flushed)
	assert.True(t, client.closed)
}

func TestKafkaPublisher_CloseIsIdempotent(t *testing.T) {
	client := &fakeKafkaClient{}
	publisher := newKafkaPublisher(client, "events", slog.Default())

	publisher.Close()
	publisher.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.True(t, client.closed)
}
