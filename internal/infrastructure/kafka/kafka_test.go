package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader serves queued messages and then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestProducer_PublishKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)

	err := p.Publish(context.Background(), "order-1", map[string]string{"type": "order.paid"})

	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "order-1", string(w.messages[0].Key))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &body))
	assert.Equal(t, "order.paid", body["type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := NewProducerWithWriter(w)

	err := p.Publish(context.Background(), "order-1", struct{}{})

	assert.EqualError(t, err, "broker unavailable")
}

func TestConsumer_CommitsEvenWhenHandlerFails(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Key: []byte("a"), Value: []byte("first")},
		{Offset: 2, Key: []byte("b"), Value: []byte("second")},
	}}
	c := NewConsumerWithReader(r)
	ctx, cancel := context.WithCancel(context.Background())

	var seen []string
	err := c.Consume(ctx, func(ctx context.Context, key, value []byte) error {
		seen = append(seen, string(value))
		if len(seen) == 2 {
			cancel()
		}
		if string(key) == "a" {
			return errors.New("handler failed")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
}
