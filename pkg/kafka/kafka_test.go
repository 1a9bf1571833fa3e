package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/resilience"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "a", Value: map[string]int{"n": 1}},
		{Key: "b", Value: "hola"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", string(msgs[0].Key))
	assert.JSONEq(t, `{"n":1}`, string(msgs[0].Value))
	assert.JSONEq(t, `"hola"`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Tone string `json:"tone"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"tone":"positive"}`))
	require.NoError(t, err)
	assert.Equal(t, "positive", got.Tone)

	_, err = DecodeJSON[payload]([]byte(`not json`))
	assert.Error(t, err)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.fetchErr = nil
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
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

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumerCommitsAndSkips(t *testing.T) {
	reader := &fakeReader{
		fetchErr: errors.New("broker restarting"),
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"tone":"positive"}`)},
			{Offset: 2, Value: []byte(`garbage`)},
			{Offset: 3, Value: []byte(`{"tone":"fail"}`)},
			{Offset: 4, Value: []byte(`{"tone":"negative"}`)},
		},
	}
	var seen []string
	handler := func(ctx context.Context, key, value []byte) error {
		p, err := DecodeJSON[struct {
			Tone string `json:"tone"`
		}](value)
		if err != nil {
			return err
		}
		if p.Tone == "fail" {
			return errors.New("downstream unavailable")
		}
		seen = append(seen, p.Tone)
		return nil
	}

	c := newConsumer(reader, "analysis-events", handler)
	c.retry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		s := c.Stats()
		return s.Processed+s.Skipped+s.Failed == 4
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"positive", "negative"}, seen)
	assert.Equal(t, ConsumerStats{Processed: 2, Skipped: 1, Failed: 1}, c.Stats())
	assert.Equal(t, []int64{1, 2, 4}, reader.committedOffsets())

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestDecodeJSONIsPermanent(t *testing.T) {
	_, err := DecodeJSON[map[string]any]([]byte("{"))
	assert.True(t, resilience.IsPermanent(err))
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerWritesHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "analysis-events")

	ctx := context.Background()
	require.NoError(t, p.PublishBatch(ctx, []Event{
		{Key: "a", Value: 1, Headers: map[string]string{RequestIDHeader: "req-9"}},
		{Key: "b", Value: 2},
	}))
	require.NoError(t, p.PublishBatch(ctx, nil))

	require.Len(t, w.msgs, 2)
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, RequestIDHeader, w.msgs[0].Headers[0].Key)
	assert.Equal(t, "req-9", string(w.msgs[0].Headers[0].Value))
	assert.Empty(t, w.msgs[1].Headers)
	assert.Equal(t, ProducerStats{Published: 2}, p.Stats())
}

func TestProducerCountsFailures(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("leader not available")}, "analysis-events")
	err := p.Publish(context.Background(), Event{Key: "a", Value: "x"})
	assert.ErrorContains(t, err, "leader not available")
	assert.Equal(t, ProducerStats{Failed: 1}, p.Stats())
}

func TestConsumerRestoresRequestID(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{
		Offset:  7,
		Value:   []byte(`{}`),
		Headers: []kafka.Header{{Key: RequestIDHeader, Value: []byte("req-9")}},
	}}}
	got := make(chan string, 1)
	c := newConsumer(reader, "analysis-events", func(ctx context.Context, key, value []byte) error {
		got <- logger.RequestID(ctx)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	select {
	case id := <-got:
		assert.Equal(t, "req-9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}
