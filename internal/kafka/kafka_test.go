package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   int
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail > 0 {
		w.fail--
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{fail: 1}
	p := newProducer(w, 8, zerolog.Nop())
	p.Start()

	require.NoError(t, p.Publish("t1", []byte("1"), []byte("a")))
	require.NoError(t, p.Publish("t2", []byte("2"), []byte("b")))
	require.NoError(t, p.Publish("t1", []byte("3"), []byte("c")))
	p.Close()
	p.WaitClosed()

	// pesan pertama gagal dan di-log, sisanya tetap terkirim
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "t2", w.msgs[0].Topic)
	assert.Equal(t, []byte("c"), w.msgs[1].Value)
	assert.True(t, w.closed)

	assert.ErrorIs(t, p.Publish("t1", []byte("4"), []byte("d")), ErrProducerClosed)
}

// stalledWriter meniru broker yang tidak menjawab: setiap write menunggu sampai ctx habis.
type stalledWriter struct{}

func (stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledWriter) Close() error { return nil }

func TestProducer_PublishDoesNotBlockOnStalledBroker(t *testing.T) {
	p := newProducer(stalledWriter{}, 2, zerolog.Nop())
	p.writeTimeout = 50 * time.Millisecond
	p.Start()

	done := make(chan []error, 1)
	go func() {
		var errs []error
		for i := 0; i < 4; i++ {
			errs = append(errs, p.Publish("t1", []byte("k"), []byte("v")))
		}
		done <- errs
	}()

	select {
	case errs := <-done:
		// buffer 2 + paling banyak 1 yang sedang ditulis: minimal satu dibuang
		dropped := 0
		for _, err := range errs {
			if errors.Is(err, ErrProducerFull) {
				dropped++
			}
		}
		assert.GreaterOrEqual(t, dropped, 1)
	case <-time.After(time.Second):
		t.Fatal("Publish blocked behind a stalled writer")
	}

	p.Close()
	p.WaitClosed()
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_RetriesFailedMessageBeforeLaterOffsets(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := newConsumer(r, 2, zerolog.Nop())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var handled []int64
	failures := 1
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, m.Offset)
			if m.Offset == 2 && failures > 0 {
				failures--
				return errors.New("redis unavailable")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool { return len(r.committedOffsets()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// satu partition = satu worker: offset 3 menunggu sampai offset 2 berhasil
	mu.Lock()
	assert.Equal(t, []int64{1, 2, 2, 3}, handled)
	mu.Unlock()
	assert.Equal(t, []int64{1, 2, 3}, r.committedOffsets())
	assert.True(t, r.closed)
}

func TestConsumer_StopsRetryingOnShutdown(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Offset: 1}}}
	c := newConsumer(r, 1, zerolog.Nop())
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(context.Context, kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			return errors.New("postgres down")
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, r.committedOffsets())
}

type recordingPublisher struct{ msgs []kafka.Message }

func (p *recordingPublisher) Publish(topic string, key, value []byte, headers ...kafka.Header) error {
	p.msgs = append(p.msgs, kafka.Message{Topic: topic, Key: key, Value: value, Headers: headers})
	return nil
}

func TestOrderEvents(t *testing.T) {
	pub := &recordingPublisher{}
	ev := NewOrderEvents(pub, "toko-order-api")
	resp := orders.OrderResponse{
		ID: 42, StoreID: 1, PaymentID: 2, CustomerName: "Budi", Status: orders.StatusPending,
		Items:      []orders.OrderItemResponse{{ProductID: 10, OrderAmount: 3}},
		TotalPrice: decimal.NewFromInt(45000),
	}

	require.NoError(t, ev.OrderCreated("req-1", resp))
	resp.Status = orders.StatusPaid
	require.NoError(t, ev.OrderStatusChanged("req-2", resp))
	require.Len(t, pub.msgs, 2)

	created := pub.msgs[0]
	assert.Equal(t, orders.TopicOrderCreated, created.Topic)
	assert.Equal(t, []byte("42"), created.Key)
	assert.Equal(t, orders.EventOrderCreated, HeaderValue(created, HeaderEventType))

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(created.Value, &env))
	assert.Equal(t, "42", env.CorrelationID)
	assert.Equal(t, "req-1", env.TraceID)
	assert.NotEmpty(t, env.EventID)
	p, err := UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "45000", p.TotalPrice)
	assert.Equal(t, []orders.ItemQty{{ProductID: 10, Qty: 3}}, p.Items)

	changed := pub.msgs[1]
	assert.Equal(t, orders.TopicOrderStatusChanged, changed.Topic)
	require.NoError(t, json.Unmarshal(changed.Value, &env))
	sp, err := UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, sp.Status)
}
