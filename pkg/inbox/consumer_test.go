package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/broker"
	"github.com/zoff-tech/go-shop-saga/pkg/config"
	"github.com/zoff-tech/go-shop-saga/pkg/store"
	"github.com/zoff-tech/go-shop-saga/pkg/store/storetest"
	"github.com/zoff-tech/go-shop-saga/schema"
)

type recordingBroker struct {
	published []store.OutboxEvent
}

func (b *recordingBroker) Publish(ctx context.Context, event *store.OutboxEvent) error {
	b.published = append(b.published, *event)
	return nil
}

func (b *recordingBroker) Close() error { return nil }

func testSettings() config.ConsumerSettings {
	return config.ConsumerSettings{
		Queue:           "payment_queue",
		Bindings:        []string{"order.created"},
		MaxRedeliveries: 3,
		DeadLetterTopic: "events.dead",
	}
}

func TestProcess_HandlerEffectCommitsWithInboxRow(t *testing.T) {
	st := storetest.New()
	var handled int
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		handled++
		return tx.CreateNotification(ctx, &store.Notification{OrderID: 7, Email: "a@b.com"})
	})
	consumer := NewConsumer(st, nil, &recordingBroker{}, handler, testSettings())

	d := broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":7}`)}
	require.NoError(t, consumer.Process(context.Background(), d))

	assert.Equal(t, 1, handled)
	assert.Len(t, st.Notifications(), 1)

	messageID := schema.MessageID(d.RoutingKey, d.Body)
	row := st.Inbox(messageID)
	require.NotNil(t, row)
	assert.Equal(t, store.InboxProcessed, row.Status)
}

func TestProcess_RedeliveryOfProcessedMessageIsNoOp(t *testing.T) {
	st := storetest.New()
	var handled int
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		handled++
		return tx.CreateNotification(ctx, &store.Notification{OrderID: 7, Email: "a@b.com"})
	})
	consumer := NewConsumer(st, nil, &recordingBroker{}, handler, testSettings())

	d := broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":7}`)}
	require.NoError(t, consumer.Process(context.Background(), d))
	require.NoError(t, consumer.Process(context.Background(), d))

	assert.Equal(t, 1, handled, "handler must run once for duplicate deliveries")
	assert.Len(t, st.Notifications(), 1)
}

func TestProcess_DistinctPayloadsAreDistinctMessages(t *testing.T) {
	st := storetest.New()
	var handled int
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		handled++
		return nil
	})
	consumer := NewConsumer(st, nil, &recordingBroker{}, handler, testSettings())

	require.NoError(t, consumer.Process(context.Background(), broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":1}`)}))
	require.NoError(t, consumer.Process(context.Background(), broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":2}`)}))

	assert.Equal(t, 2, handled)
}

func TestProcess_FailureRollsBackAndRecordsAttempt(t *testing.T) {
	st := storetest.New()
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		if err := tx.CreateNotification(ctx, &store.Notification{OrderID: 7, Email: "a@b.com"}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	consumer := NewConsumer(st, nil, &recordingBroker{}, handler, testSettings())

	d := broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":7}`)}
	err := consumer.Process(context.Background(), d)
	require.Error(t, err)
	assert.NotErrorIs(t, err, broker.ErrDiscard, "should nack for redelivery while under budget")

	assert.Empty(t, st.Notifications(), "handler write must not survive the rollback")

	row := st.Inbox(schema.MessageID(d.RoutingKey, d.Body))
	require.NotNil(t, row)
	assert.Equal(t, store.InboxFailed, row.Status)
	assert.Equal(t, 1, row.Attempts)
}

func TestProcess_DeadLettersAfterMaxRedeliveries(t *testing.T) {
	st := storetest.New()
	deadLetters := &recordingBroker{}
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		return errors.New("boom")
	})
	consumer := NewConsumer(st, nil, deadLetters, handler, testSettings())

	d := broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":9}`)}

	for i := 0; i < 2; i++ {
		err := consumer.Process(context.Background(), d)
		require.Error(t, err)
		assert.NotErrorIs(t, err, broker.ErrDiscard)
	}

	err := consumer.Process(context.Background(), d)
	require.ErrorIs(t, err, broker.ErrDiscard, "third failure exhausts the redelivery budget")

	require.Len(t, deadLetters.published, 1)
	assert.Equal(t, "events.dead", deadLetters.published[0].RoutingKey)
	assert.Equal(t, d.Body, []byte(deadLetters.published[0].Payload))
	assert.Equal(t, "order.created", deadLetters.published[0].Headers["x-original-routing-key"])

	row := st.Inbox(schema.MessageID(d.RoutingKey, d.Body))
	require.NotNil(t, row)
	assert.Equal(t, 3, row.Attempts)
}

func TestProcess_RecoveryAfterTransientFailure(t *testing.T) {
	st := storetest.New()
	calls := 0
	handler := HandlerFunc(func(ctx context.Context, tx store.Tx, d broker.Delivery) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return tx.CreateNotification(ctx, &store.Notification{OrderID: 5, Email: "x@y.com"})
	})
	consumer := NewConsumer(st, nil, &recordingBroker{}, handler, testSettings())

	d := broker.Delivery{RoutingKey: "order.created", Body: []byte(`{"order_id":5}`)}
	require.Error(t, consumer.Process(context.Background(), d))
	require.NoError(t, consumer.Process(context.Background(), d))

	assert.Len(t, st.Notifications(), 1)
	row := st.Inbox(schema.MessageID(d.RoutingKey, d.Body))
	require.NotNil(t, row)
	assert.Equal(t, store.InboxProcessed, row.Status)
}
