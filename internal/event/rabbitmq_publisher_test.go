package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	exchange  string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPublishCreditCreated(t *testing.T) {
	ch := &fakeChannel{}
	pub := newPublisher(func() (amqpChannel, error) { return ch, nil }, "credit-application", testLogger)

	evt := CreditCreatedEvent{
		Timestamp: time.Now(),
		Payload: CreditEventPayload{
			CreditID:             1,
			CreditCode:           "2b1f0c9e-8f57-4c1e-9d1a-1f2e3d4c5b6a",
			CreditValue:          "500.00",
			NumberOfInstallments: 5,
			Status:               "IN_PROGRESS",
			CustomerID:           9,
		},
	}

	require.NoError(t, pub.PublishCreditCreated(context.Background(), evt))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "credit-application", ch.exchange)
	assert.Equal(t, []string{routingKeyCreditCreated}, ch.keys)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, publisherAppID, ch.published[0].AppId)
	assert.True(t, ch.closed)

	var decoded CreditCreatedEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &decoded))
	assert.Equal(t, evt.Payload, decoded.Payload)
}

func TestPublishCustomerEventsRoutingKeys(t *testing.T) {
	ch := &fakeChannel{}
	pub := newPublisher(func() (amqpChannel, error) { return ch, nil }, "ex", testLogger)
	ctx := context.Background()

	require.NoError(t, pub.PublishCustomerCreated(ctx, CustomerCreatedEvent{}))
	require.NoError(t, pub.PublishCustomerUpdated(ctx, CustomerUpdatedEvent{}))
	require.NoError(t, pub.PublishCustomerDeleted(ctx, CustomerDeletedEvent{CustomerID: 3}))

	assert.Equal(t, []string{routingKeyCustomerCreated, routingKeyCustomerUpdated, routingKeyCustomerDeleted}, ch.keys)
}

func TestPublishErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("channel cannot be opened", func(t *testing.T) {
		pub := newPublisher(func() (amqpChannel, error) { return nil, errors.New("connection closed") }, "ex", testLogger)
		err := pub.PublishCustomerDeleted(ctx, CustomerDeletedEvent{CustomerID: 1})
		assert.ErrorContains(t, err, "failed to open channel")
	})

	t.Run("broker rejects publish", func(t *testing.T) {
		ch := &fakeChannel{err: errors.New("channel/connection is not open")}
		pub := newPublisher(func() (amqpChannel, error) { return ch, nil }, "ex", testLogger)
		err := pub.PublishCustomerDeleted(ctx, CustomerDeletedEvent{CustomerID: 1})
		assert.ErrorContains(t, err, "failed to publish message")
		assert.True(t, ch.closed)
	})
}

func TestNewRabbitMQEventPublisherValidatesArguments(t *testing.T) {
	_, err := NewRabbitMQEventPublisher(nil, "ex", testLogger)
	assert.Error(t, err)
}
