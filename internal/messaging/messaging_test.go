package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-pos/internal/logger"
)

type fakeDeclarer struct {
	exchanges map[string]string
	queues    []string
	binds     []binding
}

func (f *fakeDeclarer) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	if f.exchanges == nil {
		f.exchanges = map[string]string{}
	}
	f.exchanges[name] = kind
	return nil
}

func (f *fakeDeclarer) QueueDeclare(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeDeclarer) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	f.binds = append(f.binds, binding{queue: name, routingKey: key, exchange: exchange})
	return nil
}

func TestSetupTopology(t *testing.T) {
	d := &fakeDeclarer{}
	require.NoError(t, setupTopology(d))

	assert.Equal(t, "topic", d.exchanges[OrdersExchange])
	assert.Equal(t, "fanout", d.exchanges[NotificationsExchange])
	assert.ElementsMatch(t, []string{BaristaQueue, NotificationsQueue}, d.queues)
	assert.Contains(t, d.binds, binding{queue: BaristaQueue, routingKey: "barista.*", exchange: OrdersExchange})
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

func TestProcessMessageSettlesDelivery(t *testing.T) {
	c := &Consumer{logger: logger.Nop(), queueName: "q", processTimeout: time.Second}

	tests := []struct {
		name        string
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success acks", wantAck: true},
		{name: "transient failure requeues", handlerErr: errors.New("db down"), wantRequeue: true},
		{name: "poison message is dropped", handlerErr: Discard(errors.New("bad json"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			var gotRequestID string
			c.processMessage(context.Background(), ack, "barista.cash", 1, []byte(`{}`), func(ctx context.Context, _ []byte) error {
				gotRequestID = logger.RequestIDFromContext(ctx)
				return tt.handlerErr
			})

			assert.NotEmpty(t, gotRequestID)
			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

func TestNewPublishing(t *testing.T) {
	now := time.Now()
	p, err := newPublishing(map[string]int{"order_id": 3}, true, now)
	require.NoError(t, err)

	assert.Equal(t, amqp091.Persistent, p.DeliveryMode)
	assert.Equal(t, "application/json", p.ContentType)

	var body map[string]int
	require.NoError(t, json.Unmarshal(p.Body, &body))
	assert.Equal(t, 3, body["order_id"])

	p, err = newPublishing(struct{}{}, false, now)
	require.NoError(t, err)
	assert.Equal(t, amqp091.Transient, p.DeliveryMode)
}
