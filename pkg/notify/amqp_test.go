package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
	"liyu1981.xyz/sos-safety-service/pkg/notify/mocks"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	exchanges  map[string]string
	published  []published
	bindings   map[string]string
	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		exchanges:  map[string]string{},
		bindings:   map[string]string{},
		deliveries: make(chan amqp.Delivery, 4),
	}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = kind
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[name] = key
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPSender_Send(t *testing.T) {
	ch := newFakeChannel()
	sender := NewAMQPSender(NewBrokerWithChannel(ch, ""))

	n := AlertNotification("Alice", models.LocationSnapshot{Latitude: 40.7128, Longitude: -74.0060})
	require.NoError(t, sender.Send(context.Background(), models.Contact{ID: 9, PhoneNumber: "+15551234567"}, n))

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, ExchangeNotifications, p.exchange)
	assert.Equal(t, RoutingKeySms, p.key)
	assert.Equal(t, "topic", ch.exchanges[ExchangeNotifications])
	assert.Equal(t, "application/json", p.msg.ContentType)

	var job SmsJob
	require.NoError(t, json.Unmarshal(p.msg.Body, &job))
	assert.Equal(t, uint(9), job.ContactID)
	assert.Equal(t, "+15551234567", job.PhoneNumber)
	assert.Equal(t, n.Body, job.Body)
}

func TestAMQPSender_Publish(t *testing.T) {
	ch := newFakeChannel()
	sender := NewAMQPSender(NewBrokerWithChannel(ch, "custom"))

	require.NoError(t, sender.Publish(context.Background(), models.PushMessage{Type: models.PushTypeSosAlert, Title: "🚨 Emergency Alert"}))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "custom", ch.published[0].exchange)
	assert.Equal(t, "push.sos_alert", ch.published[0].key)
}

func TestBroker_ConsumePush(t *testing.T) {
	common.SetTestLoggerNop()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ch := newFakeChannel()
	broker := NewBrokerWithChannel(ch, "")
	renderer := mocks.NewMockRenderer(ctrl)

	rendered := make(chan models.LocalNotification, 1)
	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n models.LocalNotification) error {
		rendered <- n
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, broker.ConsumePush(ctx, "device-1", NewPushHandler(renderer)))
	assert.Equal(t, RoutingKeyPushAll, ch.bindings["device-1"])

	ch.deliveries <- amqp.Delivery{RoutingKey: "push.sos_alert", Body: []byte("not json")}
	body, _ := json.Marshal(models.PushMessage{Type: models.PushTypeCommunityAlert, Data: map[string]string{"alert_type": "flood"}})
	ch.deliveries <- amqp.Delivery{RoutingKey: "push.community_alert", Body: body}

	select {
	case n := <-rendered:
		assert.Equal(t, "Safety alert in your area: flood", n.Body)
	case <-time.After(time.Second):
		t.Fatal("push message was not rendered")
	}

	require.NoError(t, broker.Close())
	assert.True(t, ch.closed)
}
