package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

const (
	ExchangeNotifications = "sos.notifications"
	RoutingKeySms         = "sms.send"
	RoutingKeyPushPrefix  = "push."
	RoutingKeyPushAll     = "push.#"
)

// Channel is the subset of *amqp.Channel the broker code uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type Broker struct {
	Conn     *amqp.Connection
	Channel  Channel
	Exchange string
}

// Dial connects to RabbitMQ, retrying with exponential backoff.
func Dial(ctx context.Context, url string, retries int) (*Broker, error) {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosNotify)

	var conn *amqp.Connection
	var err error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= retries; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("RabbitMQ connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	logger.Info("Connected to RabbitMQ", zap.String("exchange", ExchangeNotifications))
	return &Broker{Conn: conn, Channel: ch, Exchange: ExchangeNotifications}, nil
}

func NewBrokerWithChannel(ch Channel, exchange string) *Broker {
	if exchange == "" {
		exchange = ExchangeNotifications
	}
	return &Broker{Channel: ch, Exchange: exchange}
}

func (b *Broker) Close() error {
	if b.Channel != nil {
		if err := b.Channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if b.Conn != nil {
		if err := b.Conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

func (b *Broker) publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := b.Channel.ExchangeDeclare(
		b.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return b.Channel.PublishWithContext(ctx, b.Exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// SmsJob is what an SMS gateway worker consumes.
type SmsJob struct {
	ContactID   uint              `json:"contactId"`
	PhoneNumber string            `json:"phoneNumber"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

// AMQPSender queues SMS alerts and push messages on the notifications
// exchange.
type AMQPSender struct {
	broker *Broker
}

func NewAMQPSender(broker *Broker) *AMQPSender {
	return &AMQPSender{broker: broker}
}

func (s *AMQPSender) Send(ctx context.Context, contact models.Contact, n models.Notification) error {
	return s.broker.publish(ctx, RoutingKeySms, SmsJob{
		ContactID:   contact.ID,
		PhoneNumber: contact.PhoneNumber,
		Title:       n.Title,
		Body:        n.Body,
		Data:        n.Data,
	})
}

func (s *AMQPSender) Publish(ctx context.Context, msg models.PushMessage) error {
	return s.broker.publish(ctx, RoutingKeyPushPrefix+string(msg.Type), msg)
}

// ConsumePush binds queue to every push routing key and hands each message
// to handler until ctx is done or the delivery channel closes.
func (b *Broker) ConsumePush(ctx context.Context, queue string, handler *PushHandler) error {
	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosPush)

	if err := b.Channel.ExchangeDeclare(b.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := b.Channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := b.Channel.QueueBind(q.Name, RoutingKeyPushAll, b.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := b.Channel.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					logger.Info("Push delivery channel closed", zap.String("queue", q.Name))
					return
				}
				var msg models.PushMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					logger.Warn("Invalid push message", zap.String("routing_key", d.RoutingKey), zap.Error(err))
					continue
				}
				_, _ = handler.Handle(ctx, msg)
			}
		}
	}()
	logger.Info("Consuming push messages", zap.String("queue", q.Name))
	return nil
}
