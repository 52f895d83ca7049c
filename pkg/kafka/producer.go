package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer publishes domain events, like completed purchases and member
// enrollments, to a Kafka topic.
type Producer interface {
	SendMessage(ctx context.Context, key string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer connects to Kafka and ensures the topic exists. When the
// brokers are unreachable a no-op producer is returned so the checkout
// flow keeps working without the event stream.
func NewProducer(brokers, topic string) Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers)
	if err != nil {
		logrus.Warnf("Kafka connection failed, events will not be published: %v", err)
		return &noopProducer{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.Debugf("Could not create topic (might already exist): %v", err)
	}

	logrus.Infof("Connected to Kafka at %s, topic %s", brokers, topic)
	return &kafkaProducer{writer: writer}
}

func (p *kafkaProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: messageBytes,
		Time:  time.Now(),
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		logrus.Errorf("Failed to write message to Kafka: %v", err)
		return err
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// noopProducer keeps the service running when Kafka is unavailable.
type noopProducer struct{}

func (n *noopProducer) SendMessage(ctx context.Context, key string, message interface{}) error {
	logrus.Debugf("Kafka disabled, dropping event %s", key)
	return nil
}

func (n *noopProducer) Close() error {
	return nil
}
