package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/nirajbawa/match-pair-game/internal/config"
	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// Publisher emits score events to an external feed. Publishing is
// fire-and-forget: failures are reported to the caller for logging but must
// never fail a score submission.
type Publisher interface {
	PublishScore(event domain.ScoreEvent) error
	Close() error
}

// KafkaPublisher publishes score events through a sarama async producer.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for the configured brokers and topic.
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
	}

	go func() {
		for err := range producer.Errors() {
			logger.Warn("score event publish failed", "error", err)
		}
	}()

	return p, nil
}

// PublishScore enqueues a score event keyed by player id.
func (p *KafkaPublisher) PublishScore(event domain.ScoreEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling score event: %w", err)
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PlayerID),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}

// Close drains and closes the producer.
func (p *KafkaPublisher) Close() error {
	p.producer.AsyncClose()
	return nil
}
