package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turtacn/KeyIP-Docket/internal/config"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	metrics "github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// Message outcome labels.
const (
	StatusProcessed    = "processed"
	StatusRetried      = "retried"
	StatusDeadLettered = "dead_lettered"
	StatusDropped      = "dropped"
	StatusUnhandled    = "unhandled"
)

// ConsumerConfig holds the consumer group and retry policy.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	HandlerTimeout  time.Duration
	// DeadLetterTopic overrides the per-topic "<topic>.dlq" default.
	DeadLetterTopic string
}

// ConsumerConfigFrom merges the broker and worker sections.
func ConsumerConfigFrom(k config.KafkaConfig, w config.WorkerConfig) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         k.Brokers,
		GroupID:         k.GroupID,
		Topics:          w.Topics,
		AutoOffsetReset: k.AutoOffsetReset,
		MaxRetries:      w.MaxRetries,
		RetryBackoff:    w.RetryBackoff,
		MaxRetryBackoff: w.MaxRetryBackoff,
		HandlerTimeout:  w.HandlerTimeout,
		DeadLetterTopic: w.DeadLetterTopic,
	}
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// MessagePublisher sends dead letters.  *Producer implements it.
type MessagePublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// Consumer fetches one message at a time, runs the topic handler with retries
// and commits the offset once the message is processed or dead-lettered.
type Consumer struct {
	reader  ReaderInterface
	config  ConsumerConfig
	logger  logging.Logger
	dlq     MessagePublisher
	metrics *metrics.DocketMetrics

	handlers map[string]common.MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer creates a group reader over cfg.Topics.
func NewConsumer(cfg ConsumerConfig, dlq MessagePublisher, m *metrics.DocketMetrics, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       cfg.Topics,
		MinBytes:          1,
		MaxBytes:          10 * 1024 * 1024,
		MaxWait:           time.Second,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		StartOffset:       kafka.FirstOffset,
		Dialer:            &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return NewConsumerWithReader(kafka.NewReader(readerCfg), cfg, dlq, m, logger), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, dlq MessagePublisher, m *metrics.DocketMetrics, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewNoopDocketMetrics()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = 30 * time.Second
	}
	if cfg.HandlerTimeout == 0 {
		cfg.HandlerTimeout = 5 * time.Minute
	}
	return &Consumer{
		reader:   r,
		config:   cfg,
		logger:   logger.Named("kafka.consumer"),
		dlq:      dlq,
		metrics:  m,
		handlers: make(map[string]common.MessageHandler),
	}
}

// Subscribe registers the handler for topic.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
}

// Start runs the consume loop in the background until Close.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeLoop(ctx)
	}()
	c.logger.Info("Kafka consumer started", logging.String("group", c.config.GroupID))
	return nil
}

// Run consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Close()
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage error", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		msg := fromKafkaMessage(m)

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("No handler for topic", logging.String("topic", m.Topic))
			c.metrics.RecordWorkerMessage(m.Topic, StatusUnhandled)
		} else {
			c.metrics.WorkerInFlight.WithLabelValues(m.Topic).Inc()
			status := c.processMessage(ctx, msg, handler)
			c.metrics.WorkerInFlight.WithLabelValues(m.Topic).Dec()
			c.metrics.RecordWorkerMessage(m.Topic, status)
			if ctx.Err() != nil {
				// Shutdown interrupted the handler; leave the offset for redelivery.
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

// processMessage returns the outcome label.  Client errors (validation, not
// found) are not retried, except lock and version contention.
func (c *Consumer) processMessage(ctx context.Context, msg *common.Message, handler common.MessageHandler) string {
	err := c.invoke(ctx, msg, handler)
	if err == nil {
		return StatusProcessed
	}

	backoff := c.config.RetryBackoff
	for i := 0; i < c.config.MaxRetries && retryable(err); i++ {
		c.logger.Warn("Retrying message",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Int("attempt", i+1),
			logging.Err(err))

		select {
		case <-ctx.Done():
			return StatusDropped
		case <-time.After(backoff):
		}

		if err = c.invoke(ctx, msg, handler); err == nil {
			return StatusRetried
		}

		backoff *= 2
		if backoff > c.config.MaxRetryBackoff {
			backoff = c.config.MaxRetryBackoff
		}
	}

	c.logger.Error("Message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.String("code", string(errors.GetCode(err))),
		logging.Err(err))

	if c.dlq == nil {
		return StatusDropped
	}
	if dlErr := c.dlq.Publish(ctx, c.deadLetter(msg, err)); dlErr != nil {
		c.logger.Error("Failed to send to dead letter queue", logging.Err(dlErr))
		return StatusDropped
	}
	return StatusDeadLettered
}

func (c *Consumer) invoke(ctx context.Context, msg *common.Message, handler common.MessageHandler) error {
	hctx, cancel := context.WithTimeout(ctx, c.config.HandlerTimeout)
	defer cancel()
	return handler(hctx, msg)
}

func (c *Consumer) deadLetter(msg *common.Message, cause error) *common.ProducerMessage {
	topic := c.config.DeadLetterTopic
	if topic == "" {
		topic = DeadLetterTopic(msg.Topic)
	}
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["original_topic"] = msg.Topic
	headers["original_offset"] = strconv.FormatInt(msg.Offset, 10)
	headers["error_code"] = string(errors.GetCode(cause))
	headers["error_message"] = cause.Error()
	return &common.ProducerMessage{Topic: topic, Key: msg.Key, Value: msg.Value, Headers: headers}
}

func retryable(err error) bool {
	switch code := errors.GetCode(err); code {
	case errors.ErrCodeLockNotAcquired, errors.CodeTaskVersionConflict:
		return true
	default:
		return !errors.IsClientError(code)
	}
}

func fromKafkaMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Close stops the loop and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed")
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group_id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "topics required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid auto_offset_reset").WithDetailf("value=%s", cfg.AutoOffsetReset)
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max_retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
