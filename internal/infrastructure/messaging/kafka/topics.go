package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

const (
	// TopicEventRecorded carries events to save (or re-evaluate) through the
	// rule engine.
	TopicEventRecorded = "docket.event.recorded"
	// TopicRenewalBatch carries queued renewal transitions.
	TopicRenewalBatch = "docket.renewal.batch"
	// TopicTaskChanged announces task changes to invoicing and notification
	// integrations.
	TopicTaskChanged = "docket.task.changed"

	SourceDocket = "keyip-docket"

	deadLetterSuffix = ".dlq"
)

// Envelope event types.
const (
	EventTypeEventRecorded = "docket.event.recorded"
	EventTypeRenewalBatch  = "docket.renewal.batch"
	EventTypeTaskChanged   = "docket.task.changed"
)

// DeadLetterTopic is where messages of topic go after retries are exhausted.
func DeadLetterTopic(topic string) string {
	return topic + deadLetterSuffix
}

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EventRecordedPayload asks the worker to save an event.  With EventID set
// and Reevaluate true the stored event is re-run through the rules instead.
type EventRecordedPayload struct {
	EventID     int64  `json:"event_id,omitempty"`
	MatterID    int64  `json:"matter_id"`
	Code        string `json:"code"`
	EventDate   string `json:"event_date,omitempty"`
	AltMatterID *int64 `json:"alt_matter_id,omitempty"`
	Detail      string `json:"detail,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Reevaluate  bool   `json:"reevaluate,omitempty"`
	UserID      string `json:"user_id"`
}

// RenewalBatchPayload is a queued renewal transition.
type RenewalBatchPayload struct {
	JobID      string  `json:"job_id"`
	UserID     string  `json:"user_id"`
	Transition string  `json:"transition"`
	TaskIDs    []int64 `json:"task_ids"`
}

// TaskChangedPayload announces tasks touched by one operation.
type TaskChangedPayload struct {
	MatterID   int64          `json:"matter_id,omitempty"`
	EventID    int64          `json:"event_id,omitempty"`
	Action     string         `json:"action"`
	Transition string         `json:"transition,omitempty"`
	TaskIDs    []int64        `json:"task_ids"`
	Quotes     []QuotePayload `json:"quotes,omitempty"`
	JobID      string         `json:"job_id,omitempty"`
	Actor      string         `json:"actor"`
}

// QuotePayload is the priced view of one renewal.  Amounts are decimal
// strings.
type QuotePayload struct {
	TaskID   int64  `json:"task_id"`
	Cost     string `json:"cost"`
	Fee      string `json:"fee"`
	Total    string `json:"total"`
	TotalVAT string `json:"total_vat"`
	Currency string `json:"currency"`
	Grace    bool   `json:"grace"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "empty payload").WithDetailf("event_id=%s", e.EventID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed payload").WithDetailf("event_id=%s", e.EventID)
	}
	return nil
}

func (e *EventEnvelope) ToMessage(topic string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &common.ProducerMessage{
		Topic: topic,
		Value: val,
		Headers: map[string]string{
			"event_id":       e.EventID,
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message.  Undecodable messages
// are validation errors so the consumer dead-letters them without retrying.
func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to unmarshal envelope").
			WithDetailf("topic=%s offset=%d", msg.Topic, msg.Offset)
	}
	return &env, nil
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions the docket topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to dial kafka").WithDetailf("broker=%s", brokers[0])
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "NumPartitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "ReplicationFactor must be > 0")
	}

	exists, err := m.TopicExists(ctx, cfg.Name)
	if err == nil && exists {
		return nil
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(cfg.RetentionMs, 10)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}
	if cfg.MaxMessageBytes > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "max.message.bytes", ConfigValue: strconv.Itoa(cfg.MaxMessageBytes)})
	}
	for k, v := range cfg.Configs {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: k, ConfigValue: v})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if errors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create topic").WithDetailf("topic=%s", cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return false, nil
		}
		return false, err
	}
	return len(partitions) > 0, nil
}

// EnsureDefaultTopics creates the docket topics and their dead-letter topics.
func (m *TopicManager) EnsureDefaultTopics(ctx context.Context) error {
	for _, topic := range DefaultTopics() {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

const day = int64(24 * 3600 * 1000)

func DefaultTopics() []common.TopicConfig {
	return []common.TopicConfig{
		{Name: TopicEventRecorded, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicRenewalBatch, NumPartitions: 3, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: TopicTaskChanged, NumPartitions: 6, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: DeadLetterTopic(TopicEventRecorded), NumPartitions: 1, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: DeadLetterTopic(TopicRenewalBatch), NumPartitions: 1, ReplicationFactor: 3, RetentionMs: 30 * day},
	}
}

//Personal.AI order the ending
