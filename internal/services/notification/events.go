package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ledgerly/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TransactionEventsChannel = "transaction_events"

	EventTransactionCompleted = "transaction.completed"
)

type TransactionEvent struct {
	EventType       string          `json:"event_type"`
	TransactionID   uint            `json:"transaction_id"`
	Reference       string          `json:"reference"`
	TransactionType string          `json:"transaction_type"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	FromUserID      *uint           `json:"from_user_id,omitempty"`
	ToUserID        *uint           `json:"to_user_id,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// EventPublisher announces committed ledger transactions on Redis pub/sub,
// Kafka, or both. A nil target is skipped.
type EventPublisher struct {
	redis  Publisher
	kafka  MessageWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewEventPublisher(redis Publisher, kafka MessageWriter, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{redis: redis, kafka: kafka, logger: logger, now: time.Now}
}

// PublishTransactionCompleted publishes a transaction.completed event.
func (p *EventPublisher) PublishTransactionCompleted(ctx context.Context, tx *models.Transaction) error {
	event := TransactionEvent{
		EventType:       EventTransactionCompleted,
		TransactionID:   tx.ID,
		Reference:       tx.Reference,
		TransactionType: string(tx.Type),
		Status:          string(tx.Status),
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		BaseAmount:      tx.BaseAmount,
		FromUserID:      tx.FromUserID,
		ToUserID:        tx.ToUserID,
		Timestamp:       p.now().UTC(),
	}
	return p.publish(ctx, event, tx.OwnerID())
}

func (p *EventPublisher) publish(ctx context.Context, event TransactionEvent, key uint) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	if p.redis != nil {
		if err := p.redis.Publish(ctx, TransactionEventsChannel, payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish event: %w", err))
		}
	}
	if p.kafka != nil {
		err := p.kafka.WriteMessages(ctx, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(key), 10)),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to write event: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.logger.Debug("published transaction event",
		zap.String("event_type", event.EventType),
		zap.String("reference", event.Reference),
	)
	return nil
}
