package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ledgerly/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(ctx, channel, message)
	return redis.NewIntResult(1, args.Error(0))
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) SendFraudAlert(ctx context.Context, a Alert) error {
	return m.Called(ctx, a).Error(0)
}

func sampleAlert() Alert {
	return Alert{
		ID:              "alert-1",
		UserID:          42,
		UserEmail:       "asha@example.com",
		TransactionID:   7,
		Reference:       "TXN-01HZX",
		Amount:          decimal.NewFromInt(120),
		Currency:        "USD",
		BaseAmount:      decimal.NewFromInt(9960),
		FormattedAmount: "₹9960.00",
		Reason:          "Rapid Transfer, Large Transaction",
		DetectedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderAlert(t *testing.T) {
	msg := RenderAlert(sampleAlert())

	assert.Contains(t, msg, "Transaction TXN-01HZX by user asha@example.com")
	assert.Contains(t, msg, "Amount: ₹9960.00 (entered as 120 USD)")
	assert.Contains(t, msg, "Reason: Rapid Transfer, Large Transaction")
	assert.Contains(t, msg, "Timestamp: 2024-06-01T12:00:00Z")

	bare := Alert{UserID: 3, Reference: "TXN-X", Amount: decimal.NewFromInt(5), BaseAmount: decimal.NewFromInt(5), Currency: "INR"}
	msg = RenderAlert(bare)
	assert.Contains(t, msg, "by user #3")
	assert.Contains(t, msg, "Amount: 5\n")
}

func TestRedisSink(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	sink := NewRedisSink(pub)

	pub.On("Publish", ctx, FraudAlertsChannel, mock.MatchedBy(func(m interface{}) bool {
		var got Alert
		return json.Unmarshal(m.([]byte), &got) == nil && got.Reference == "TXN-01HZX"
	})).Return(nil).Once()

	require.NoError(t, sink.SendFraudAlert(ctx, sampleAlert()))
	pub.AssertExpectations(t)

	pub.On("Publish", ctx, FraudAlertsChannel, mock.Anything).Return(errors.New("connection refused")).Once()
	assert.Error(t, sink.SendFraudAlert(ctx, sampleAlert()))
}

func TestKafkaSink(t *testing.T) {
	ctx := context.Background()
	w := new(MockWriter)
	sink := NewKafkaSink(w)

	w.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "42"
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	require.NoError(t, sink.SendFraudAlert(ctx, sampleAlert()))
	require.NoError(t, sink.Close())
	w.AssertExpectations(t)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "fraud-alerts", nil)
	t.Cleanup(func() { _ = w.Close() })

	assert.True(t, w.Async, "ledger calls must not wait on delivery")
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, "fraud-alerts", w.Topic)
	require.NotNil(t, w.Completion)
	assert.NotPanics(t, func() {
		w.Completion([]kafka.Message{{Value: []byte("x")}}, errors.New("leader not available"))
	})
}

func TestMultiSink(t *testing.T) {
	ctx := context.Background()
	ok := new(MockSink)
	broken := new(MockSink)
	a := sampleAlert()
	ok.On("SendFraudAlert", ctx, a).Return(nil).Once()
	broken.On("SendFraudAlert", ctx, a).Return(errors.New("smtp down")).Once()

	err := MultiSink{broken, ok, NewLogSink(nil)}.SendFraudAlert(ctx, a)

	assert.EqualError(t, err, "smtp down")
	ok.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestEventPublisher_PublishTransactionCompleted(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	w := new(MockWriter)
	p := NewEventPublisher(pub, w, nil)
	p.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	tx := &models.Transaction{
		ID:         9,
		Type:       models.TransactionTypeTransfer,
		Status:     models.TransactionStatusCompleted,
		Reference:  "TXN-9",
		Amount:     decimal.NewFromInt(50),
		BaseAmount: decimal.NewFromInt(50),
		Currency:   "INR",
		FromUserID: models.UserRef(1),
		ToUserID:   models.UserRef(2),
	}

	pub.On("Publish", ctx, TransactionEventsChannel, mock.MatchedBy(func(m interface{}) bool {
		var got TransactionEvent
		return json.Unmarshal(m.([]byte), &got) == nil &&
			got.EventType == EventTransactionCompleted &&
			got.Reference == "TXN-9" &&
			*got.ToUserID == 2
	})).Return(nil).Once()
	w.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "1"
	})).Return(errors.New("leader not available")).Once()

	err := p.PublishTransactionCompleted(ctx, tx)

	assert.ErrorContains(t, err, "leader not available")
	pub.AssertExpectations(t)
	w.AssertExpectations(t)
}
