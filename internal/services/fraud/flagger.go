package fraud

import (
	"context"
	"fmt"
	"time"

	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/currency"
	"ledgerly/internal/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FlaggerConfig wires a Flagger. Flags is required.
type FlaggerConfig struct {
	Flags     repositories.FlagRepository
	Users     repositories.UserRepository
	Sink      notification.AlertSink
	Converter *currency.Converter
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Flagger persists flags and raises alerts for new ones.
type Flagger struct {
	flags     repositories.FlagRepository
	users     repositories.UserRepository
	sink      notification.AlertSink
	converter *currency.Converter
	logger    *zap.Logger
	now       func() time.Time
}

func NewFlagger(cfg FlaggerConfig) *Flagger {
	if cfg.Flags == nil {
		panic("flag repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = notification.NewLogSink(cfg.Logger)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Flagger{
		flags:     cfg.Flags,
		users:     cfg.Users,
		sink:      cfg.Sink,
		converter: cfg.Converter,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
}

// Flag records a flag for tx unless one exists. It reports whether a new
// flag was written; only then is the alert sink called. Sink failures are
// logged and never returned.
func (f *Flagger) Flag(ctx context.Context, tx *models.Transaction, v *Verdict) (bool, error) {
	if v == nil || !v.Suspicious {
		return false, nil
	}

	exists, err := f.flags.Exists(ctx, tx.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing flag: %w", err)
	}
	if exists {
		return false, nil
	}

	flag := &models.FlaggedTransaction{
		TransactionID: tx.ID,
		UserID:        tx.OwnerID(),
		Reason:        v.Reason(),
		DetectedAt:    f.now().UTC(),
	}
	created, err := f.flags.CreateIfAbsent(ctx, flag)
	if err != nil {
		return false, fmt.Errorf("failed to create flag: %w", err)
	}
	if !created {
		return false, nil
	}

	alert := f.alertFor(ctx, tx, flag)
	if err := f.sink.SendFraudAlert(ctx, alert); err != nil {
		f.logger.Error("failed to send fraud alert",
			zap.Uint("transaction_id", tx.ID),
			zap.Error(err),
		)
	}
	return true, nil
}

func (f *Flagger) alertFor(ctx context.Context, tx *models.Transaction, flag *models.FlaggedTransaction) notification.Alert {
	a := notification.Alert{
		ID:            uuid.NewString(),
		UserID:        flag.UserID,
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		BaseAmount:    tx.BaseAmount,
		Reason:        flag.Reason,
		DetectedAt:    flag.DetectedAt,
	}
	if f.users != nil {
		if u, err := f.users.GetByID(ctx, flag.UserID); err == nil {
			a.UserEmail = u.Email
		}
	}
	if f.converter != nil {
		if s, err := f.converter.Format(tx.BaseAmount, f.converter.Base()); err == nil {
			a.FormattedAmount = s
		}
	}
	return a
}
