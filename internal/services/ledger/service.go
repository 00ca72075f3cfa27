// Package ledger moves money. Every deposit, withdrawal and transfer is
// one atomic unit of work: the pending record, the balance changes and the
// move to completed land together or not at all.
package ledger

import (
	"context"
	"errors"
	"time"

	apperrors "ledgerly/internal/errors"
	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 20 * time.Millisecond

	// DefaultPublishTimeout bounds how long a committed operation waits on
	// its event publish.
	DefaultPublishTimeout = 2 * time.Second

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// ServiceConfig wires a Service. Store and Wallets are required. Identity
// defaults to the store's users; Fraud and Events are optional.
type ServiceConfig struct {
	Store        repositories.Store
	Wallets      *wallet.Store
	Identity     IdentityProvider
	Fraud        FraudChecker
	Events       EventPublisher
	References   *ReferenceGenerator
	MaxRetries   int
	RetryBackoff time.Duration
	// PublishTimeout caps the post-commit event publish.
	PublishTimeout time.Duration
	Logger         *zap.Logger
	Clock          func() time.Time
}

type Service struct {
	store      repositories.Store
	wallets    *wallet.Store
	identity   IdentityProvider
	fraud      FraudChecker
	events     EventPublisher
	refs       *ReferenceGenerator
	maxRetries int
	backoff    time.Duration
	publishTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Store == nil {
		panic("ledger store is required")
	}
	if cfg.Wallets == nil {
		panic("wallet store is required")
	}
	if cfg.Identity == nil {
		cfg.Identity = cfg.Store.Users()
	}
	if cfg.References == nil {
		cfg.References = NewReferenceGenerator()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		store:      cfg.Store,
		wallets:    cfg.Wallets,
		identity:   cfg.Identity,
		fraud:      cfg.Fraud,
		events:     cfg.Events,
		refs:       cfg.References,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		publishTTL: cfg.PublishTimeout,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
}

// Deposit credits the user's wallet. Deposits are not fraud checked.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (*Result, error) {
	code, err := s.validate(req.UserID, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	var (
		tx      *models.Transaction
		balance decimal.Decimal
	)
	err = s.execute(ctx, "deposit", func(ctx context.Context, u repositories.Tx) error {
		w, err := s.wallets.GetForUpdate(ctx, u, req.UserID)
		if err != nil {
			return err
		}
		rec, err := s.record(ctx, u, models.TransactionParams{
			Type:        models.TransactionTypeDeposit,
			Amount:      req.Amount,
			Currency:    code,
			ToUserID:    models.UserRef(req.UserID),
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, u, w, req.Amount, code); err != nil {
			return err
		}
		if err := s.complete(ctx, u, rec); err != nil {
			return err
		}
		tx, balance = rec, w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.wallets.Invalidate(ctx, req.UserID)
	s.publish(ctx, tx)

	return &Result{
		Transaction:  tx,
		NewBalance:   balance,
		BaseCurrency: s.wallets.Converter().Base(),
	}, nil
}

// Withdraw debits the user's wallet and runs the real-time fraud check on
// the committed withdrawal.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (*Result, error) {
	code, err := s.validate(req.UserID, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	var (
		tx      *models.Transaction
		balance decimal.Decimal
	)
	err = s.execute(ctx, "withdraw", func(ctx context.Context, u repositories.Tx) error {
		w, err := s.wallets.GetForUpdate(ctx, u, req.UserID)
		if err != nil {
			return err
		}
		rec, err := s.record(ctx, u, models.TransactionParams{
			Type:        models.TransactionTypeWithdrawal,
			Amount:      req.Amount,
			Currency:    code,
			FromUserID:  models.UserRef(req.UserID),
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		if _, err := s.wallets.Debit(ctx, u, w, req.Amount, code); err != nil {
			return err
		}
		if err := s.complete(ctx, u, rec); err != nil {
			return err
		}
		tx, balance = rec, w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.wallets.Invalidate(ctx, req.UserID)
	s.publish(ctx, tx)

	res := &Result{
		Transaction:  tx,
		NewBalance:   balance,
		BaseCurrency: s.wallets.Converter().Base(),
	}
	res.Flagged, res.Reasons = s.precheck(ctx, tx)
	return res, nil
}

// Transfer moves funds between two users in one unit of work and runs the
// real-time fraud check against the sender.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.FromUserID != 0 && req.FromUserID == req.ToUserID {
		return nil, apperrors.ErrSelfTransfer
	}
	if req.ToUserID == 0 {
		return nil, apperrors.ErrRecipientNotFound
	}
	code, err := s.validate(req.FromUserID, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	ok, err := s.identity.Exists(ctx, req.ToUserID)
	if err != nil {
		s.logger.Error("recipient lookup failed", zap.Uint("to_user_id", req.ToUserID), zap.Error(err))
		return nil, apperrors.ErrStoreUnavailable.Wrap(err)
	}
	if !ok {
		return nil, apperrors.ErrRecipientNotFound
	}

	var (
		tx       *models.Transaction
		from, to decimal.Decimal
	)
	err = s.execute(ctx, "transfer", func(ctx context.Context, u repositories.Tx) error {
		sender, recipient, err := s.lockPair(ctx, u, req.FromUserID, req.ToUserID)
		if err != nil {
			return err
		}
		rec, err := s.record(ctx, u, models.TransactionParams{
			Type:        models.TransactionTypeTransfer,
			Amount:      req.Amount,
			Currency:    code,
			FromUserID:  models.UserRef(req.FromUserID),
			ToUserID:    models.UserRef(req.ToUserID),
			Description: req.Description,
		})
		if err != nil {
			return err
		}
		if _, err := s.wallets.Debit(ctx, u, sender, req.Amount, code); err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, u, recipient, req.Amount, code); err != nil {
			return err
		}
		if err := s.complete(ctx, u, rec); err != nil {
			return err
		}
		tx, from, to = rec, sender.Balance, recipient.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.wallets.Invalidate(ctx, req.FromUserID, req.ToUserID)
	s.publish(ctx, tx)

	res := &TransferResult{
		Transaction:  tx,
		FromBalance:  from,
		ToBalance:    to,
		BaseCurrency: s.wallets.Converter().Base(),
	}
	res.Flagged, res.Reasons = s.precheck(ctx, tx)
	return res, nil
}

// History returns the user's transactions on either side, newest first.
func (s *Service) History(ctx context.Context, userID uint, page, limit int) (*HistoryPage, error) {
	if userID == 0 {
		return nil, apperrors.ErrInvalidTransaction.WithMessage("user id is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	txs, total, err := s.store.Transactions().ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		s.logger.Error("failed to list transactions", zap.Uint("user_id", userID), zap.Error(err))
		return nil, apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return &HistoryPage{Transactions: txs, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) validate(userID uint, amount decimal.Decimal, currency string) (string, error) {
	if userID == 0 {
		return "", apperrors.ErrInvalidTransaction.WithMessage("user id is required")
	}
	if !amount.IsPositive() {
		return "", apperrors.ErrInvalidAmount
	}
	return s.wallets.Converter().Normalize(currency)
}

// lockPair locks both wallets in ascending user id order so two opposite
// transfers cannot deadlock.
func (s *Service) lockPair(ctx context.Context, u repositories.Tx, fromID, toID uint) (*models.Wallet, *models.Wallet, error) {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	a, err := s.wallets.GetForUpdate(ctx, u, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.wallets.GetForUpdate(ctx, u, second)
	if err != nil {
		return nil, nil, err
	}
	if first == fromID {
		return a, b, nil
	}
	return b, a, nil
}

// record writes the pending transaction for p.
func (s *Service) record(ctx context.Context, u repositories.Tx, p models.TransactionParams) (*models.Transaction, error) {
	base, err := s.wallets.ToBase(p.Amount, p.Currency)
	if err != nil {
		return nil, err
	}
	rate, err := s.wallets.Converter().Rate(p.Currency, s.wallets.Converter().Base())
	if err != nil {
		return nil, err
	}
	ref, err := s.refs.Next()
	if err != nil {
		return nil, err
	}

	p.BaseAmount = base
	p.Reference = ref
	p.CreatedAt = s.now().UTC()
	p.Metadata = models.JSON{
		"exchange_rate": rate.String(),
		"base_currency": s.wallets.Converter().Base(),
	}

	tx, err := models.NewTransaction(p)
	if err != nil {
		return nil, err
	}
	if err := u.Transactions().Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) complete(ctx context.Context, u repositories.Tx, tx *models.Transaction) error {
	if err := tx.TransitionTo(models.TransactionStatusCompleted); err != nil {
		return err
	}
	return u.Transactions().UpdateStatus(ctx, tx.ID, models.TransactionStatusPending, models.TransactionStatusCompleted)
}

// execute runs fn as one unit of work. Once started the unit is not
// cancelled by ctx. Version conflicts retry the whole unit with a linear
// backoff; everything else is translated and returned.
func (s *Service) execute(ctx context.Context, op string, fn func(ctx context.Context, u repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying ledger operation",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			time.Sleep(s.backoff * time.Duration(attempt))
		}
		err = s.store.WithinTx(ctx, func(u repositories.Tx) error {
			return fn(ctx, u)
		})
		if err == nil || !retryable(err) {
			break
		}
	}
	if err == nil {
		return nil
	}
	return s.translate(op, err)
}

func retryable(err error) bool {
	return errors.Is(err, repositories.ErrVersionConflict) || errors.Is(err, repositories.ErrStatusConflict)
}

func (s *Service) translate(op string, err error) error {
	var de *apperrors.DomainError
	switch {
	case errors.As(err, &de):
		return err
	case retryable(err):
		s.logger.Warn("ledger operation kept conflicting", zap.String("operation", op), zap.Error(err))
		return apperrors.ErrConcurrencyConflict.Wrap(err)
	case errors.Is(err, repositories.ErrDuplicateReference):
		s.logger.Error("transaction reference collision", zap.String("operation", op), zap.Error(err))
		return apperrors.ErrReferenceCollision.Wrap(err)
	default:
		s.logger.Error("ledger operation failed", zap.String("operation", op), zap.Error(err))
		return apperrors.ErrStoreUnavailable.Wrap(err)
	}
}

func (s *Service) publish(ctx context.Context, tx *models.Transaction) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTTL)
	defer cancel()
	if err := s.events.PublishTransactionCompleted(ctx, tx); err != nil {
		s.logger.Warn("failed to publish transaction event",
			zap.String("reference", tx.Reference),
			zap.Error(err),
		)
	}
}

// precheck runs the real-time fraud check. Its failures are logged and
// never undo the committed operation.
func (s *Service) precheck(ctx context.Context, tx *models.Transaction) (bool, []string) {
	if s.fraud == nil {
		return false, nil
	}
	res, err := s.fraud.Check(ctx, tx)
	if err != nil {
		s.logger.Warn("fraud pre-check failed",
			zap.String("reference", tx.Reference),
			zap.Error(err),
		)
	}
	if res == nil || res.Verdict == nil {
		return false, nil
	}
	return res.Verdict.Suspicious, res.Verdict.Labels
}
