package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/fraud"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrScanInProgress = errors.New("fraud scan already in progress")

const scanLockKey = "fraud-scan"

// Checker evaluates and flags one transaction.
type Checker interface {
	Check(ctx context.Context, tx *models.Transaction) (*fraud.CheckResult, error)
}

// Lock is a lock shared between instances, such as cache.Locker.
type Lock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type ScannerConfig struct {
	Interval   time.Duration
	Window     time.Duration
	RunOnStart bool
	LockTTL    time.Duration
	Lock       Lock
	Logger     *zap.Logger
	Clock      func() time.Time
}

type ScanReport struct {
	ID             string        `json:"id"`
	From           time.Time     `json:"from"`
	To             time.Time     `json:"to"`
	Scanned        int           `json:"scanned"`
	Flagged        int           `json:"flagged"`
	AlreadyFlagged int           `json:"already_flagged"`
	Errors         int           `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

// FraudScanner periodically runs every completed transaction of the
// recent window through the fraud checker. Only one scan runs at a time.
type FraudScanner struct {
	txs       repositories.TransactionRepository
	checker   Checker
	cfg       ScannerConfig
	logger    *zap.Logger
	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewFraudScanner(txs repositories.TransactionRepository, checker Checker, cfg ScannerConfig) *FraudScanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &FraudScanner{
		txs:     txs,
		checker: checker,
		cfg:     cfg,
		logger:  cfg.Logger,
		now:     cfg.Clock,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		stopChan: make(chan struct{}),
	}
}

// Start runs scans every Interval until ctx is cancelled or Stop is
// called. It blocks.
func (s *FraudScanner) Start(ctx context.Context) {
	s.logger.Info("Starting fraud scan worker",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("window", s.cfg.Window),
	)

	if s.cfg.RunOnStart {
		s.runScheduled(ctx)
	}

	ticks, stop := s.newTicker(s.cfg.Interval)
	defer stop()

	for {
		select {
		case <-ticks:
			s.runScheduled(ctx)
		case <-s.stopChan:
			s.logger.Info("Stopping fraud scan worker")
			return
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping fraud scan worker")
			return
		}
	}
}

func (s *FraudScanner) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *FraudScanner) runScheduled(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			s.logger.Warn("Skipping fraud scan, previous scan still running")
			return
		}
		s.logger.Error("Fraud scan failed", zap.Error(err))
	}
}

// RunOnce scans the window ending now. A transaction that fails to
// evaluate is logged and counted; the scan goes on with the rest. Failing
// to load the window fails the scan.
func (s *FraudScanner) RunOnce(ctx context.Context) (*ScanReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	if s.cfg.Lock != nil {
		release, ok, err := s.cfg.Lock.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Scan lock unavailable, continuing with local guard only", zap.Error(err))
		case !ok:
			return nil, ErrScanInProgress
		default:
			defer release()
		}
	}

	begin := time.Now()
	to := s.now().UTC()
	report := &ScanReport{ID: uuid.NewString(), From: to.Add(-s.cfg.Window), To: to}
	log := s.logger.With(zap.String("scan_id", report.ID))

	txs, err := s.txs.ListCompletedBetween(ctx, report.From, report.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan window: %w", err)
	}
	log.Info("Starting fraud scan", zap.Int("transactions", len(txs)))

	for i := range txs {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(begin)
			return report, err
		}
		tx := &txs[i]
		report.Scanned++

		res, err := s.checker.Check(ctx, tx)
		if err != nil {
			report.Errors++
			log.Error("Failed to evaluate transaction",
				zap.Uint("transaction_id", tx.ID),
				zap.String("reference", tx.Reference),
				zap.Error(err),
			)
		}
		if res == nil {
			continue
		}
		if res.Flagged {
			report.Flagged++
		} else if res.AlreadyFlagged {
			report.AlreadyFlagged++
		}
	}

	report.Duration = time.Since(begin)
	log.Info("Fraud scan completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("flagged", report.Flagged),
		zap.Int("already_flagged", report.AlreadyFlagged),
		zap.Int("errors", report.Errors),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}
