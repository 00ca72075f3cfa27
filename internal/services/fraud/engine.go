// Package fraud evaluates completed transactions against independent
// heuristics and records the ones that trip at least one of them.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerly/internal/models"

	"go.uber.org/zap"
)

// Verdict is the outcome of evaluating one transaction.
type Verdict struct {
	Suspicious bool     `json:"suspicious"`
	Rules      []string `json:"rules,omitempty"`
	Labels     []string `json:"labels,omitempty"`
}

// Reason joins the triggered labels in rule order.
func (v *Verdict) Reason() string {
	return strings.Join(v.Labels, ", ")
}

// CheckResult is the outcome of Engine.Check.
type CheckResult struct {
	Verdict        *Verdict
	Flagged        bool
	AlreadyFlagged bool
}

// EngineConfig wires an Engine. History is required; Rules defaults to
// DefaultRules(Config).
type EngineConfig struct {
	Config  Config
	Rules   []Rule
	History HistoryLoader
	Flagger *Flagger
	Logger  *zap.Logger
}

type Engine struct {
	cfg     Config
	rules   []Rule
	history HistoryLoader
	flagger *Flagger
	logger  *zap.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.History == nil {
		panic("history loader is required")
	}
	c := cfg.Config.withDefaults()
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules(c)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:     c,
		rules:   cfg.Rules,
		history: cfg.History,
		flagger: cfg.Flagger,
		logger:  cfg.Logger,
	}
}

// Rules returns the names of the rules that will run.
func (e *Engine) Rules() []string {
	var names []string
	for _, r := range e.rules {
		if !e.cfg.Disabled[r.Name()] {
			names = append(names, r.Name())
		}
	}
	return names
}

// Evaluate runs every enabled rule that applies to tx. A failing rule does
// not stop the others: the verdict covers the rules that ran and the
// returned error joins the failures.
func (e *Engine) Evaluate(ctx context.Context, tx *models.Transaction) (*Verdict, error) {
	v := &Verdict{}
	if tx.Type == models.TransactionTypeDeposit && !e.cfg.EvaluateDeposits {
		return v, nil
	}

	h, err := e.history.Load(ctx, tx)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, r := range e.rules {
		if e.cfg.Disabled[r.Name()] || !r.Applies(tx.Type) {
			continue
		}
		hit, err := r.Evaluate(ctx, tx, h)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", r.Name(), err))
			continue
		}
		if hit {
			v.Rules = append(v.Rules, r.Name())
			v.Labels = append(v.Labels, r.Label())
		}
	}
	v.Suspicious = len(v.Rules) > 0
	return v, errors.Join(errs...)
}

// Check evaluates tx and flags it when suspicious. A partial verdict is
// still flagged; the rule errors are returned alongside the result.
func (e *Engine) Check(ctx context.Context, tx *models.Transaction) (*CheckResult, error) {
	v, evalErr := e.Evaluate(ctx, tx)
	if v == nil {
		return nil, evalErr
	}

	res := &CheckResult{Verdict: v}
	if !v.Suspicious || e.flagger == nil {
		return res, evalErr
	}

	created, err := e.flagger.Flag(ctx, tx, v)
	if err != nil {
		return res, errors.Join(evalErr, err)
	}
	res.Flagged = created
	res.AlreadyFlagged = !created
	if created {
		e.logger.Info("flagged transaction",
			zap.Uint("transaction_id", tx.ID),
			zap.String("reference", tx.Reference),
			zap.String("reason", v.Reason()),
		)
	}
	return res, evalErr
}
