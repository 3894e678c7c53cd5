package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
	"walletwise/internal/notify"
	"walletwise/internal/schedule"
)

// errRuleMoved means the rule row no longer matches the state this worker
// read: another run advanced it, a user edited it or it was deleted.
var errRuleMoved = errors.New("recurring rule changed concurrently")

// materializer emits one transaction per elapsed period of every due rule.
//
// Each period commits on its own: the rule row is advanced with a
// compare-and-set on (active, next_execution_date) in the same database
// transaction as the emitted transaction and its budget delta. A failed
// period rolls back alone and leaves the rule due, so the next run retries it.
type materializer struct {
	db       *gorm.DB
	budgets  BudgetTracker
	notifier Notifier
	workers  int
	log      *zap.SugaredLogger
}

// NewMaterializer creates a Materializer that processes up to workers rules at once.
func NewMaterializer(db *gorm.DB, budgets BudgetTracker, notifier Notifier, workers int, log *zap.SugaredLogger) Materializer {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &materializer{
		db:       db,
		budgets:  budgets,
		notifier: notifierOrNoop(notifier),
		workers:  workers,
		log:      log,
	}
}

type ruleOutcome struct {
	created int
	retired bool
	moved   bool
	failure *RuleFailure
}

// RunDueRules materializes every active rule due on or before today. Rule
// failures are recorded in the result; only failing to list due rules
// returns an error.
func (m *materializer) RunDueRules(ctx context.Context, today time.Time) (*RunResult, error) {
	started := time.Now()
	today = schedule.Day(today)
	result := &RunResult{Today: today, Failures: []RuleFailure{}}

	var due []models.RecurringRule
	if err := m.db.WithContext(ctx).
		Where("active = ? AND next_execution_date <= ?", true, today).
		Order("next_execution_date ASC, id ASC").
		Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("load due rules: %w", err))
	}
	result.RulesDue = len(due)

	var (
		mu          sync.Mutex
		materialize = map[string]bool{}
		retired     = map[string]bool{}
	)

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		rule := due[i]
		g.Go(func() error {
			out := m.processRule(ctx, rule, today)

			mu.Lock()
			defer mu.Unlock()
			result.RulesProcessed++
			result.TransactionsCreated += out.created
			if out.created > 0 {
				materialize[rule.WalletID] = true
			}
			if out.retired {
				result.RulesRetired++
				retired[rule.WalletID] = true
			}
			if out.moved {
				result.Conflicts++
			}
			if out.failure != nil {
				result.Failures = append(result.Failures, *out.failure)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].RuleID < result.Failures[j].RuleID })

	for _, walletID := range sortedKeys(materialize) {
		m.notifier.Notify(ctx, walletID, notify.RecurringMaterialized)
	}
	for _, walletID := range sortedKeys(retired) {
		m.notifier.Notify(ctx, walletID, notify.RecurringRetired)
	}

	result.Duration = time.Since(started)
	m.log.Infow("recurring run finished",
		"today", today.Format("2006-01-02"),
		"rules_due", result.RulesDue,
		"rules_processed", result.RulesProcessed,
		"transactions_created", result.TransactionsCreated,
		"rules_retired", result.RulesRetired,
		"conflicts", result.Conflicts,
		"failures", len(result.Failures),
		"duration", result.Duration,
	)
	return result, nil
}

// processRule runs the catch-up loop for one rule, oldest period first.
func (m *materializer) processRule(ctx context.Context, rule models.RecurringRule, today time.Time) (out ruleOutcome) {
	next := schedule.Day(rule.NextExecutionDate)
	fail := func(err error) ruleOutcome {
		m.log.Errorw("recurring rule period failed",
			"rule_id", rule.ID,
			"wallet_id", rule.WalletID,
			"period", next.Format("2006-01-02"),
			"error", err,
		)
		out.failure = &RuleFailure{RuleID: rule.ID, WalletID: rule.WalletID, Period: next, Error: err.Error()}
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if _, err := schedule.StepperFor(rule.Frequency); err != nil {
		return fail(err)
	}

	var end *time.Time
	if rule.EndDate != nil {
		e := schedule.Day(*rule.EndDate)
		end = &e
	}
	anchor := rule.Anchor()

	for !next.After(today) {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		// The end date was moved before a period that is already due.
		if end != nil && next.After(*end) {
			if err := m.commitPeriod(ctx, rule, next, next, false, false); err != nil {
				return m.periodError(out, err, fail)
			}
			out.retired = true
			return out
		}

		advanced, err := schedule.Advance(next, rule.Frequency, anchor)
		if err != nil {
			return fail(err)
		}
		newNext, active := advanced, true
		if end != nil && advanced.After(*end) {
			newNext, active = next, false
		}

		if err := m.commitPeriod(ctx, rule, next, newNext, active, true); err != nil {
			return m.periodError(out, err, fail)
		}
		out.created++

		if !active {
			out.retired = true
			return out
		}
		next = newNext
	}
	return out
}

func (m *materializer) periodError(out ruleOutcome, err error, fail func(error) ruleOutcome) ruleOutcome {
	if errors.Is(err, errRuleMoved) {
		m.log.Warnw("recurring rule moved during run, skipping", "error", err)
		out.moved = true
		return out
	}
	return fail(err)
}

// commitPeriod advances the rule from due to newNext and, when emit is set,
// writes the period's transaction and budget delta, all in one transaction.
func (m *materializer) commitPeriod(ctx context.Context, rule models.RecurringRule, due, newNext time.Time, active, emit bool) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RecurringRule{}).
			Where("id = ? AND active = ? AND next_execution_date = ?", rule.ID, true, due).
			Updates(map[string]interface{}{
				"next_execution_date": newNext,
				"active":              active,
			})
		if res.Error != nil {
			return fmt.Errorf("advance rule: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("rule %s at %s: %w", rule.ID, due.Format("2006-01-02"), errRuleMoved)
		}
		if !emit {
			return nil
		}

		ruleID := rule.ID
		transaction := &models.Transaction{
			WalletID:        rule.WalletID,
			Title:           rule.Title,
			Description:     rule.Description,
			Amount:          rule.Amount,
			Type:            rule.Type,
			Category:        rule.Category,
			Date:            due,
			RecurringRuleID: &ruleID,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		if _, err := m.budgets.RecordTransactionMutation(tx, MutationCreated, transaction, nil); err != nil {
			return fmt.Errorf("apply budget delta: %w", err)
		}
		return nil
	})
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
