package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"walletwise/internal/models"
	"walletwise/internal/notify"
	"walletwise/internal/schedule"
	"walletwise/internal/testutil"
)

type recordedEvent struct {
	walletID string
	kind     notify.EventKind
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, walletID string, kind notify.EventKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{walletID: walletID, kind: kind})
}

func (n *recordingNotifier) count(kind notify.EventKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.kind == kind {
			c++
		}
	}
	return c
}

func newTestMaterializer(db *gorm.DB, n Notifier) Materializer {
	return NewMaterializer(db, NewBudgetTracker(), n, 4, zap.NewNop().Sugar())
}

func ruleTransactions(t *testing.T, db *gorm.DB, ruleID string) []models.Transaction {
	t.Helper()
	var txns []models.Transaction
	if err := db.Where("recurring_rule_id = ?", ruleID).Order("date ASC").Find(&txns).Error; err != nil {
		t.Fatalf("failed to load transactions: %v", err)
	}
	return txns
}

func reloadRule(t *testing.T, db *gorm.DB, id string) models.RecurringRule {
	t.Helper()
	var r models.RecurringRule
	if err := db.First(&r, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload rule: %v", err)
	}
	return r
}

func assertDates(t *testing.T, txns []models.Transaction, want ...string) {
	t.Helper()
	if len(txns) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(txns))
	}
	for i, w := range want {
		testutil.AssertDate(t, txns[i].Date, w, "transaction date")
	}
}

func TestMaterializer_CatchUp(t *testing.T) {
	t.Run("emits_one_transaction_per_missed_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1))

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 4, 1))
		testutil.AssertNoError(t, err)

		if result.RulesDue != 1 || result.TransactionsCreated != 4 || len(result.Failures) != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		txns := ruleTransactions(t, db, rule.ID)
		assertDates(t, txns, "2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01")
		for _, txn := range txns {
			if txn.WalletID != wallet.ID || txn.Title != rule.Title || txn.Category != rule.Category || txn.Type != rule.Type {
				t.Errorf("transaction does not copy the rule: %+v", txn)
			}
			testutil.AssertDecimal(t, txn.Amount, "50.25", "transaction amount")
		}

		got := reloadRule(t, db, rule.ID)
		testutil.AssertDate(t, got.NextExecutionDate, "2025-05-01", "next execution")
		if !got.Active {
			t.Error("rule should stay active")
		}
	})

	t.Run("clamps_month_end_and_returns_to_the_anchor_day", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2024, 1, 31))

		_, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2024, 4, 30))
		testutil.AssertNoError(t, err)

		assertDates(t, ruleTransactions(t, db, rule.ID), "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30")
		testutil.AssertDate(t, reloadRule(t, db, rule.ID).NextExecutionDate, "2024-05-31", "next execution")
	})

	t.Run("daily_and_weekly_rules", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		daily := testutil.CreateTestRule(t, db, wallet.ID, schedule.Daily, testutil.Date(2025, 2, 27))
		weekly := testutil.CreateTestRule(t, db, wallet.ID, schedule.Weekly, testutil.Date(2025, 2, 17))

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 3, 2))
		testutil.AssertNoError(t, err)
		if result.TransactionsCreated != 6 {
			t.Errorf("expected 6 transactions, got %d", result.TransactionsCreated)
		}

		assertDates(t, ruleTransactions(t, db, daily.ID), "2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02")
		assertDates(t, ruleTransactions(t, db, weekly.ID), "2025-02-17", "2025-02-24")
		testutil.AssertDate(t, reloadRule(t, db, weekly.ID).NextExecutionDate, "2025-03-03", "weekly next")
	})

	t.Run("rule_not_yet_due_is_left_alone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 5, 1))

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 4, 30))
		testutil.AssertNoError(t, err)
		if result.RulesDue != 0 || result.TransactionsCreated != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(ruleTransactions(t, db, rule.ID)) != 0 {
			t.Error("expected no transactions")
		}
	})
}

func TestMaterializer_EndDate(t *testing.T) {
	t.Run("retires_after_the_last_period_in_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1),
			testutil.WithEndDate(testutil.Date(2025, 2, 15)))
		m := newTestMaterializer(db, nil)

		result, err := m.RunDueRules(context.Background(), testutil.Date(2025, 6, 1))
		testutil.AssertNoError(t, err)
		if result.RulesRetired != 1 {
			t.Errorf("expected 1 retired rule, got %d", result.RulesRetired)
		}
		assertDates(t, ruleTransactions(t, db, rule.ID), "2025-01-01", "2025-02-01")

		got := reloadRule(t, db, rule.ID)
		if got.Active {
			t.Fatal("rule should be retired")
		}
		if got.NextExecutionDate.Before(got.StartDate) {
			t.Error("next execution must not precede the start date")
		}

		for _, today := range []string{"2025-06-01", "2026-01-01", "2030-12-31"} {
			result, err := m.RunDueRules(context.Background(), testutil.MustDate(today))
			testutil.AssertNoError(t, err)
			if result.RulesDue != 0 || result.TransactionsCreated != 0 {
				t.Errorf("retired rule was picked up on %s: %+v", today, result)
			}
		}
		if n := len(ruleTransactions(t, db, rule.ID)); n != 2 {
			t.Errorf("expected 2 transactions after reruns, got %d", n)
		}
	})

	t.Run("end_date_on_a_due_date_is_inclusive", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Daily, testutil.Date(2025, 1, 1),
			testutil.WithEndDate(testutil.Date(2025, 1, 3)))

		_, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 1, 10))
		testutil.AssertNoError(t, err)
		assertDates(t, ruleTransactions(t, db, rule.ID), "2025-01-01", "2025-01-02", "2025-01-03")
		if reloadRule(t, db, rule.ID).Active {
			t.Error("rule should be retired")
		}
	})

	t.Run("retires_without_emitting_when_next_is_already_past_the_end", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1),
			testutil.WithNextExecution(testutil.Date(2025, 3, 1)),
			testutil.WithEndDate(testutil.Date(2025, 2, 15)))

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 4, 1))
		testutil.AssertNoError(t, err)
		if result.TransactionsCreated != 0 || result.RulesRetired != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		got := reloadRule(t, db, rule.ID)
		if got.Active {
			t.Error("rule should be retired")
		}
		testutil.AssertDate(t, got.NextExecutionDate, "2025-03-01", "next execution")
	})

	t.Run("inactive_rules_are_never_picked_up", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Daily, testutil.Date(2025, 1, 1), testutil.Inactive())

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 2, 1))
		testutil.AssertNoError(t, err)
		if result.RulesDue != 0 || len(ruleTransactions(t, db, rule.ID)) != 0 {
			t.Errorf("inactive rule materialized: %+v", result)
		}
	})
}

func TestMaterializer_Idempotence(t *testing.T) {
	t.Run("rerun_with_the_same_day_adds_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1))
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "1000", 2, 2025)
		m := newTestMaterializer(db, nil)
		today := testutil.Date(2025, 4, 1)

		_, err := m.RunDueRules(context.Background(), today)
		testutil.AssertNoError(t, err)
		second, err := m.RunDueRules(context.Background(), today)
		testutil.AssertNoError(t, err)

		if second.RulesDue != 0 || second.TransactionsCreated != 0 {
			t.Errorf("expected empty rerun, got %+v", second)
		}
		if n := len(ruleTransactions(t, db, rule.ID)); n != 4 {
			t.Errorf("expected 4 transactions, got %d", n)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "50.25", "february spent")
	})

	t.Run("concurrent_runs_never_double_materialize", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		var rules []*models.RecurringRule
		for i := 0; i < 5; i++ {
			rules = append(rules, testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1)))
		}
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "10000", 3, 2025)

		m := newTestMaterializer(db, nil)
		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.RunDueRules(context.Background(), testutil.Date(2025, 4, 1)); err != nil {
					t.Errorf("run failed: %v", err)
				}
			}()
		}
		wg.Wait()

		for _, r := range rules {
			if n := len(ruleTransactions(t, db, r.ID)); n != 4 {
				t.Errorf("rule %s: expected 4 transactions, got %d", r.ID, n)
			}
			testutil.AssertDate(t, reloadRule(t, db, r.ID).NextExecutionDate, "2025-05-01", "next execution")
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "251.25", "march spent")
	})
}

func TestMaterializer_Budgets(t *testing.T) {
	t.Run("deltas_are_keyed_by_the_period_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1), testutil.WithAmount("100.5"))
		jan := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "500", 1, 2025)
		mar := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "500", 3, 2025)
		other := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "500", 4, 2025)

		_, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 4, 1))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, loadBudget(t, db, jan.ID).SpentAmount, "100.5", "january spent")
		testutil.AssertDecimal(t, loadBudget(t, db, mar.ID).SpentAmount, "100.5", "march spent")
		testutil.AssertDecimal(t, loadBudget(t, db, other.ID).SpentAmount, "0", "food spent")

		var count int64
		db.Model(&models.Budget{}).Count(&count)
		if count != 3 {
			t.Errorf("materialization must not create budgets, found %d", count)
		}
	})

	t.Run("income_rules_never_touch_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1),
			testutil.WithType(models.TransactionTypeIncome), testutil.WithCategory("Salary"), testutil.WithAmount("3000"))
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Salary", "100", 1, 2025)

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 1, 31))
		testutil.AssertNoError(t, err)
		if result.TransactionsCreated != 1 {
			t.Errorf("expected 1 transaction, got %d", result.TransactionsCreated)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "0", "salary spent")
	})
}

func TestMaterializer_Failures(t *testing.T) {
	errStore := errors.New("store unavailable")

	t.Run("failing_rule_does_not_block_others_and_retries_next_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		bad := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1))
		good := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1))
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "1000", 1, 2025)

		restore := testutil.FailCreatesWhen(t, db, func(tx *gorm.DB) bool {
			txn, ok := tx.Statement.Dest.(*models.Transaction)
			return ok && txn.RecurringRuleID != nil && *txn.RecurringRuleID == bad.ID
		}, errStore)

		m := newTestMaterializer(db, nil)
		result, err := m.RunDueRules(context.Background(), testutil.Date(2025, 3, 1))
		testutil.AssertNoError(t, err)

		if len(result.Failures) != 1 || result.Failures[0].RuleID != bad.ID {
			t.Fatalf("expected one failure for the bad rule, got %+v", result.Failures)
		}
		testutil.AssertDate(t, result.Failures[0].Period, "2025-01-01", "failed period")
		if len(ruleTransactions(t, db, bad.ID)) != 0 {
			t.Error("failed period must roll back")
		}
		gotBad := reloadRule(t, db, bad.ID)
		testutil.AssertDate(t, gotBad.NextExecutionDate, "2025-01-01", "bad rule next")
		if !gotBad.Active {
			t.Error("bad rule should stay active")
		}
		assertDates(t, ruleTransactions(t, db, good.ID), "2025-01-01", "2025-02-01", "2025-03-01")
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "50.25", "january spent")

		restore()
		retry, err := m.RunDueRules(context.Background(), testutil.Date(2025, 3, 1))
		testutil.AssertNoError(t, err)
		if retry.RulesDue != 1 || retry.TransactionsCreated != 3 {
			t.Errorf("unexpected retry result %+v", retry)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "100.5", "january spent after retry")
	})

	t.Run("mid_catch_up_failure_keeps_earlier_periods", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		rule := testutil.CreateTestRule(t, db, wallet.ID, schedule.Monthly, testutil.Date(2025, 1, 1))
		march := testutil.Date(2025, 3, 1)
		marchBudget := testutil.CreateTestBudget(t, db, wallet.ID, "Rent", "1000", 3, 2025)

		restore := testutil.FailCreatesWhen(t, db, func(tx *gorm.DB) bool {
			txn, ok := tx.Statement.Dest.(*models.Transaction)
			return ok && txn.Date.Equal(march)
		}, errStore)

		m := newTestMaterializer(db, nil)
		result, err := m.RunDueRules(context.Background(), testutil.Date(2025, 4, 1))
		testutil.AssertNoError(t, err)
		if result.TransactionsCreated != 2 || len(result.Failures) != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		assertDates(t, ruleTransactions(t, db, rule.ID), "2025-01-01", "2025-02-01")
		testutil.AssertDate(t, reloadRule(t, db, rule.ID).NextExecutionDate, "2025-03-01", "next execution")
		testutil.AssertDecimal(t, loadBudget(t, db, marchBudget.ID).SpentAmount, "0", "march spent")

		restore()
		_, err = m.RunDueRules(context.Background(), testutil.Date(2025, 4, 1))
		testutil.AssertNoError(t, err)
		assertDates(t, ruleTransactions(t, db, rule.ID), "2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01")
		testutil.AssertDecimal(t, loadBudget(t, db, marchBudget.ID).SpentAmount, "50.25", "march spent after retry")
	})

	t.Run("unknown_frequency_fails_only_that_rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		broken := testutil.CreateTestRule(t, db, wallet.ID, schedule.Frequency("FORTNIGHTLY"), testutil.Date(2025, 1, 1))
		ok := testutil.CreateTestRule(t, db, wallet.ID, schedule.Yearly, testutil.Date(2024, 2, 29))

		result, err := newTestMaterializer(db, nil).RunDueRules(context.Background(), testutil.Date(2025, 3, 1))
		testutil.AssertNoError(t, err)
		if len(result.Failures) != 1 || result.Failures[0].RuleID != broken.ID {
			t.Errorf("expected failure for broken rule, got %+v", result.Failures)
		}
		if len(ruleTransactions(t, db, broken.ID)) != 0 {
			t.Error("broken rule must not emit")
		}
		assertDates(t, ruleTransactions(t, db, ok.ID), "2024-02-29", "2025-02-28")
		testutil.AssertDate(t, reloadRule(t, db, ok.ID).NextExecutionDate, "2026-02-28", "yearly next")
	})

	t.Run("cancelled_context_aborts_before_loading_rules", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		testutil.CreateTestRule(t, db, wallet.ID, schedule.Daily, testutil.Date(2025, 1, 1))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := newTestMaterializer(db, nil).RunDueRules(ctx, testutil.Date(2025, 1, 5)); err == nil {
			t.Fatal("expected error from cancelled context")
		}

		var count int64
		db.Model(&models.Transaction{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no transactions, got %d", count)
		}
	})
}

func TestMaterializer_Notifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	w1 := testutil.CreateTestWallet(t, db, testutil.NewUserID())
	w2 := testutil.CreateTestWallet(t, db, testutil.NewUserID())
	testutil.CreateTestRule(t, db, w1.ID, schedule.Monthly, testutil.Date(2025, 1, 1))
	testutil.CreateTestRule(t, db, w1.ID, schedule.Weekly, testutil.Date(2025, 1, 1))
	testutil.CreateTestRule(t, db, w2.ID, schedule.Daily, testutil.Date(2025, 1, 1), testutil.WithEndDate(testutil.Date(2025, 1, 2)))
	testutil.CreateTestWallet(t, db, testutil.NewUserID())

	n := &recordingNotifier{}
	_, err := newTestMaterializer(db, n).RunDueRules(context.Background(), testutil.Date(2025, 1, 10))
	testutil.AssertNoError(t, err)

	if got := n.count(notify.RecurringMaterialized); got != 2 {
		t.Errorf("expected one materialized event per wallet, got %d", got)
	}
	if got := n.count(notify.RecurringRetired); got != 1 {
		t.Errorf("expected one retired event, got %d", got)
	}
	for _, e := range n.events {
		if e.kind == notify.RecurringRetired && e.walletID != w2.ID {
			t.Errorf("retired event for wrong wallet %s", e.walletID)
		}
	}

	again := &recordingNotifier{}
	_, err = newTestMaterializer(db, again).RunDueRules(context.Background(), testutil.Date(2025, 1, 10))
	testutil.AssertNoError(t, err)
	if len(again.events) != 0 {
		t.Errorf("expected no events for an empty run, got %d", len(again.events))
	}
}
