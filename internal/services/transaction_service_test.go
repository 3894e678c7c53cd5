package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwise/internal/models"
	"walletwise/internal/notify"
	"walletwise/internal/pagination"
	"walletwise/internal/testutil"
)

func expenseInput(category, amount string, day int) TransactionInput {
	return TransactionInput{
		Title:    "Groceries",
		Amount:   decimal.RequireFromString(amount),
		Type:     models.TransactionTypeExpense,
		Category: category,
		Date:     testutil.Date(2025, 3, day),
	}
}

func TestCreateTransaction(t *testing.T) {
	t.Run("expense_charges_budget_and_notifies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		n := &recordingNotifier{}
		svc := NewTransactionService(db, NewBudgetTracker(), n)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "300", 3, 2025)

		txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "42.5", 14))
		testutil.AssertNoError(t, err)

		if txn.ID == "" || txn.WalletID != wallet.ID {
			t.Errorf("unexpected transaction %+v", txn)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "42.5", "spent")
		if n.count(notify.TransactionCreated) != 1 || n.count(notify.BudgetUpdated) != 1 {
			t.Errorf("unexpected events %+v", n.events)
		}
	})

	t.Run("income_leaves_budget_alone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		n := &recordingNotifier{}
		svc := NewTransactionService(db, NewBudgetTracker(), n)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "300", 3, 2025)

		in := expenseInput("Food", "1000", 1)
		in.Type = models.TransactionTypeIncome
		_, err := svc.CreateTransaction(owner, wallet.ID, in)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "0", "spent")
		if n.count(notify.BudgetUpdated) != 0 {
			t.Error("income must not announce a budget update")
		}
	})

	t.Run("no_budget_is_fine", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)

		_, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Travel", "80", 2))
		testutil.AssertNoError(t, err)

		var count int64
		db.Model(&models.Budget{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no budget to be created, got %d", count)
		}
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)

		in := expenseInput("Food", "0", 1)
		_, err := svc.CreateTransaction(owner, wallet.ID, in)
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")

		for _, amount := range []string{"0.004", "10.005"} {
			_, err = svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", amount, 1))
			testutil.AssertAppError(t, err, "INVALID_AMOUNT")
		}

		in = expenseInput("Food", "5", 1)
		in.Type = "transfer"
		_, err = svc.CreateTransaction(owner, wallet.ID, in)
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")

		in = expenseInput("", "5", 1)
		_, err = svc.CreateTransaction(owner, wallet.ID, in)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("non_member_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())

		_, err := svc.CreateTransaction(testutil.NewUserID(), wallet.ID, expenseInput("Food", "5", 1))
		testutil.AssertAppError(t, err, "NOT_WALLET_MEMBER")
	})

	t.Run("budget_failure_rolls_back_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, failingTracker{}, nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)

		_, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "5", 1))
		if err == nil {
			t.Fatal("expected error")
		}

		var count int64
		db.Model(&models.Transaction{}).Count(&count)
		if count != 0 {
			t.Errorf("expected rollback, found %d transactions", count)
		}
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("moves_amount_between_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		food := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "300", 3, 2025)
		travel := testutil.CreateTestBudget(t, db, wallet.ID, "Travel", "300", 4, 2025)

		txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "60", 10))
		testutil.AssertNoError(t, err)

		category := "Travel"
		amount := decimal.RequireFromString("75.25")
		date := testutil.Date(2025, 4, 2)
		updated, err := svc.UpdateTransaction(owner, txn.ID, TransactionUpdate{Category: &category, Amount: &amount, Date: &date})
		testutil.AssertNoError(t, err)

		if updated.Category != "Travel" {
			t.Errorf("expected Travel, got %s", updated.Category)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, food.ID).SpentAmount, "0", "food spent")
		testutil.AssertDecimal(t, loadBudget(t, db, travel.ID).SpentAmount, "75.25", "travel spent")

		stored, err := svc.GetTransactionByID(owner, txn.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDate(t, stored.Date, "2025-04-02", "stored date")
	})

	t.Run("budget_failure_keeps_old_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		txn := testutil.CreateTestTransaction(t, db, wallet.ID, models.TransactionTypeExpense, "Food", "10", testutil.Date(2025, 3, 1))

		svc := NewTransactionService(db, failingTracker{}, nil)
		amount := decimal.NewFromInt(99)
		_, err := svc.UpdateTransaction(owner, txn.ID, TransactionUpdate{Amount: &amount})
		if err == nil {
			t.Fatal("expected error")
		}

		var stored models.Transaction
		testutil.AssertNoError(t, db.First(&stored, "id = ?", txn.ID).Error)
		testutil.AssertDecimal(t, stored.Amount, "10", "amount")
	})

	t.Run("edit_committed_between_read_and_write", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "1000", 3, 2025)

		txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "100", 5))
		testutil.AssertNoError(t, err)

		fifty := decimal.NewFromInt(50)
		testutil.AfterFirstQueryOn(t, db, "transactions", func() {
			if _, err := svc.UpdateTransaction(owner, txn.ID, TransactionUpdate{Amount: &fifty}); err != nil {
				t.Errorf("competing edit failed: %v", err)
			}
		})

		seventy := decimal.NewFromInt(70)
		_, err = svc.UpdateTransaction(owner, txn.ID, TransactionUpdate{Amount: &seventy})
		testutil.AssertNoError(t, err)

		var stored models.Transaction
		testutil.AssertNoError(t, db.First(&stored, "id = ?", txn.ID).Error)
		testutil.AssertDecimal(t, stored.Amount, "70", "amount")
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "70", "spent")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)

		title := "x"
		_, err := svc.UpdateTransaction(testutil.NewUserID(), "missing", TransactionUpdate{Title: &title})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("refunds_budget_to_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		n := &recordingNotifier{}
		svc := NewTransactionService(db, NewBudgetTracker(), n)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "300", 3, 2025)

		var ids []string
		for i, amount := range []string{"10.5", "20.25", "5"} {
			txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", amount, i+1))
			testutil.AssertNoError(t, err)
			ids = append(ids, txn.ID)
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "35.75", "spent")

		for _, id := range ids {
			testutil.AssertNoError(t, svc.DeleteTransaction(owner, id))
		}
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "0", "spent after deletes")
		if n.count(notify.TransactionDeleted) != 3 {
			t.Errorf("expected 3 delete events, got %d", n.count(notify.TransactionDeleted))
		}

		_, err := svc.GetTransactionByID(owner, ids[0])
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("refunds_amount_of_row_actually_deleted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		budget := testutil.CreateTestBudget(t, db, wallet.ID, "Food", "1000", 3, 2025)

		txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "100", 5))
		testutil.AssertNoError(t, err)

		fifty := decimal.NewFromInt(50)
		testutil.AfterFirstQueryOn(t, db, "transactions", func() {
			if _, err := svc.UpdateTransaction(owner, txn.ID, TransactionUpdate{Amount: &fifty}); err != nil {
				t.Errorf("competing edit failed: %v", err)
			}
		})

		testutil.AssertNoError(t, svc.DeleteTransaction(owner, txn.ID))
		testutil.AssertDecimal(t, loadBudget(t, db, budget.ID).SpentAmount, "0", "spent after delete")
	})

	t.Run("other_member_can_delete_shared", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner, member := testutil.NewUserID(), testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		testutil.AddTestMember(t, db, wallet.ID, member, models.MemberRoleMember)

		txn, err := svc.CreateTransaction(owner, wallet.ID, expenseInput("Food", "1", 1))
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeleteTransaction(member, txn.ID))
	})

	t.Run("stranger_forbidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		wallet := testutil.CreateTestWallet(t, db, testutil.NewUserID())
		txn := testutil.CreateTestTransaction(t, db, wallet.ID, models.TransactionTypeExpense, "Food", "1", testutil.Date(2025, 1, 1))

		testutil.AssertAppError(t, svc.DeleteTransaction(testutil.NewUserID(), txn.ID), "NOT_WALLET_MEMBER")
	})
}

func TestGetWalletTransactions(t *testing.T) {
	t.Run("filters_and_orders_newest_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewBudgetTracker(), nil)
		owner := testutil.NewUserID()
		wallet := testutil.CreateTestWallet(t, db, owner)
		other := testutil.CreateTestWallet(t, db, owner)

		testutil.CreateTestTransaction(t, db, wallet.ID, models.TransactionTypeExpense, "Food", "1", testutil.Date(2025, 1, 5))
		testutil.CreateTestTransaction(t, db, wallet.ID, models.TransactionTypeExpense, "Food", "2", testutil.Date(2025, 2, 5))
		testutil.CreateTestTransaction(t, db, wallet.ID, models.TransactionTypeIncome, "Salary", "3", testutil.Date(2025, 2, 6))
		testutil.CreateTestTransaction(t, db, other.ID, models.TransactionTypeExpense, "Food", "4", testutil.Date(2025, 2, 7))

		all, err := svc.GetWalletTransactions(owner, wallet.ID, pagination.PageRequest{}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if all.TotalItems != 3 {
			t.Fatalf("expected 3 transactions, got %d", all.TotalItems)
		}
		testutil.AssertDate(t, all.Data[0].Date, "2025-02-06", "newest first")

		expense := models.TransactionTypeExpense
		from := testutil.Date(2025, 2, 1)
		filtered, err := svc.GetWalletTransactions(owner, wallet.ID, pagination.PageRequest{}, TransactionFilter{Type: &expense, FromDate: &from})
		testutil.AssertNoError(t, err)
		if filtered.TotalItems != 1 {
			t.Errorf("expected 1 filtered transaction, got %d", filtered.TotalItems)
		}

		page, err := svc.GetWalletTransactions(owner, wallet.ID, pagination.PageRequest{Page: 2, PageSize: 2}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if len(page.Data) != 1 || page.TotalPages != 2 {
			t.Errorf("unexpected page %+v", page)
		}
	})
}

type failingTracker struct{}

func (failingTracker) ApplyDelta(*gorm.DB, string, string, time.Time, decimal.Decimal) (bool, error) {
	return false, errors.New("budget store down")
}

func (failingTracker) RecordTransactionMutation(*gorm.DB, MutationKind, *models.Transaction, *models.Transaction) (int, error) {
	return 0, errors.New("budget store down")
}
