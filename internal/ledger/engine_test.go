package ledger

import (
	"path/filepath"
	"testing"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/config"
	"github.com/AIP-project/portfolia-backend-sub000/internal/database"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username:          username,
		PasswordHash:      "x$x",
		Role:              role,
		PreferredCurrency: "KRW",
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustCreateAccount(t *testing.T, e *Engine, u *models.User, name string, typ models.AccountType, currency string) *models.Account {
	t.Helper()
	a, err := e.CreateAccount(u, AccountInput{Name: name, Type: typ, Currency: currency})
	if err != nil {
		t.Fatalf("create %s account: %v", typ, err)
	}
	return a
}

func getSummary(t *testing.T, db *gorm.DB, accountID string, kind models.SummaryKind, symbol, currency string) *models.Summary {
	t.Helper()
	var s models.Summary
	err := db.Where("account_id = ? AND kind = ? AND symbol = ? AND currency = ? AND is_deleted = ?",
		accountID, kind, symbol, currency, false).First(&s).Error
	if err != nil {
		t.Fatalf("load %s/%s/%s summary: %v", kind, symbol, currency, err)
	}
	return &s
}

func wantAmount(t *testing.T, got decimal.Decimal, want string, what string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

func deposit(t *testing.T, e *Engine, u *models.User, accountID, amount, currency string) *models.Transaction {
	t.Helper()
	tx, err := e.Create(u, TransactionInput{
		AccountID: accountID,
		Type:      models.TxDeposit,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		Date:      "2024-03-01",
	})
	if err != nil {
		t.Fatalf("deposit %s: %v", amount, err)
	}
	return tx
}

// Scenario: bank account balance follows deposits and withdrawals.
func TestBankDepositWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "salary", models.AccountBank, "KRW")

	deposit(t, e, u, acct.ID, "100000", "KRW")
	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "100000", "cash after deposit")

	_, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Type:      models.TxWithdrawal,
		Amount:    decimal.RequireFromString("30000"),
		Currency:  "KRW",
		Date:      "2024-03-02",
	})
	if err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	cash = getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "70000", "cash after withdrawal")
}

// Scenario: a BUY moves the symbol summary and the cash leg together.
func TestStockBuyMovesBothLegs(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")

	_, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Symbol:    "AAPL",
		Type:      models.TxBuy,
		Quantity:  decimal.NewFromInt(10),
		Amount:    decimal.RequireFromString("1500"),
		Currency:  "KRW",
		Date:      "2024-03-01",
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	holding := getSummary(t, db, acct.ID, models.SummaryHolding, "AAPL", "KRW")
	wantAmount(t, holding.Quantity, "10", "AAPL quantity")
	wantAmount(t, holding.Amount, "1500", "AAPL amount")

	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "-1500", "cash after buy")
}

// Scenario: updating a transaction applies a compensating delta, not a
// blind overwrite.
func TestUpdateAppliesDelta(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")

	tx, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Symbol:    "AAPL",
		Type:      models.TxBuy,
		Quantity:  decimal.NewFromInt(10),
		Amount:    decimal.RequireFromString("1500"),
		Currency:  "KRW",
		Date:      "2024-03-01",
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	// bump quantity to 15, amount unchanged
	_, err = e.Update(u, tx.ID, TransactionInput{
		Symbol:   "AAPL",
		Type:     models.TxBuy,
		Quantity: decimal.NewFromInt(15),
		Amount:   decimal.RequireFromString("1500"),
		Currency: "KRW",
		Date:     "2024-03-01",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	holding := getSummary(t, db, acct.ID, models.SummaryHolding, "AAPL", "KRW")
	wantAmount(t, holding.Quantity, "15", "AAPL quantity after update")
	wantAmount(t, holding.Amount, "1500", "AAPL amount after update")

	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "-1500", "cash after update with unchanged amount")
}

// Scenario: soft delete restores both legs.
func TestSoftDeleteRestoresBothLegs(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")

	tx, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Symbol:    "AAPL",
		Type:      models.TxBuy,
		Quantity:  decimal.NewFromInt(10),
		Amount:    decimal.RequireFromString("1500"),
		Currency:  "KRW",
		Date:      "2024-03-01",
	})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}

	if _, err := e.SoftDelete(u, tx.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	holding := getSummary(t, db, acct.ID, models.SummaryHolding, "AAPL", "KRW")
	wantAmount(t, holding.Quantity, "0", "AAPL quantity after delete")
	wantAmount(t, holding.Amount, "0", "AAPL amount after delete")

	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "0", "cash restored after delete")
}

// Fractional amounts must accumulate exactly: the increments run in
// decimal, never through the database's float arithmetic.
func TestFractionalIncrementsStayExact(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "wallet", models.AccountBank, "KRW")

	for i := 0; i < 10; i++ {
		deposit(t, e, u, acct.ID, "0.1", "KRW")
	}
	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "1", "cash after ten 0.1 deposits")

	coin := mustCreateAccount(t, e, u, "coins", models.AccountCoin, "KRW")
	deposit(t, e, u, coin.ID, "100", "KRW")
	for i := 0; i < 3; i++ {
		_, err := e.Create(u, TransactionInput{
			AccountID: coin.ID,
			Symbol:    "BTC",
			Type:      models.TxBuy,
			Quantity:  decimal.RequireFromString("0.1"),
			Amount:    decimal.RequireFromString("30.3"),
			Currency:  "KRW",
			Date:      "2024-03-01",
		})
		if err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
	}
	holding := getSummary(t, db, coin.ID, models.SummaryHolding, "BTC", "KRW")
	wantAmount(t, holding.Quantity, "0.3", "BTC quantity after three 0.1 buys")
	wantAmount(t, holding.Amount, "90.9", "BTC amount after three 30.3 buys")
	cash = getSummary(t, db, coin.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "9.1", "coin cash after three 30.3 buys")
}

func TestCreateOnDeletedAccountIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "salary", models.AccountBank, "KRW")

	if err := e.SoftDeleteAccount(u, acct.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	_, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Type:      models.TxDeposit,
		Amount:    decimal.NewFromInt(100),
		Currency:  "KRW",
		Date:      "2024-03-01",
	})
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("create on deleted account: code = %d, want %d", apperr.CodeOf(err), apperr.CodeNotFound)
	}
	var n int64
	db.Model(&models.Transaction{}).Where("account_id = ?", acct.ID).Count(&n)
	if n != 0 {
		t.Errorf("deleted account gained %d transactions", n)
	}
}

func TestSoftDeleteTwiceIsNotFound(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "salary", models.AccountBank, "KRW")
	tx := deposit(t, e, u, acct.ID, "100000", "KRW")

	if _, err := e.SoftDelete(u, tx.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	_, err := e.SoftDelete(u, tx.ID)
	if err == nil {
		t.Fatal("second delete succeeded, want not-found")
	}
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("second delete code = %d, want %d", apperr.CodeOf(err), apperr.CodeNotFound)
	}

	// the compensating delta must not have been applied twice
	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "0", "cash after double delete")
}

// The central invariant: after any sequence of operations the summary
// equals the signed sum of the live transactions behind it.
func TestSummaryMatchesSignedSum(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")

	buy := func(sym, qty, amt string) *models.Transaction {
		tx, err := e.Create(u, TransactionInput{
			AccountID: acct.ID,
			Symbol:    sym,
			Type:      models.TxBuy,
			Quantity:  decimal.RequireFromString(qty),
			Amount:    decimal.RequireFromString(amt),
			Currency:  "KRW",
			Date:      "2024-03-01",
		})
		if err != nil {
			t.Fatalf("buy %s: %v", sym, err)
		}
		return tx
	}
	sell := func(sym, qty, amt string) {
		_, err := e.Create(u, TransactionInput{
			AccountID: acct.ID,
			Symbol:    sym,
			Type:      models.TxSell,
			Quantity:  decimal.RequireFromString(qty),
			Amount:    decimal.RequireFromString(amt),
			Currency:  "KRW",
			Date:      "2024-03-02",
		})
		if err != nil {
			t.Fatalf("sell %s: %v", sym, err)
		}
	}

	deposit(t, e, u, acct.ID, "1000000", "KRW")
	b1 := buy("AAPL", "10", "150000")
	buy("AAPL", "5", "80000")
	sell("AAPL", "3", "50000")
	b2 := buy("MSFT", "2", "90000")
	if _, err := e.SoftDelete(u, b2.ID); err != nil {
		t.Fatalf("delete MSFT buy: %v", err)
	}
	if _, err := e.Update(u, b1.ID, TransactionInput{
		Symbol:   "AAPL",
		Type:     models.TxBuy,
		Quantity: decimal.RequireFromString("12"),
		Amount:   decimal.RequireFromString("170000"),
		Currency: "KRW",
		Date:     "2024-03-01",
	}); err != nil {
		t.Fatalf("update first buy: %v", err)
	}

	// recompute the signed sum from the live transactions
	var txs []models.Transaction
	if err := db.Where("account_id = ? AND is_deleted = ?", acct.ID, false).Find(&txs).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	var wantQty, wantAmt, wantCash decimal.Decimal
	for _, tx := range txs {
		sign := Sign(tx.Type)
		switch tx.Type {
		case models.TxBuy, models.TxSell:
			if tx.Symbol == "AAPL" {
				wantQty = wantQty.Add(sign.Mul(tx.Quantity))
				wantAmt = wantAmt.Add(sign.Mul(tx.Amount))
			}
			wantCash = wantCash.Sub(sign.Mul(tx.Amount))
		case models.TxDeposit, models.TxWithdrawal:
			wantCash = wantCash.Add(sign.Mul(tx.Amount))
		}
	}

	holding := getSummary(t, db, acct.ID, models.SummaryHolding, "AAPL", "KRW")
	if !holding.Quantity.Equal(wantQty) || !holding.Amount.Equal(wantAmt) {
		t.Errorf("AAPL summary = (%s, %s), want signed sum (%s, %s)",
			holding.Quantity, holding.Amount, wantQty, wantAmt)
	}
	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	if !cash.Amount.Equal(wantCash) {
		t.Errorf("cash summary = %s, want signed sum %s", cash.Amount, wantCash)
	}

	// MSFT contribution is fully compensated
	msft := getSummary(t, db, acct.ID, models.SummaryHolding, "MSFT", "KRW")
	wantAmount(t, msft.Quantity, "0", "MSFT quantity after delete")
	wantAmount(t, msft.Amount, "0", "MSFT amount after delete")
}

func TestValidationRejectsBeforeAnyWrite(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "salary", models.AccountBank, "KRW")

	cases := []struct {
		name string
		in   TransactionInput
	}{
		{"negative amount", TransactionInput{
			AccountID: acct.ID, Type: models.TxDeposit,
			Amount: decimal.RequireFromString("-5"), Date: "2024-03-01",
		}},
		{"negative quantity", TransactionInput{
			AccountID: acct.ID, Type: models.TxDeposit,
			Quantity: decimal.RequireFromString("-1"),
			Amount:   decimal.NewFromInt(5), Date: "2024-03-01",
		}},
		{"bad date", TransactionInput{
			AccountID: acct.ID, Type: models.TxDeposit,
			Amount: decimal.NewFromInt(5), Date: "not-a-date",
		}},
		{"wrong type for class", TransactionInput{
			AccountID: acct.ID, Symbol: "AAPL", Type: models.TxBuy,
			Quantity: decimal.NewFromInt(1),
			Amount:   decimal.NewFromInt(5), Date: "2024-03-01",
		}},
	}
	for _, tc := range cases {
		_, err := e.Create(u, tc.in)
		if err == nil {
			t.Errorf("%s: create succeeded, want validation error", tc.name)
			continue
		}
		if apperr.CodeOf(err) != apperr.CodeInvalidParam {
			t.Errorf("%s: code = %d, want %d", tc.name, apperr.CodeOf(err), apperr.CodeInvalidParam)
		}
	}

	// nothing was written
	var n int64
	db.Model(&models.Transaction{}).Count(&n)
	if n != 0 {
		t.Errorf("transactions written by rejected operations: %d", n)
	}
	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "KRW")
	wantAmount(t, cash.Amount, "0", "cash after rejected operations")
}

func TestOwnerOrAdminAccess(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	owner := createUser(t, db, "alice", models.RoleUser)
	other := createUser(t, db, "bob", models.RoleUser)
	admin := createUser(t, db, "root", models.RoleAdmin)
	acct := mustCreateAccount(t, e, owner, "salary", models.AccountBank, "KRW")

	in := TransactionInput{
		AccountID: acct.ID,
		Type:      models.TxDeposit,
		Amount:    decimal.NewFromInt(100),
		Currency:  "KRW",
		Date:      "2024-03-01",
	}

	if _, err := e.Create(other, in); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("other user create: code = %d, want %d", apperr.CodeOf(err), apperr.CodeForbidden)
	}
	if _, err := e.Create(admin, in); err != nil {
		t.Errorf("admin create: %v", err)
	}
	if _, err := e.Create(owner, in); err != nil {
		t.Errorf("owner create: %v", err)
	}
}

func TestBuyRequiresCashLegForCurrency(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")

	// account was provisioned with a KRW cash leg only
	_, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Symbol:    "AAPL",
		Type:      models.TxBuy,
		Quantity:  decimal.NewFromInt(1),
		Amount:    decimal.NewFromInt(200),
		Currency:  "USD",
		Date:      "2024-03-01",
	})
	if apperr.CodeOf(err) != apperr.CodeInvalidParam {
		t.Fatalf("buy without USD cash leg: code = %d, want %d", apperr.CodeOf(err), apperr.CodeInvalidParam)
	}

	// a deposit provisions the missing leg, after which the buy works
	deposit(t, e, u, acct.ID, "1000", "USD")
	if _, err := e.Create(u, TransactionInput{
		AccountID: acct.ID,
		Symbol:    "AAPL",
		Type:      models.TxBuy,
		Quantity:  decimal.NewFromInt(1),
		Amount:    decimal.NewFromInt(200),
		Currency:  "USD",
		Date:      "2024-03-01",
	}); err != nil {
		t.Fatalf("buy after USD deposit: %v", err)
	}

	cash := getSummary(t, db, acct.ID, models.SummaryCash, "", "USD")
	wantAmount(t, cash.Amount, "800", "USD cash after deposit+buy")
}

func TestSoftDeleteAccountCascades(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	acct := mustCreateAccount(t, e, u, "broker", models.AccountStock, "KRW")
	deposit(t, e, u, acct.ID, "1000", "KRW")

	if err := e.SoftDeleteAccount(u, acct.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := e.GetAccount(u, acct.ID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("deleted account still loadable")
	}
	var liveSummaries, liveTxs int64
	db.Model(&models.Summary{}).Where("account_id = ? AND is_deleted = ?", acct.ID, false).Count(&liveSummaries)
	db.Model(&models.Transaction{}).Where("account_id = ? AND is_deleted = ?", acct.ID, false).Count(&liveTxs)
	if liveSummaries != 0 || liveTxs != 0 {
		t.Errorf("cascade left %d summaries, %d transactions live", liveSummaries, liveTxs)
	}

	// rows are preserved, not hard-deleted
	var total int64
	db.Model(&models.Summary{}).Where("account_id = ?", acct.ID).Count(&total)
	if total == 0 {
		t.Error("summary rows were hard-deleted")
	}
}

func TestDuplicateAccountNameIsForbidden(t *testing.T) {
	db := setupTestDB(t)
	e := NewEngine(db)
	u := createUser(t, db, "alice", models.RoleUser)
	mustCreateAccount(t, e, u, "salary", models.AccountBank, "KRW")

	_, err := e.CreateAccount(u, AccountInput{Name: "salary", Type: models.AccountBank, Currency: "KRW"})
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("duplicate name: code = %d, want %d", apperr.CodeOf(err), apperr.CodeForbidden)
	}
}
