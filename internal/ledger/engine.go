package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxAmount is a sanity ceiling on a single transaction's amount;
// anything above it is almost certainly a fat-fingered input.
var maxAmount = decimal.New(1, 13) // 10^13

// Engine is the summary reconciliation engine: it turns transaction
// create/update/soft-delete requests into compensating deltas on the
// affected Summary rows and applies both sides in one database
// transaction. Summaries are never recomputed from scratch; they are
// only ever incremented, so the running totals stay equal to the
// signed sum of the non-deleted transactions behind them.
type Engine struct {
	db *gorm.DB
}

// NewEngine returns an engine writing through db.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// TransactionInput is the caller-supplied shape of a create or update.
// Quantity and amount are unsigned; direction is carried by Type.
type TransactionInput struct {
	AccountID string
	Symbol    string
	Type      models.TransactionType
	Quantity  decimal.Decimal
	Amount    decimal.Decimal
	Currency  string
	Date      string
	Note      string

	// ETC / LIABILITIES revaluation fields. Nil keeps the stored value.
	CurrentPrice    *decimal.Decimal
	RemainingAmount *decimal.Decimal
}

// dateLayouts are the accepted transaction-date formats.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("transaction date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("invalid transaction date %q", s)
}

// validate checks every precondition before any mutation and normalizes
// the input in place. A returned error means nothing has been written.
func validate(account *models.Account, class AssetClass, in *TransactionInput) (time.Time, error) {
	if in.Quantity.IsNegative() {
		return time.Time{}, apperr.Validation("quantity must not be negative")
	}
	if in.Amount.IsNegative() {
		return time.Time{}, apperr.Validation("amount must not be negative")
	}
	if in.Amount.GreaterThan(maxAmount) {
		return time.Time{}, apperr.Validation("amount too large")
	}
	if !class.Allowed[in.Type] {
		return time.Time{}, apperr.Validation("transaction type %s not allowed on %s account", in.Type, account.Type)
	}

	date, err := parseDate(in.Date)
	if err != nil {
		return time.Time{}, err
	}

	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	switch in.Type {
	case models.TxBuy, models.TxSell:
		if class.HasQuantity && in.Symbol == "" {
			return time.Time{}, apperr.Validation("symbol is required for %s", in.Type)
		}
	default:
		// cash movements carry no symbol
		in.Symbol = ""
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = account.Currency
	}
	return date, nil
}

func canAccess(user *models.User, account *models.Account) bool {
	return account.UserID == user.ID || user.IsAdmin()
}

// loadAccount fetches a live account and its class descriptor.
func (e *Engine) loadAccount(db *gorm.DB, id string) (*models.Account, AssetClass, error) {
	var account models.Account
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, AssetClass{}, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, AssetClass{}, apperr.Internal(err, "load account")
	}
	class, ok := ClassOf(account.Type)
	if !ok {
		return nil, AssetClass{}, apperr.Validation("unknown account type %s", account.Type)
	}
	return &account, class, nil
}

// loadTransaction fetches a live transaction together with its account.
// Soft-deleted transactions are invisible here, which is what makes a
// second delete of the same row a clean not-found instead of a
// double-applied delta.
func (e *Engine) loadTransaction(db *gorm.DB, id string) (*models.Transaction, *models.Account, AssetClass, error) {
	var t models.Transaction
	err := db.Where("id = ? AND is_deleted = ?", id, false).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, AssetClass{}, apperr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, nil, AssetClass{}, apperr.Internal(err, "load transaction")
	}
	account, class, err := e.loadAccount(db, t.AccountID)
	if err != nil {
		return nil, nil, AssetClass{}, err
	}
	return &t, account, class, nil
}

// Create validates the input, then persists the transaction row and its
// summary contribution as one atomic unit. The precondition reads run
// inside the same database transaction as the writes, so the account
// cannot be soft-deleted between the check and the commit.
func (e *Engine) Create(user *models.User, in TransactionInput) (*models.Transaction, error) {
	var created *models.Transaction
	err := e.db.Transaction(func(dbtx *gorm.DB) error {
		account, class, err := e.loadAccount(dbtx, in.AccountID)
		if err != nil {
			return err
		}
		if !canAccess(user, account) {
			return apperr.Forbidden("account belongs to another user")
		}
		date, err := validate(account, class, &in)
		if err != nil {
			return err
		}
		if err := e.requireCashLeg(dbtx, class, account, &in); err != nil {
			return err
		}

		t := &models.Transaction{
			ID:              uuid.NewString(),
			AccountID:       account.ID,
			Symbol:          in.Symbol,
			Type:            in.Type,
			Quantity:        in.Quantity,
			Amount:          in.Amount,
			Currency:        in.Currency,
			TransactionDate: date,
			Note:            in.Note,
			CurrentPrice:    in.CurrentPrice,
			RemainingAmount: in.RemainingAmount,
		}
		if err := dbtx.Create(t).Error; err != nil {
			return apperr.Internal(err, "create transaction")
		}
		if err := e.apply(dbtx, account, class, t, +1); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update reloads the previously persisted transaction inside the same
// database transaction as the write, removes its old signed
// contribution and adds the new one. Computing the delta from a fresh
// in-transaction read is what prevents two concurrent updates from
// reconciling against the same stale "old" values.
func (e *Engine) Update(user *models.User, txID string, in TransactionInput) (*models.Transaction, error) {
	var updated *models.Transaction
	err := e.db.Transaction(func(dbtx *gorm.DB) error {
		old, account, class, err := e.loadTransaction(dbtx, txID)
		if err != nil {
			return err
		}
		if !canAccess(user, account) {
			return apperr.Forbidden("account belongs to another user")
		}
		in.AccountID = account.ID
		date, err := validate(account, class, &in)
		if err != nil {
			return err
		}

		next := *old
		next.Symbol = in.Symbol
		next.Type = in.Type
		next.Quantity = in.Quantity
		next.Amount = in.Amount
		next.Currency = in.Currency
		next.TransactionDate = date
		next.Note = in.Note
		if in.CurrentPrice != nil {
			next.CurrentPrice = in.CurrentPrice
		}
		if in.RemainingAmount != nil {
			next.RemainingAmount = in.RemainingAmount
		}

		if err := e.apply(dbtx, account, class, old, -1); err != nil {
			return err
		}
		cols := map[string]any{
			"symbol":           next.Symbol,
			"type":             next.Type,
			"quantity":         next.Quantity,
			"amount":           next.Amount,
			"currency":         next.Currency,
			"transaction_date": next.TransactionDate,
			"note":             next.Note,
			"current_price":    next.CurrentPrice,
			"remaining_amount": next.RemainingAmount,
		}
		if err := dbtx.Model(&models.Transaction{}).Where("id = ?", old.ID).Updates(cols).Error; err != nil {
			return apperr.Internal(err, "update transaction")
		}
		if err := e.apply(dbtx, account, class, &next, +1); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete removes the transaction's signed contribution and marks the
// row deleted. Soft-deleted rows are terminal: they never reconcile
// again and deleting one twice fails as not-found.
func (e *Engine) SoftDelete(user *models.User, txID string) (*models.Transaction, error) {
	var deleted *models.Transaction
	err := e.db.Transaction(func(dbtx *gorm.DB) error {
		old, account, class, err := e.loadTransaction(dbtx, txID)
		if err != nil {
			return err
		}
		if !canAccess(user, account) {
			return apperr.Forbidden("account belongs to another user")
		}
		if err := e.apply(dbtx, account, class, old, -1); err != nil {
			return err
		}
		err = dbtx.Model(&models.Transaction{}).Where("id = ?", old.ID).
			Update("is_deleted", true).Error
		if err != nil {
			return apperr.Internal(err, "soft delete transaction")
		}
		old.IsDeleted = true
		deleted = old
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// requireCashLeg enforces that a priced account cannot record an asset
// transaction before its cash leg for that currency is provisioned.
func (e *Engine) requireCashLeg(dbtx *gorm.DB, class AssetClass, account *models.Account, in *TransactionInput) error {
	if !class.HasCashLeg || (in.Type != models.TxBuy && in.Type != models.TxSell) {
		return nil
	}
	var n int64
	err := dbtx.Model(&models.Summary{}).
		Where("account_id = ? AND kind = ? AND currency = ? AND is_deleted = ?",
			account.ID, models.SummaryCash, in.Currency, false).
		Count(&n).Error
	if err != nil {
		return apperr.Internal(err, "check cash summary")
	}
	if n == 0 {
		return apperr.Validation("no %s cash summary on account; deposit cash first", in.Currency)
	}
	return nil
}

// apply adds (dir=+1) or removes (dir=-1) t's signed contribution from
// the summaries it touches. For BUY/SELL on a cash-leg class the symbol
// summary and the cash summary move together; both increments ride the
// caller's database transaction so a partial application cannot commit.
func (e *Engine) apply(dbtx *gorm.DB, account *models.Account, class AssetClass, t *models.Transaction, dir int64) error {
	sign := Sign(t.Type).Mul(decimal.NewFromInt(dir))
	qty := sign.Mul(t.Quantity)
	amt := sign.Mul(t.Amount)
	if !class.HasQuantity {
		qty = decimal.Zero
	}

	switch t.Type {
	case models.TxDeposit, models.TxWithdrawal:
		return e.increment(dbtx, account.ID, models.SummaryCash, "", t.Currency, decimal.Zero, amt, true)

	case models.TxBuy, models.TxSell:
		err := e.increment(dbtx, account.ID, models.SummaryHolding, t.Symbol, t.Currency, qty, amt, true)
		if err != nil {
			return err
		}
		if class.HasCashLeg {
			// buying spends cash, selling frees it
			return e.increment(dbtx, account.ID, models.SummaryCash, "", t.Currency, decimal.Zero, amt.Neg(), false)
		}
		return nil
	}
	return apperr.Validation("unknown transaction type %s", t.Type)
}

// increment applies an increment-by-delta update to one summary row,
// creating it seeded with the delta when the key does not exist yet
// (and createMissing allows it). The old value is re-read inside the
// caller's database transaction and the addition happens in decimal:
// an in-SQL "quantity + ?" would route fractional amounts through
// SQLite's float arithmetic and drift the running totals. The
// transaction's write serialization keeps two concurrent read-add-write
// sequences from losing each other's update.
func (e *Engine) increment(dbtx *gorm.DB, accountID string, kind models.SummaryKind, symbol, currency string, qtyDelta, amtDelta decimal.Decimal, createMissing bool) error {
	if qtyDelta.IsZero() && amtDelta.IsZero() {
		return nil
	}
	var row models.Summary
	err := dbtx.Where("account_id = ? AND kind = ? AND symbol = ? AND currency = ? AND is_deleted = ?",
		accountID, kind, symbol, currency, false).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !createMissing {
			return apperr.Validation("no %s summary for account", kind)
		}
		row = models.Summary{
			AccountID: accountID,
			Kind:      kind,
			Symbol:    symbol,
			Currency:  currency,
			Quantity:  qtyDelta,
			Amount:    amtDelta,
		}
		if err := dbtx.Create(&row).Error; err != nil {
			return apperr.Internal(err, "create summary")
		}
		return nil
	}
	if err != nil {
		return apperr.Internal(err, "load summary")
	}
	res := dbtx.Model(&models.Summary{}).Where("id = ?", row.ID).
		Updates(map[string]any{
			"quantity": row.Quantity.Add(qtyDelta),
			"amount":   row.Amount.Add(amtDelta),
		})
	if res.Error != nil {
		return apperr.Internal(res.Error, "increment summary")
	}
	return nil
}
