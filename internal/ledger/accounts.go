package ledger

import (
	"strings"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountInput is the caller-supplied shape of an account create/update.
type AccountInput struct {
	Name     string
	Type     models.AccountType
	Currency string
}

func (in *AccountInput) normalize(fallbackCurrency string) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("account name is required")
	}
	if len(in.Name) > 64 {
		return apperr.Validation("account name too long")
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = fallbackCurrency
	}
	return nil
}

// CreateAccount creates an account and, for types that carry a cash
// balance (BANK, STOCK, COIN), provisions its CASH summary row in the
// account currency so the first asset transaction has a leg to move.
func (e *Engine) CreateAccount(user *models.User, in AccountInput) (*models.Account, error) {
	if !in.Type.Valid() {
		return nil, apperr.Validation("unknown account type %q", in.Type)
	}
	if err := in.normalize(user.PreferredCurrency); err != nil {
		return nil, err
	}
	if err := e.checkDuplicateName(user.ID, in.Name, in.Type, ""); err != nil {
		return nil, err
	}

	class, _ := ClassOf(in.Type)
	account := &models.Account{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		Name:     in.Name,
		Type:     in.Type,
		Currency: in.Currency,
	}
	err := e.db.Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Create(account).Error; err != nil {
			return apperr.Internal(err, "create account")
		}
		if !class.HasCashLeg && in.Type != models.AccountBank {
			return nil
		}
		cash := &models.Summary{
			AccountID: account.ID,
			Kind:      models.SummaryCash,
			Currency:  account.Currency,
		}
		if err := dbtx.Create(cash).Error; err != nil {
			return apperr.Internal(err, "provision cash summary")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount renames an account or changes its display currency.
// Existing summaries keep the currency they were recorded in; only new
// cash legs pick up the changed account currency.
func (e *Engine) UpdateAccount(user *models.User, accountID string, in AccountInput) (*models.Account, error) {
	account, _, err := e.loadAccount(e.db, accountID)
	if err != nil {
		return nil, err
	}
	if !canAccess(user, account) {
		return nil, apperr.Forbidden("account belongs to another user")
	}
	if err := in.normalize(account.Currency); err != nil {
		return nil, err
	}
	if in.Name != account.Name {
		if err := e.checkDuplicateName(account.UserID, in.Name, account.Type, account.ID); err != nil {
			return nil, err
		}
	}

	account.Name = in.Name
	account.Currency = in.Currency
	err = e.db.Model(&models.Account{}).Where("id = ?", account.ID).
		Updates(map[string]any{"name": account.Name, "currency": account.Currency}).Error
	if err != nil {
		return nil, apperr.Internal(err, "update account")
	}
	return account, nil
}

// SoftDeleteAccount marks the account and everything under it deleted
// in one transaction, preserving every row for historical integrity.
func (e *Engine) SoftDeleteAccount(user *models.User, accountID string) error {
	account, _, err := e.loadAccount(e.db, accountID)
	if err != nil {
		return err
	}
	if !canAccess(user, account) {
		return apperr.Forbidden("account belongs to another user")
	}

	return e.db.Transaction(func(dbtx *gorm.DB) error {
		err := dbtx.Model(&models.Account{}).Where("id = ?", account.ID).
			Update("is_deleted", true).Error
		if err != nil {
			return apperr.Internal(err, "delete account")
		}
		err = dbtx.Model(&models.Summary{}).Where("account_id = ?", account.ID).
			Update("is_deleted", true).Error
		if err != nil {
			return apperr.Internal(err, "delete summaries")
		}
		err = dbtx.Model(&models.Transaction{}).Where("account_id = ?", account.ID).
			Update("is_deleted", true).Error
		if err != nil {
			return apperr.Internal(err, "delete transactions")
		}
		return nil
	})
}

// GetAccount returns a live account after an owner-or-admin check.
func (e *Engine) GetAccount(user *models.User, accountID string) (*models.Account, error) {
	account, _, err := e.loadAccount(e.db, accountID)
	if err != nil {
		return nil, err
	}
	if !canAccess(user, account) {
		return nil, apperr.Forbidden("account belongs to another user")
	}
	return account, nil
}

// ListTransactions returns the live transactions of an account, newest
// first.
func (e *Engine) ListTransactions(user *models.User, accountID string) ([]models.Transaction, error) {
	if _, err := e.GetAccount(user, accountID); err != nil {
		return nil, err
	}
	var txs []models.Transaction
	err := e.db.Where("account_id = ? AND is_deleted = ?", accountID, false).
		Order("transaction_date DESC, created_at DESC").
		Find(&txs).Error
	if err != nil {
		return nil, apperr.Internal(err, "list transactions")
	}
	return txs, nil
}

// ListSummaries returns the live summary rows of an account.
func (e *Engine) ListSummaries(user *models.User, accountID string) ([]models.Summary, error) {
	if _, err := e.GetAccount(user, accountID); err != nil {
		return nil, err
	}
	var sums []models.Summary
	err := e.db.Where("account_id = ? AND is_deleted = ?", accountID, false).
		Order("kind, symbol").
		Find(&sums).Error
	if err != nil {
		return nil, apperr.Internal(err, "list summaries")
	}
	return sums, nil
}

func (e *Engine) checkDuplicateName(userID uint, name string, accountType models.AccountType, excludeID string) error {
	q := e.db.Model(&models.Account{}).
		Where("user_id = ? AND name = ? AND type = ? AND is_deleted = ?", userID, name, accountType, false)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return apperr.Internal(err, "check account name")
	}
	if n > 0 {
		// duplicate names conflict with another account the user owns
		return apperr.Forbidden("account %q already exists", name)
	}
	return nil
}
