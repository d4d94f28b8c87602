package models

import "time"

// AccountType discriminates the five asset classes an account can hold.
type AccountType string

const (
	AccountBank        AccountType = "BANK"
	AccountStock       AccountType = "STOCK"
	AccountCoin        AccountType = "COIN"
	AccountEtc         AccountType = "ETC"
	AccountLiabilities AccountType = "LIABILITIES"
)

// AccountTypes lists every supported account type.
var AccountTypes = []AccountType{
	AccountBank, AccountStock, AccountCoin, AccountEtc, AccountLiabilities,
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountStock, AccountCoin, AccountEtc, AccountLiabilities:
		return true
	}
	return false
}

// Account is a user-owned container of transactions and summaries.
// Accounts are never hard-deleted: IsDeleted keeps the row (and its
// history) queryable after removal.
type Account struct {
	ID       string      `gorm:"primaryKey;size:36"`
	UserID   uint        `gorm:"index;not null"`
	Name     string      `gorm:"size:64;not null"`
	Type     AccountType `gorm:"size:16;index;not null"`
	Currency string      `gorm:"size:8;not null;default:KRW"`

	IsDeleted bool `gorm:"index;not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
