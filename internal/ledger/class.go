package ledger

import (
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"

	"github.com/shopspring/decimal"
)

// AssetClass describes how one account type maps onto the generic
// reconciliation engine. The five account types share a single engine
// parameterized by this descriptor instead of five parallel modules.
type AssetClass struct {
	// HasQuantity marks classes whose holdings track a unit count in
	// addition to a monetary amount.
	HasQuantity bool
	// HasCashLeg marks classes where a BUY/SELL must also debit/credit
	// a CASH summary row in the same atomic unit.
	HasCashLeg bool
	// Allowed is the set of transaction types the class accepts.
	Allowed map[models.TransactionType]bool
}

var classes = map[models.AccountType]AssetClass{
	models.AccountBank: {
		Allowed: types(models.TxDeposit, models.TxWithdrawal),
	},
	models.AccountStock: {
		HasQuantity: true,
		HasCashLeg:  true,
		Allowed:     types(models.TxBuy, models.TxSell, models.TxDeposit, models.TxWithdrawal),
	},
	models.AccountCoin: {
		HasQuantity: true,
		HasCashLeg:  true,
		Allowed:     types(models.TxBuy, models.TxSell, models.TxDeposit, models.TxWithdrawal),
	},
	models.AccountEtc: {
		HasQuantity: true,
		Allowed:     types(models.TxBuy, models.TxSell),
	},
	models.AccountLiabilities: {
		HasQuantity: true,
		Allowed:     types(models.TxBuy, models.TxSell),
	},
}

func types(ts ...models.TransactionType) map[models.TransactionType]bool {
	m := make(map[models.TransactionType]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

// ClassOf returns the descriptor for an account type.
func ClassOf(t models.AccountType) (AssetClass, bool) {
	c, ok := classes[t]
	return c, ok
}

var (
	plusOne  = decimal.NewFromInt(1)
	minusOne = decimal.NewFromInt(-1)
)

// Sign returns the direction a transaction type contributes to its
// summary: DEPOSIT and BUY add, WITHDRAWAL and SELL remove.
func Sign(t models.TransactionType) decimal.Decimal {
	switch t {
	case models.TxDeposit, models.TxBuy:
		return plusOne
	case models.TxWithdrawal, models.TxSell:
		return minusOne
	}
	return decimal.Zero
}
