package dashboard

import (
	"log"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/fx"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/pricing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// displayScale is the rounding applied when holdings fold into rows and
// totals. Intermediate arithmetic keeps full precision; rounding only
// happens at aggregation boundaries to limit cumulative drift.
const displayScale = 6

// Bucket groups holdings for the top-level dashboard totals.
type Bucket string

const (
	BucketAsset     Bucket = "asset"
	BucketLiability Bucket = "liability"
	BucketCash      Bucket = "cash"
)

// HoldingDetail is one valued row of the dashboard: a priced holding, a
// cash leg, or an ETC/LIABILITIES record.
type HoldingDetail struct {
	AccountID   string             `json:"accountId"`
	AccountName string             `json:"accountName"`
	AccountType models.AccountType `json:"accountType"`
	Symbol      string             `json:"symbol,omitempty"`
	Bucket      Bucket             `json:"bucket"`

	Quantity  decimal.Decimal `json:"quantity"`
	Currency  string          `json:"currency"`
	CostBasis decimal.Decimal `json:"costBasis"`

	CurrentValue          decimal.Decimal `json:"currentValue"`          // holding currency
	CurrentValueInDefault decimal.Decimal `json:"currentValueInDefault"` // reporting currency

	UnrealizedPnL    decimal.Decimal `json:"unrealizedPnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealizedPnlPercentage"`
}

// Details is the full dashboard payload: flat detail rows plus bucketed
// totals, everything in the user's preferred currency.
type Details struct {
	Currency    string          `json:"currency"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Cash        decimal.Decimal `json:"cash"`
	NetWorth    decimal.Decimal `json:"netWorth"`

	Details []HoldingDetail `json:"details"`
}

// Allocation is the per-asset-type breakdown in the reporting currency.
type Allocation struct {
	Currency    string          `json:"currency"`
	Bank        decimal.Decimal `json:"bank"`
	Stock       decimal.Decimal `json:"stock"`
	Coin        decimal.Decimal `json:"coin"`
	Etc         decimal.Decimal `json:"etc"`
	Liabilities decimal.Decimal `json:"liabilities"`
}

// Aggregator walks a user's summaries and transactions, prices the
// holdings and produces the dashboard. Build one per request: the
// embedded rate provider memoizes the snapshot for that request only.
type Aggregator struct {
	db     *gorm.DB
	rates  *fx.Provider
	oracle *pricing.Oracle
	logf   func(format string, args ...any)
}

// NewAggregator returns a request-scoped aggregator over db.
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{
		db:     db,
		rates:  fx.NewProvider(db),
		oracle: pricing.NewOracle(db),
		logf:   log.Printf,
	}
}

// Compute builds the dashboard for user.
//
// Failure semantics: no rate snapshot at all yields an empty result
// (an empty portfolio view beats a hard failure); a holding whose
// symbol has no price, or whose currency is missing from the snapshot,
// is skipped with a warning; only data-access errors propagate.
func (a *Aggregator) Compute(user *models.User) (*Details, error) {
	out := &Details{Currency: user.PreferredCurrency, Details: []HoldingDetail{}}

	snap, err := a.rates.Latest()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		a.logf("warn: no exchange rate snapshot; dashboard empty")
		return out, nil
	}

	accounts, err := a.liveAccounts(user.ID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return out, nil
	}

	byID := make(map[string]*models.Account, len(accounts))
	var summaryAccountIDs, directAccountIDs []string
	for i := range accounts {
		acc := &accounts[i]
		byID[acc.ID] = acc
		switch acc.Type {
		case models.AccountEtc, models.AccountLiabilities:
			directAccountIDs = append(directAccountIDs, acc.ID)
		default:
			summaryAccountIDs = append(summaryAccountIDs, acc.ID)
		}
	}

	summaries, err := a.liveSummaries(summaryAccountIDs)
	if err != nil {
		return nil, err
	}

	// batch-collect distinct symbols so pricing is one query
	symbolSet := make(map[string]struct{})
	for _, s := range summaries {
		if s.Kind == models.SummaryHolding && s.Symbol != "" {
			symbolSet[s.Symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}
	prices, err := a.oracle.LatestPrices(symbols)
	if err != nil {
		return nil, err
	}

	for _, s := range summaries {
		account := byID[s.AccountID]
		if account == nil {
			continue
		}
		switch s.Kind {
		case models.SummaryCash:
			row, ok := a.cashRow(snap, user, account, s)
			if ok {
				out.add(row)
			}
		case models.SummaryHolding:
			row, ok := a.holdingRow(snap, user, account, s, prices)
			if ok {
				out.add(row)
			}
		}
	}

	direct, err := a.liveTransactions(directAccountIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range direct {
		account := byID[t.AccountID]
		if account == nil || t.Type != models.TxBuy {
			continue
		}
		out.add(a.directRow(snap, user, account, t))
	}

	out.Assets = out.Assets.Round(displayScale)
	out.Liabilities = out.Liabilities.Round(displayScale)
	out.Cash = out.Cash.Round(displayScale)
	out.NetWorth = out.Assets.Add(out.Cash).Sub(out.Liabilities).Round(displayScale)
	return out, nil
}

// ComputeAllocation folds the dashboard rows into per-asset-type totals.
func (a *Aggregator) ComputeAllocation(user *models.User) (*Allocation, error) {
	details, err := a.Compute(user)
	if err != nil {
		return nil, err
	}
	alloc := &Allocation{Currency: details.Currency}
	for _, row := range details.Details {
		v := row.CurrentValueInDefault
		switch row.AccountType {
		case models.AccountBank:
			alloc.Bank = alloc.Bank.Add(v)
		case models.AccountStock:
			alloc.Stock = alloc.Stock.Add(v)
		case models.AccountCoin:
			alloc.Coin = alloc.Coin.Add(v)
		case models.AccountEtc:
			alloc.Etc = alloc.Etc.Add(v)
		case models.AccountLiabilities:
			alloc.Liabilities = alloc.Liabilities.Add(v)
		}
	}
	alloc.Bank = alloc.Bank.Round(displayScale)
	alloc.Stock = alloc.Stock.Round(displayScale)
	alloc.Coin = alloc.Coin.Round(displayScale)
	alloc.Etc = alloc.Etc.Round(displayScale)
	alloc.Liabilities = alloc.Liabilities.Round(displayScale)
	return alloc, nil
}

func (d *Details) add(row HoldingDetail) {
	d.Details = append(d.Details, row)
	switch row.Bucket {
	case BucketAsset:
		d.Assets = d.Assets.Add(row.CurrentValueInDefault)
	case BucketLiability:
		d.Liabilities = d.Liabilities.Add(row.CurrentValueInDefault)
	case BucketCash:
		d.Cash = d.Cash.Add(row.CurrentValueInDefault)
	}
}

// cashRow values a CASH summary: face value, zero P&L. The bool is
// false when the row must be skipped because a rate needed to reach the
// reporting currency is missing; a balance silently rendered as zero
// would be worse than a gap. A leg already in the reporting currency
// needs no rate and is always kept.
func (a *Aggregator) cashRow(snap *fx.Snapshot, user *models.User, account *models.Account, s models.Summary) (HoldingDetail, bool) {
	if s.Currency != user.PreferredCurrency {
		if _, ok := snap.Rate(s.Currency); !ok {
			a.logf("warn: no rate for currency %s (cash on account %s); skipping", s.Currency, account.ID)
			return HoldingDetail{}, false
		}
		if _, ok := snap.Rate(user.PreferredCurrency); !ok {
			a.logf("warn: no rate for reporting currency %s; skipping cash on account %s", user.PreferredCurrency, account.ID)
			return HoldingDetail{}, false
		}
	}

	value := s.Amount
	return HoldingDetail{
		AccountID:             account.ID,
		AccountName:           account.Name,
		AccountType:           account.Type,
		Bucket:                BucketCash,
		Currency:              s.Currency,
		CostBasis:             value.Round(displayScale),
		CurrentValue:          value.Round(displayScale),
		CurrentValueInDefault: fx.Convert(snap, user.PreferredCurrency, s.Currency, value).Round(displayScale),
	}, true
}

// holdingRow values a priced SUMMARY row via the oracle. The bool is
// false when the row must be skipped (no price point, or a currency
// missing from the snapshot).
func (a *Aggregator) holdingRow(snap *fx.Snapshot, user *models.User, account *models.Account, s models.Summary, prices map[string]models.PriceHistoryPoint) (HoldingDetail, bool) {
	if s.Quantity.IsZero() && s.Amount.IsZero() {
		return HoldingDetail{}, false
	}
	point, ok := prices[s.Symbol]
	if !ok {
		a.logf("warn: no price for symbol %s; skipping holding on account %s", s.Symbol, account.ID)
		return HoldingDetail{}, false
	}
	if _, ok := snap.Rate(point.Currency); !ok {
		a.logf("warn: no rate for currency %s (price of %s); skipping", point.Currency, s.Symbol)
		return HoldingDetail{}, false
	}
	if _, ok := snap.Rate(s.Currency); !ok {
		a.logf("warn: no rate for currency %s (holding %s); skipping", s.Currency, s.Symbol)
		return HoldingDetail{}, false
	}

	// price quoted in its own currency, crossed into the holding's
	price := fx.Convert(snap, s.Currency, point.Currency, point.Price)
	value := s.Quantity.Mul(price)
	pnl := value.Sub(s.Amount)

	return HoldingDetail{
		AccountID:             account.ID,
		AccountName:           account.Name,
		AccountType:           account.Type,
		Symbol:                s.Symbol,
		Bucket:                BucketAsset,
		Quantity:              s.Quantity,
		Currency:              s.Currency,
		CostBasis:             s.Amount.Round(displayScale),
		CurrentValue:          value.Round(displayScale),
		CurrentValueInDefault: fx.Convert(snap, user.PreferredCurrency, s.Currency, value).Round(displayScale),
		UnrealizedPnL:         pnl.Round(displayScale),
		UnrealizedPnLPct:      pnlPercent(pnl, s.Amount),
	}, true
}

// directRow values an ETC or LIABILITIES transaction. With no market
// feed these fall back along currentPrice ?? purchase price and
// remainingAmount ?? amount, so "not yet revalued" reads as cost basis
// rather than as zero.
func (a *Aggregator) directRow(snap *fx.Snapshot, user *models.User, account *models.Account, t models.Transaction) HoldingDetail {
	cost := t.Amount
	if t.RemainingAmount != nil {
		cost = *t.RemainingAmount
	}
	value := cost
	if t.CurrentPrice != nil {
		if t.Quantity.IsPositive() {
			value = t.CurrentPrice.Mul(t.Quantity)
		} else {
			value = *t.CurrentPrice
		}
	}

	bucket := BucketAsset
	if account.Type == models.AccountLiabilities {
		bucket = BucketLiability
	}
	pnl := value.Sub(cost)

	return HoldingDetail{
		AccountID:             account.ID,
		AccountName:           account.Name,
		AccountType:           account.Type,
		Symbol:                t.Symbol,
		Bucket:                bucket,
		Quantity:              t.Quantity,
		Currency:              t.Currency,
		CostBasis:             cost.Round(displayScale),
		CurrentValue:          value.Round(displayScale),
		CurrentValueInDefault: fx.Convert(snap, user.PreferredCurrency, t.Currency, value).Round(displayScale),
		UnrealizedPnL:         pnl.Round(displayScale),
		UnrealizedPnLPct:      pnlPercent(pnl, cost),
	}
}

// pnlPercent is pnl/costBasis*100, defined as zero for a non-positive
// cost basis so the dashboard never emits NaN or infinity.
func pnlPercent(pnl, costBasis decimal.Decimal) decimal.Decimal {
	if costBasis.Sign() <= 0 {
		return decimal.Zero
	}
	return pnl.Div(costBasis).Mul(decimal.NewFromInt(100)).Round(displayScale)
}

func (a *Aggregator) liveAccounts(userID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := a.db.Where("user_id = ? AND is_deleted = ?", userID, false).Find(&accounts).Error
	if err != nil {
		return nil, apperr.Internal(err, "load accounts")
	}
	return accounts, nil
}

func (a *Aggregator) liveSummaries(accountIDs []string) ([]models.Summary, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var sums []models.Summary
	err := a.db.Where("account_id IN ? AND is_deleted = ?", accountIDs, false).
		Order("account_id, kind, symbol").
		Find(&sums).Error
	if err != nil {
		return nil, apperr.Internal(err, "load summaries")
	}
	return sums, nil
}

func (a *Aggregator) liveTransactions(accountIDs []string) ([]models.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var txs []models.Transaction
	err := a.db.Where("account_id IN ? AND is_deleted = ?", accountIDs, false).
		Order("transaction_date").
		Find(&txs).Error
	if err != nil {
		return nil, apperr.Internal(err, "load transactions")
	}
	return txs, nil
}
