package handler

import (
	"net/http"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/ledger"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionHandler turns transaction requests into ledger engine
// operations. Every mutation goes through the engine so the summary
// deltas always travel with the row.
type TransactionHandler struct {
	DB     *gorm.DB
	Engine *ledger.Engine
}

func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{DB: db, Engine: ledger.NewEngine(db)}
}

// amounts arrive as JSON strings to avoid float decoding on the way in
type transactionReq struct {
	Symbol          string `json:"symbol" binding:"max=32"`
	Type            string `json:"type" binding:"required"`
	Quantity        string `json:"quantity"`
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"max=8"`
	Date            string `json:"date" binding:"required"`
	Note            string `json:"note" binding:"max=255"`
	CurrentPrice    string `json:"current_price"`
	RemainingAmount string `json:"remaining_amount"`
}

type transactionResp struct {
	ID       string                 `json:"id"`
	Account  string                 `json:"account_id"`
	Symbol   string                 `json:"symbol,omitempty"`
	Type     models.TransactionType `json:"type"`
	Quantity decimal.Decimal        `json:"quantity"`
	Amount   decimal.Decimal        `json:"amount"`
	Currency string                 `json:"currency"`
	Date     time.Time              `json:"date"`
	Note     string                 `json:"note,omitempty"`
}

func toTransactionResp(t *models.Transaction) transactionResp {
	return transactionResp{
		ID:       t.ID,
		Account:  t.AccountID,
		Symbol:   t.Symbol,
		Type:     t.Type,
		Quantity: t.Quantity,
		Amount:   t.Amount,
		Currency: t.Currency,
		Date:     t.TransactionDate,
		Note:     t.Note,
	}
}

func (r *transactionReq) toInput(accountID string) (ledger.TransactionInput, error) {
	in := ledger.TransactionInput{
		AccountID: accountID,
		Symbol:    r.Symbol,
		Type:      models.TransactionType(r.Type),
		Currency:  r.Currency,
		Date:      r.Date,
		Note:      r.Note,
	}

	var err error
	if in.Amount, err = decimal.NewFromString(r.Amount); err != nil {
		return in, apperr.Validation("invalid amount %q", r.Amount)
	}
	if r.Quantity != "" {
		if in.Quantity, err = decimal.NewFromString(r.Quantity); err != nil {
			return in, apperr.Validation("invalid quantity %q", r.Quantity)
		}
	}
	if r.CurrentPrice != "" {
		v, err := decimal.NewFromString(r.CurrentPrice)
		if err != nil {
			return in, apperr.Validation("invalid current_price %q", r.CurrentPrice)
		}
		in.CurrentPrice = &v
	}
	if r.RemainingAmount != "" {
		v, err := decimal.NewFromString(r.RemainingAmount)
		if err != nil {
			return in, apperr.Validation("invalid remaining_amount %q", r.RemainingAmount)
		}
		in.RemainingAmount = &v
	}
	return in, nil
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	in, err := req.toInput(c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	t, err := h.Engine.Create(user, in)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": toTransactionResp(t)})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	user := middleware.CurrentUser(c)

	txs, err := h.Engine.ListTransactions(user, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	resp := make([]transactionResp, 0, len(txs))
	for i := range txs {
		resp = append(resp, toTransactionResp(&txs[i]))
	}
	util.Success(c, util.Response{"transactions": resp})
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req transactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	in, err := req.toInput("")
	if err != nil {
		util.Fail(c, err)
		return
	}
	t, err := h.Engine.Update(user, c.Param("id"), in)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"transaction": toTransactionResp(t)})
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	user := middleware.CurrentUser(c)

	t, err := h.Engine.SoftDelete(user, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true, "transaction_id": t.ID})
}
