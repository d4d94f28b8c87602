package handler

import (
	"net/http"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/ledger"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AccountHandler serves account CRUD on top of the ledger engine.
type AccountHandler struct {
	DB     *gorm.DB
	Engine *ledger.Engine
}

func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{DB: db, Engine: ledger.NewEngine(db)}
}

type accountReq struct {
	Name     string `json:"name" binding:"required,max=64"`
	Type     string `json:"type" binding:"required"`
	Currency string `json:"currency" binding:"max=8"`
}

type accountResp struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Type     models.AccountType `json:"type"`
	Currency string             `json:"currency"`
}

func toAccountResp(a *models.Account) accountResp {
	return accountResp{ID: a.ID, Name: a.Name, Type: a.Type, Currency: a.Currency}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req accountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	account, err := h.Engine.CreateAccount(user, ledger.AccountInput{
		Name:     req.Name,
		Type:     models.AccountType(req.Type),
		Currency: req.Currency,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": toAccountResp(account)})
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var accounts []models.Account
	err := h.DB.Where("user_id = ? AND is_deleted = ?", user.ID, false).
		Order("type, name").
		Find(&accounts).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "list accounts failed")
		return
	}

	resp := make([]accountResp, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, toAccountResp(&accounts[i]))
	}
	util.Success(c, util.Response{"accounts": resp})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	account, err := h.Engine.GetAccount(user, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	summaries, err := h.Engine.ListSummaries(user, account.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"account":   toAccountResp(account),
		"summaries": summaries,
	})
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req accountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	account, err := h.Engine.UpdateAccount(user, c.Param("id"), ledger.AccountInput{
		Name:     req.Name,
		Currency: req.Currency,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"account": toAccountResp(account)})
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := h.Engine.SoftDeleteAccount(user, c.Param("id")); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"deleted": true})
}
