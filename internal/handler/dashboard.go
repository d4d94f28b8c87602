package handler

import (
	"net/http"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/dashboard"
	"github.com/AIP-project/portfolia-backend-sub000/internal/fx"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardHandler serves the aggregated views. A fresh aggregator is
// built per request so rate/price batching stays request-scoped.
type DashboardHandler struct {
	DB *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{DB: db}
}

func (h *DashboardHandler) GetDetails(c *gin.Context) {
	user := middleware.CurrentUser(c)

	result, err := dashboard.NewAggregator(h.DB).Compute(user)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"dashboard": result})
}

func (h *DashboardHandler) GetAllocation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	result, err := dashboard.NewAggregator(h.DB).ComputeAllocation(user)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"allocation": result})
}

// Convert exposes the conversion function directly:
// GET /api/convert?target=KRW&source=USD&amount=100
func (h *DashboardHandler) Convert(c *gin.Context) {
	target := c.Query("target")
	source := c.Query("source")
	amountStr := c.Query("amount")
	if target == "" || amountStr == "" {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "target and amount are required")
		return
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid amount")
		return
	}

	converted, err := fx.NewProvider(h.DB).Convert(target, source, amount)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"target": target,
		"source": source,
		"amount": amount,
		"result": converted,
	})
}
