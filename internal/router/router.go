package router

import (
	"github.com/AIP-project/portfolia-backend-sub000/internal/config"
	"github.com/AIP-project/portfolia-backend-sub000/internal/handler"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and API routes.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")

	jwtSecret := cfg.JWT.Secret
	authHandler := handler.NewAuthHandler(db, jwtSecret, cfg.JWT.ExpireHours, cfg.App.DefaultCurrency)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtSecret, db))

	protected.GET("/me", handler.GetMe)
	protected.POST("/profile", handler.UpdateProfile(db))

	accountHandler := handler.NewAccountHandler(db)
	protected.POST("/accounts", accountHandler.CreateAccount)
	protected.GET("/accounts", accountHandler.ListAccounts)
	protected.GET("/accounts/:id", accountHandler.GetAccount)
	protected.PUT("/accounts/:id", accountHandler.UpdateAccount)
	protected.DELETE("/accounts/:id", accountHandler.DeleteAccount)

	txHandler := handler.NewTransactionHandler(db)
	protected.POST("/accounts/:id/transactions", txHandler.CreateTransaction)
	protected.GET("/accounts/:id/transactions", txHandler.ListTransactions)
	protected.PUT("/transactions/:id", txHandler.UpdateTransaction)
	protected.DELETE("/transactions/:id", txHandler.DeleteTransaction)

	dashboardHandler := handler.NewDashboardHandler(db)
	protected.GET("/dashboard/details", dashboardHandler.GetDetails)
	protected.GET("/dashboard/allocation", dashboardHandler.GetAllocation)
	protected.GET("/convert", dashboardHandler.Convert)

	exportHandler := handler.NewExportHandler(db)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	return r
}
