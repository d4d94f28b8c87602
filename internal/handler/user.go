package handler

import (
	"net/http"
	"strings"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/middleware"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetMe returns the authenticated user (behind AuthMiddleware).
func GetMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		util.Error(c, http.StatusUnauthorized, apperr.CodeAuth, "not logged in")
		return
	}

	util.Success(c, util.Response{
		"user": gin.H{
			"id":                 user.ID,
			"username":           user.Username,
			"display_name":       user.DisplayName,
			"role":               user.Role,
			"preferred_currency": user.PreferredCurrency,
			"created_at":         user.CreatedAt,
		},
	})
}

type updateProfileReq struct {
	DisplayName       string `json:"display_name" binding:"max=64"`
	PreferredCurrency string `json:"preferred_currency" binding:"max=8"`
}

// UpdateProfile changes display name and reporting currency. Switching
// the reporting currency only changes how dashboards convert; stored
// summaries keep their own currencies.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			util.Error(c, http.StatusUnauthorized, apperr.CodeAuth, "not logged in")
			return
		}

		var req updateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
			return
		}

		if req.DisplayName != "" {
			user.DisplayName = req.DisplayName
		}
		if cur := strings.ToUpper(strings.TrimSpace(req.PreferredCurrency)); cur != "" {
			user.PreferredCurrency = cur
		}
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).
			Updates(map[string]any{
				"display_name":       user.DisplayName,
				"preferred_currency": user.PreferredCurrency,
			}).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "update profile failed")
			return
		}

		util.Success(c, util.Response{
			"user": gin.H{
				"id":                 user.ID,
				"display_name":       user.DisplayName,
				"preferred_currency": user.PreferredCurrency,
			},
		})
	}
}
