package handler

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"
	"github.com/AIP-project/portfolia-backend-sub000/internal/models"
	"github.com/AIP-project/portfolia-backend-sub000/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler serves register/login.
type AuthHandler struct {
	DB              *gorm.DB
	JWTSecret       string
	TokenTTL        time.Duration
	DefaultCurrency string
}

func NewAuthHandler(db *gorm.DB, jwtSecret string, ttlHours int, defaultCurrency string) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	if defaultCurrency == "" {
		defaultCurrency = "KRW"
	}
	return &AuthHandler{
		DB:              db,
		JWTSecret:       jwtSecret,
		TokenTTL:        time.Duration(ttlHours) * time.Hour,
		DefaultCurrency: defaultCurrency,
	}
}

// ---------- register ----------

type registerReq struct {
	Username          string `json:"username" binding:"required"`
	Password          string `json:"password" binding:"required"`
	ConfirmPassword   string `json:"confirm_password" binding:"required"`
	DisplayName       string `json:"display_name" binding:"max=64"`
	PreferredCurrency string `json:"preferred_currency" binding:"max=8"`
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "username must be 3-20 letters, digits or underscores")
		return
	}
	if !isStrongPassword(req.Password) {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "password must be 8-32 chars with upper, lower and digit")
		return
	}
	if req.Password != req.ConfirmPassword {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "passwords do not match")
		return
	}

	// case-insensitive unique username
	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", req.Username).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "query user failed")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "username already exists")
		return
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "hash password failed")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.PreferredCurrency))
	if currency == "" {
		currency = h.DefaultCurrency
	}

	user := models.User{
		Username:          req.Username,
		PasswordHash:      hash,
		DisplayName:       req.DisplayName,
		Role:              models.RoleUser,
		PreferredCurrency: currency,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "create user failed")
		return
	}

	util.Success(c, util.Response{
		"user": gin.H{
			"id":                 user.ID,
			"username":           user.Username,
			"display_name":       user.DisplayName,
			"preferred_currency": user.PreferredCurrency,
		},
	})
}

// password strength: 8-32 chars with upper, lower and digit
func isStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// ---------- login ----------

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, apperr.CodeInvalidParam, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	var user models.User
	if err := h.DB.Where("LOWER(username) = LOWER(?)", req.Username).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusUnauthorized, apperr.CodeAuth, "wrong username or password")
		} else {
			util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "query user failed")
		}
		return
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		util.Error(c, http.StatusUnauthorized, apperr.CodeAuth, "wrong username or password")
		return
	}
	if user.DeletedAt != nil {
		util.Error(c, http.StatusUnauthorized, apperr.CodeAuth, "account is closed")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.LastLoginIP = c.ClientIP()
	_ = h.DB.Save(&user).Error

	token, err := util.GenerateToken(h.JWTSecret, &user, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, apperr.CodeServerErr, "generate token failed")
		return
	}

	util.Success(c, util.Response{
		"token": token,
		"user": gin.H{
			"id":                 user.ID,
			"username":           user.Username,
			"display_name":       user.DisplayName,
			"role":               user.Role,
			"preferred_currency": user.PreferredCurrency,
		},
	})
}
