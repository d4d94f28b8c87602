package util

import (
	"net/http"

	"github.com/AIP-project/portfolia-backend-sub000/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Response is the data payload of a successful envelope.
type Response map[string]interface{}

const CodeOK = 0

// Success writes the success envelope.
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error writes an error envelope with an explicit status and code.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// Fail maps a business error from the core onto the error envelope.
func Fail(c *gin.Context, err error) {
	Error(c, apperr.HTTPStatus(err), apperr.CodeOf(err), apperr.MessageOf(err))
}
