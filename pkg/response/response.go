package response

import (
	"errors"
	"net/http"

	"nanitabeyo/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess     = 0
	CodeParamError  = 400
	CodeNotFound    = 404
	CodeServerError = 500
)

const (
	CodeInvalidTransition   = 1001
	CodeConcurrencyConflict = 1002
	CodeDuplicatePayout     = 1003
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

// CodeFor maps the settlement error taxonomy onto business codes.
func CodeFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return CodeParamError
	case errors.Is(err, apperr.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, apperr.ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, apperr.ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	case errors.Is(err, apperr.ErrDuplicatePayout):
		return CodeDuplicatePayout
	default:
		return CodeServerError
	}
}

// FromError writes err with the code CodeFor picks. Internal errors are not
// echoed to the client.
func FromError(c *gin.Context, err error) {
	code := CodeFor(err)
	if code == CodeServerError {
		ServerError(c, "internal server error")
		return
	}
	Error(c, code, err.Error())
}
