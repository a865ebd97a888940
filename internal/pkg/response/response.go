// Package response holds the error envelope shared by every HTTP handler.
// Success payloads are endpoint-specific and stay in the services.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/needleref/needleref/internal/pkg/errors"
)

// ErrorBody is the wire shape of every failed request.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fail writes the envelope for err, mapping its application code to an HTTP
// status. Unknown errors come out as 500 internal server error.
func Fail(c *gin.Context, err error) {
	code := apperrors.ExtractCode(err)
	c.JSON(apperrors.GetHTTPStatus(code), ErrorBody{
		Error:   true,
		Code:    code,
		Message: apperrors.GetMessage(code),
	})
}

// BadRequest writes a 400 envelope with a request-specific message, used for
// binding and parameter parsing failures where the raw reason helps callers.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{
		Error:   true,
		Code:    apperrors.ErrInvalidParams,
		Message: message,
	})
}
