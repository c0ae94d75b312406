package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope returned by every endpoint. The generic
// parameter only exists so that swagger can render the data schema.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, msg string, data any, code ErrorCode) {
	c.JSON(httpCode, Response[any]{
		Code: code,
		Data: data,
		Msg:  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, "", data, OK)
}

// Error replies with HTTP 500 and the given business code.
func Error(c *gin.Context, msg string, code ErrorCode) {
	wrapResponse(c, http.StatusInternalServerError, msg, nil, code)
}

// HTTPError replies with an explicit HTTP status, for cases where the
// status carries meaning to the client (401, 403, 404, 409).
func HTTPError(c *gin.Context, httpCode int, msg string, code ErrorCode) {
	wrapResponse(c, httpCode, msg, nil, code)
}

// BadRequestError is the shorthand for binding and validation failures.
func BadRequestError(c *gin.Context, msg string) {
	wrapResponse(c, http.StatusBadRequest, msg, nil, InvalidRequest)
}
