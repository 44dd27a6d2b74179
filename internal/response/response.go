// Package response is the admin HTTP surface's unified envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Standard is the unified response envelope returned by every admin route.
type Standard struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Standard{Code: 0, Msg: msg, Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Standard{Code: 400, Msg: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Standard{Code: 401, Msg: msg})
}

func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Standard{Code: 500, Msg: msg})
}
