package utils

import (
	"github.com/gin-gonic/gin"
)

// requestIDKey matches the context key set by the request ID middleware.
const requestIDKey = "request_id"

// APIResponse is the envelope every JSON endpoint returns. RequestID echoes
// the X-Request-ID the middleware assigned, so clients can quote it when
// reporting a failed search.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func SuccessResponse(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}

func ErrorResponse(c *gin.Context, code int, message string, err error) {
	response := APIResponse{
		Success:   false,
		Message:   message,
		RequestID: c.GetString(requestIDKey),
	}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(code, response)
}
