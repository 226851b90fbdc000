package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the uniform error envelope. Error carries the category, Message the detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is returned by mutations, with the affected gallery when there is one.
type MessageResponse struct {
	Message string      `json:"message"`
	Gallery interface{} `json:"gallery,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, data)
}

// Success returns a 200 response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, data)
}

// Error returns an error envelope whose category is the status text.
func Error(ctx *gin.Context, status int, message string) {
	Respond(ctx, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}
