package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
	Error  any `json:"error,omitempty"`
}

// JSON writes data inside a success envelope.
func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Status: status, Data: data})
}

// OK sends a 200 response
func OK(c *gin.Context, data any) {
	JSON(c, http.StatusOK, data)
}

// Created sends a 201 response
func Created(c *gin.Context, data any) {
	JSON(c, http.StatusCreated, data)
}

// NoContent sends a bodiless 204 response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Message sends a 200 response carrying only a message.
func Message(c *gin.Context, message string) {
	OK(c, gin.H{"message": message})
}

// Error writes err inside a failure envelope.
func Error(c *gin.Context, status int, err any) {
	c.JSON(status, Envelope{Status: status, Error: err})
}
