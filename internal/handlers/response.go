package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response - общий конверт успешных ответов API
type Response struct {
	Success bool        `json:"success"`
	Count   *int64      `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondList(c *gin.Context, data interface{}, count int64) {
	c.JSON(http.StatusOK, Response{Success: true, Count: &count, Data: data})
}

func respondDeleted(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{}})
}
