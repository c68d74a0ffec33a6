package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/config"
)

// Controller handles general HTTP requests.
type Controller struct {
	config *config.Config
}

// New creates a new Controller with the given configuration.
func New(config *config.Config) *Controller {
	return &Controller{
		config: config,
	}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "pong",
		"database": con.config.Database.Enabled(),
		"queue":    con.config.AWS.Enabled(),
		"cache":    con.config.Redis.Enabled(),
	})
}

// ok writes a success envelope merged with fields.
func ok(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}
