package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/service"
)

// OrderController forwards storefront orders and chat messages.
type OrderController struct {
	orderService *service.OrderService
}

// NewOrderController creates a new OrderController with the given order service.
func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// SubmitOrder handles the HTTP POST request for a checkout.
func (oc *OrderController) SubmitOrder(c *gin.Context) {
	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	receipt, err := oc.orderService.SubmitOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "Order sent", gin.H{
		"orderId":   receipt.OrderID,
		"userId":    receipt.UserID,
		"timestamp": receipt.Timestamp,
	})
}

// Chat handles the HTTP POST request for a chat message.
func (oc *OrderController) Chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	reply, err := oc.orderService.Chat(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, "Message sent", gin.H{
		"userId":       reply.UserID,
		"botResponse":  reply.BotResponse,
		"cartIncluded": reply.CartIncluded,
		"degraded":     reply.Degraded,
		"timestamp":    reply.Timestamp,
	})
}
