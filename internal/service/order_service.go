package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	orderSource = "storefront-order"
	chatSource  = "storefront-chat"

	// ChatFallbackReply is returned when the webhook could not answer a chat message.
	ChatFallbackReply = "Your message has been received. An advisor will contact you soon."
)

var (
	// ErrInvalidOrder is returned when an order lacks a contact number or items.
	ErrInvalidOrder = errors.New("order must include a whatsapp number and at least one item")

	// ErrInvalidChat is returned when a chat message lacks a user id or text.
	ErrInvalidChat = errors.New("chat message must include a user id and a message")

	// ErrWebhookFailed is returned when an order could not be forwarded.
	ErrWebhookFailed = errors.New("failed to forward to the order webhook")
)

// WebhookSender posts a payload to the automation webhook.
type WebhookSender interface {
	Send(ctx context.Context, payload any) ([]byte, error)
}

// OrderRequest is a checkout submitted from the storefront cart.
type OrderRequest struct {
	UserID         string            `json:"userId"`
	WhatsappNumber string            `json:"whatsappNumber"`
	Items          []json.RawMessage `json:"items"`
	TotalItems     int               `json:"totalItems"`
	Subtotal       float64           `json:"subtotal"`
	Timestamp      string            `json:"timestamp,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
}

// OrderReceipt confirms a forwarded order.
type OrderReceipt struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CartSummary totals the cart attached to a chat message.
type CartSummary struct {
	TotalItems int               `json:"totalItems"`
	TotalValue float64           `json:"totalValue"`
	Products   []json.RawMessage `json:"products"`
}

// ChatRequest is a message from the storefront chat widget.
type ChatRequest struct {
	UserID      string            `json:"userId"`
	Message     string            `json:"message"`
	CartData    []json.RawMessage `json:"cartData,omitempty"`
	CartSummary *CartSummary      `json:"cartSummary,omitempty"`
	Timestamp   string            `json:"timestamp,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty"`
}

// ChatReply is the answer shown in the chat widget.
type ChatReply struct {
	UserID       string    `json:"userId"`
	BotResponse  string    `json:"botResponse,omitempty"`
	CartIncluded bool      `json:"cartIncluded"`
	Degraded     bool      `json:"degraded"`
	Timestamp    time.Time `json:"timestamp"`
}

type session struct {
	SessionID      string `json:"sessionId"`
	UserIdentifier string `json:"userIdentifier,omitempty"`
	Date           string `json:"date"`
}

type orderData struct {
	WhatsappNumber string            `json:"whatsappNumber"`
	Items          []json.RawMessage `json:"items"`
	TotalItems     int               `json:"totalItems"`
	Subtotal       float64           `json:"subtotal"`
	Timestamp      string            `json:"timestamp,omitempty"`
	UserID         string            `json:"userId,omitempty"`
}

type orderPayload struct {
	UserID       string    `json:"userId,omitempty"`
	Source       string    `json:"source"`
	Type         string    `json:"type"`
	Data         orderData `json:"data"`
	FolderName   string    `json:"folderName"`
	OrderSession session   `json:"orderSession"`
	Timestamp    time.Time `json:"timestamp"`
}

type userInfo struct {
	UserID    string  `json:"userId"`
	HasCart   bool    `json:"hasCart"`
	CartValue float64 `json:"cartValue"`
	CartItems int     `json:"cartItems"`
	UserAgent string  `json:"userAgent"`
}

type chatPayload struct {
	UserID      string            `json:"userId"`
	Source      string            `json:"source"`
	Type        string            `json:"type"`
	Message     string            `json:"message"`
	Timestamp   string            `json:"timestamp"`
	CartData    []json.RawMessage `json:"cartData"`
	CartSummary CartSummary       `json:"cartSummary"`
	UserInfo    userInfo          `json:"userInfo"`
	FolderName  string            `json:"folderName"`
	ChatSession session           `json:"chatSession"`
}

// OrderService forwards storefront orders and chat messages to the automation webhook.
type OrderService struct {
	webhook WebhookSender
	now     func() time.Time
}

func NewOrderService(webhook WebhookSender) *OrderService {
	return &OrderService{
		webhook: webhook,
		now:     time.Now,
	}
}

// SubmitOrder forwards an order and then logs it into the user's chat thread.
func (s *OrderService) SubmitOrder(ctx context.Context, req OrderRequest) (OrderReceipt, error) {
	if strings.TrimSpace(req.WhatsappNumber) == "" || len(req.Items) == 0 {
		return OrderReceipt{}, ErrInvalidOrder
	}

	now := s.now().UTC()
	date := now.Format(time.DateOnly)
	folder := fmt.Sprintf("order_%d", now.UnixMilli())
	sessionID := folder
	if req.UserID != "" {
		folder = "user_" + req.UserID
		sessionID = req.UserID + "_" + date
	}

	payload := orderPayload{
		UserID: req.UserID,
		Source: orderSource,
		Type:   "new-order",
		Data: orderData{
			WhatsappNumber: req.WhatsappNumber,
			Items:          req.Items,
			TotalItems:     req.TotalItems,
			Subtotal:       req.Subtotal,
			Timestamp:      req.Timestamp,
			UserID:         req.UserID,
		},
		FolderName: folder,
		OrderSession: session{
			SessionID:      sessionID,
			UserIdentifier: req.UserID,
			Date:           date,
		},
		Timestamp: now,
	}

	if _, err := s.webhook.Send(ctx, payload); err != nil {
		slog.Error("Failed to forward order", slog.String("user_id", req.UserID), slog.Any("err", err))
		return OrderReceipt{}, fmt.Errorf("%w: %w", ErrWebhookFailed, err)
	}
	slog.Info("Order forwarded", slog.String("user_id", req.UserID), slog.Int("items", len(req.Items)))

	if req.UserID != "" {
		s.logOrderInChat(ctx, req, now)
	}

	return OrderReceipt{
		OrderID:   fmt.Sprintf("PC-%d", now.UnixMilli()),
		UserID:    req.UserID,
		Timestamp: now,
	}, nil
}

func (s *OrderService) logOrderInChat(ctx context.Context, req OrderRequest, at time.Time) {
	_, err := s.Chat(ctx, ChatRequest{
		UserID:   req.UserID,
		Message:  fmt.Sprintf("Order sent:\n- Total: $%.2f\n- Products: %d\n- Date: %s", req.Subtotal, len(req.Items), at.Format(time.DateTime)),
		CartData: req.Items,
		CartSummary: &CartSummary{
			TotalItems: len(req.Items),
			TotalValue: req.Subtotal,
			Products:   req.Items,
		},
		Timestamp: at.Format(time.RFC3339),
		UserAgent: req.UserAgent,
	})
	if err != nil {
		slog.Warn("Failed to log order in chat", slog.String("user_id", req.UserID), slog.Any("err", err))
	}
}

// Chat forwards a chat message and relays the webhook's answer. A webhook
// failure is not an error: the reply is marked degraded and carries a
// fallback text.
func (s *OrderService) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		return ChatReply{}, ErrInvalidChat
	}

	now := s.now().UTC()
	date := now.Format(time.DateOnly)
	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = now.Format(time.RFC3339)
	}
	summary := CartSummary{Products: []json.RawMessage{}}
	if req.CartSummary != nil {
		summary = *req.CartSummary
	}
	cart := req.CartData
	if cart == nil {
		cart = []json.RawMessage{}
	}
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = "unknown"
	}

	payload := chatPayload{
		UserID:      req.UserID,
		Source:      chatSource,
		Type:        "chat-with-cart",
		Message:     req.Message,
		Timestamp:   timestamp,
		CartData:    cart,
		CartSummary: summary,
		UserInfo: userInfo{
			UserID:    req.UserID,
			HasCart:   len(cart) > 0,
			CartValue: summary.TotalValue,
			CartItems: summary.TotalItems,
			UserAgent: userAgent,
		},
		FolderName: "user_" + req.UserID,
		ChatSession: session{
			SessionID:      req.UserID + "_" + date,
			UserIdentifier: req.UserID,
			Date:           date,
		},
	}

	reply := ChatReply{
		UserID:       req.UserID,
		CartIncluded: len(cart) > 0,
		Timestamp:    now,
	}

	body, err := s.webhook.Send(ctx, payload)
	if err != nil {
		slog.Warn("Chat webhook unavailable", slog.String("user_id", req.UserID), slog.Any("err", err))
		reply.Degraded = true
		reply.BotResponse = ChatFallbackReply
		return reply, nil
	}

	reply.BotResponse = botResponse(body)
	return reply, nil
}

// botResponse extracts the answer from a webhook body, which is either JSON
// with one of a few known keys or plain text.
func botResponse(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return string(body)
	}
	for _, key := range []string{"response", "message", "botResponse", "reply"} {
		var text string
		if raw, ok := fields[key]; ok && json.Unmarshal(raw, &text) == nil && text != "" {
			return text
		}
	}
	return ""
}
