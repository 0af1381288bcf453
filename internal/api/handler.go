package api

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handlers struct {
	ing         *service.Ingestor
	qry         *service.Query
	verifyToken string
	log         *zap.SugaredLogger
}

func NewHandlers(ing *service.Ingestor, qry *service.Query, verifyToken string, log *zap.SugaredLogger) *Handlers {
	return &Handlers{ing: ing, qry: qry, verifyToken: verifyToken, log: log}
}

func (h *Handlers) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// verifyWebhook answers the provider's subscription handshake by echoing
// hub.challenge when the verify token matches.
func (h *Handlers) verifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && (h.verifyToken == "" || token == h.verifyToken) {
		return c.SendString(challenge)
	}
	return c.Status(403).JSON(fiber.Map{"error": "verification failed"})
}

// receiveWebhook ingests one notification payload. Valid JSON always gets a
// 200 with the reconciliation summary: the pipeline is idempotent, so
// forcing provider retries with a 5xx buys nothing.
func (h *Handlers) receiveWebhook(c *fiber.Ctx) error {
	var payload map[string]any
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()
	sum := h.ing.Ingest(ctx, payload)
	return c.JSON(sum)
}

func (h *Handlers) listConversations(c *fiber.Ctx) error {
	convs, err := h.qry.Conversations(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": convs})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	conversationID := c.Params("conversation_id")
	msgs, err := h.qry.History(c.Context(), conversationID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": msgs})
}

func (h *Handlers) sendMessage(c *fiber.Ctx) error {
	var req struct {
		To   string `json:"to"`
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	msg, err := h.ing.Send(ctx, req.To, req.Body)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBody) || errors.Is(err, service.ErrMissingConversation) {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(201).JSON(fiber.Map{"status": "ok", "data": msg})
}

func (h *Handlers) deleteMessage(c *fiber.Ctx) error {
	msgID := c.Params("msg_id")
	ok, err := h.ing.Delete(c.Context(), msgID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "message not found"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
