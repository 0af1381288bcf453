package api

import (
	"github.com/fathima-sithara/webhook-service/internal/config"
	"github.com/fathima-sithara/webhook-service/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func NewServer(cfg *config.Config, ing *service.Ingestor, qry *service.Query, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New()
	app.Use(logger.New())
	h := NewHandlers(ing, qry, cfg.Webhook.VerifyToken, log)

	app.Get("/healthz", h.healthz)

	// The provider calls the webhook path directly; everything else sits
	// under the versioned API.
	app.Get("/webhook", h.verifyWebhook)
	app.Post("/webhook", h.receiveWebhook)

	api := app.Group("/v1")
	api.Get("/conversations", h.listConversations)
	api.Get("/conversations/:conversation_id/messages", h.listMessages)
	api.Post("/messages", h.sendMessage)
	api.Delete("/messages/:msg_id", h.deleteMessage)

	return app
}
