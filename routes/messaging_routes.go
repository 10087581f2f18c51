package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/kelvinmwangi/fundilink/handlers"
	"github.com/kelvinmwangi/fundilink/middleware"
)

func MessagingRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", handlers.GetUserConversations)
	conversations.Post("", handlers.CreateOrGetConversation)
	conversations.Get("/:conversationId/messages", handlers.GetConversationMessages)
	conversations.Post("/:conversationId/messages", handlers.SendMessage)
	conversations.Post("/:conversationId/read", handlers.MarkConversationRead)
	conversations.Delete("/:conversationId", handlers.DeleteConversation)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(handlers.ServeWs))
}
