package handlers

import (
	"errors"
	"fmt"
	"log"

	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	configs "github.com/kelvinmwangi/fundilink/configs"
	"github.com/kelvinmwangi/fundilink/database"
	"github.com/kelvinmwangi/fundilink/messagestore"
	"github.com/kelvinmwangi/fundilink/models"
	"github.com/kelvinmwangi/fundilink/websocket"
)

// MsgStore must be set during startup before the messaging routes are served.
var MsgStore *messagestore.Store

func GetUserConversations(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)

	conversations, err := MsgStore.ListForUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversations"})
	}

	return c.JSON(conversations)
}

func CreateOrGetConversation(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)

	type Request struct {
		RecipientID string `json:"recipient_id" validate:"required,uuid"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.RecipientID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot start a conversation with yourself"})
	}

	var recipient models.User
	if err := database.DB.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	}

	existing, err := MsgStore.ListForUser(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up conversations"})
	}
	for _, conv := range existing {
		for _, p := range conv.Participants {
			if p == req.RecipientID {
				return c.JSON(conv)
			}
		}
	}

	conversation, err := MsgStore.Create(userID, req.RecipientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func GetConversationMessages(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)
	conversationID := c.Params("conversationId")

	conversation, err := MsgStore.Get(conversationID)
	if err != nil {
		if errors.Is(err, messagestore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversation"})
	}

	if !isParticipant(conversation, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a participant in this conversation"})
	}

	return c.JSON(conversation.Messages)
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

func SendMessage(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)
	conversationID := c.Params("conversationId")

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conversation, err := MsgStore.Get(conversationID)
	if err != nil {
		if errors.Is(err, messagestore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversation"})
	}
	if !isParticipant(conversation, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a participant in this conversation"})
	}

	message, err := MsgStore.AddMessage(conversationID, userID, otherParticipant(conversation, userID), req.Content)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save message"})
	}

	websocket.Broadcast <- message

	return c.Status(fiber.StatusCreated).JSON(message)
}

func MarkConversationRead(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)
	conversationID := c.Params("conversationId")

	conversation, err := MsgStore.Get(conversationID)
	if err != nil {
		if errors.Is(err, messagestore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversation"})
	}
	if !isParticipant(conversation, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a participant in this conversation"})
	}

	updated, err := MsgStore.MarkRead(conversationID, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark conversation as read"})
	}

	return c.JSON(fiber.Map{"updated": updated})
}

func DeleteConversation(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID := claims["user_id"].(string)
	conversationID := c.Params("conversationId")

	conversation, err := MsgStore.Get(conversationID)
	if err != nil {
		if errors.Is(err, messagestore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversation"})
	}
	if !isParticipant(conversation, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not a participant in this conversation"})
	}

	if err := MsgStore.Delete(conversationID); err != nil {
		if errors.Is(err, messagestore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete conversation"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func isParticipant(conv *messagestore.Conversation, userID string) bool {
	for _, p := range conv.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

func otherParticipant(conv *messagestore.Conversation, userID string) string {
	for _, p := range conv.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func ServeWs(c *websocketcontrib.Conn) {
	var userID uuid.UUID

	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message, error: %v, received: %+v", err, authMsg)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token, error: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	userID, err = uuid.Parse(claims["user_id"].(string))
	if err != nil {
		log.Printf("WebSocket auth failed: invalid user_id, error: %v, user_id: %v", err, claims["user_id"])
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	log.Printf("WebSocket client authenticated and registered: %s", userID)
	client := &websocket.Client{UserID: userID, Conn: c}
	websocket.Register <- client
	defer func() {
		log.Printf("Unregistering client: %s", userID)
		websocket.Unregister <- client
		c.Close()
	}()

	for {
		var msg websocket.MessagePayload
		if err := c.ReadJSON(&msg); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		conversation, err := MsgStore.Get(msg.ConversationID)
		if err != nil {
			log.Printf("Invalid conversation %s for client %s: %v", msg.ConversationID, userID, err)
			_ = c.WriteJSON(fiber.Map{"error": "Conversation not found"})
			continue
		}
		if !isParticipant(conversation, userID.String()) {
			_ = c.WriteJSON(fiber.Map{"error": "You are not a participant in this conversation"})
			continue
		}

		message, err := MsgStore.AddMessage(msg.ConversationID, userID.String(), otherParticipant(conversation, userID.String()), msg.Content)
		if err != nil {
			log.Printf("Failed to save message for client %s: %v", userID, err)
			_ = c.WriteJSON(fiber.Map{"error": "Failed to save message"})
			continue
		}
		websocket.Broadcast <- message
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
