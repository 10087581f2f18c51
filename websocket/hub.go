package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/kelvinmwangi/fundilink/messagestore"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

type MessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan *messagestore.Message)

// ConvStore must be set before RunHub starts; the hub resolves message
// recipients through it.
var ConvStore *messagestore.Store

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case message := <-Broadcast:
			conv, err := ConvStore.Get(message.ConversationID)
			if err != nil {
				log.Printf("Error fetching conversation %s for broadcast: %v", message.ConversationID, err)
				continue
			}

			clientsMu.RLock()
			for _, participant := range conv.Participants {
				participantID, err := uuid.Parse(participant)
				if err != nil || participant == message.SenderID {
					continue
				}
				if conn, ok := clients[participantID]; ok {
					if err := conn.WriteJSON(message); err != nil {
						log.Printf("Error sending message to client %s: %v", participantID, err)
						conn.Close()
						clientsMu.RUnlock()
						clientsMu.Lock()
						delete(clients, participantID)
						clientsMu.Unlock()
						clientsMu.RLock()
					}
				}
			}
			clientsMu.RUnlock()
		}
	}
}
