package server

import (
	"net/http"

	"pe-tracker/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub is the main Hub loop
func (s *APIServer) runHub() {
	for {
		select {
		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			state := s.latestState
			s.stateMutex.Unlock()

			// Send the latest known state on connect
			if state != nil {
				client.send <- state
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case update, ok := <-s.broadcast:
			if !ok {
				return
			}

			s.stateMutex.Lock()
			s.latestState = update

			for client := range s.clients {
				select {
				case client.send <- update:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a tracker update for delivery to every connected client
// and records it as the latest state for new connections.
func (s *APIServer) Broadcast(update *models.MTrackerUpdate) {
	if update == nil {
		return
	}
	s.broadcast <- update
}

// -----------------------------------------------------------------------------

// LatestState returns the most recently broadcast update.
func (s *APIServer) LatestState() *models.MTrackerUpdate {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestState
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 64),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}
