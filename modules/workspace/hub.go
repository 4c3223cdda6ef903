package workspace

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/variation"
)

const (
	MessageOutcomeUpdate  = "outcome_update"
	MessageRequestOutcome = "request_outcome"
)

// Message - websocket 메시지
type Message struct {
	Type      string                `json:"type"`
	SessionID string                `json:"sessionId,omitempty"`
	Outcome   *variation.RunOutcome `json:"outcome,omitempty"`
}

// Client - workspace에 연결된 websocket 클라이언트
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, 16),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// addClient - 클라이언트를 workspace에 추가
func (w *Workspace) addClient(c *Client) {
	w.mu.Lock()
	w.clients[c.id] = c
	w.touch()
	count := len(w.clients)
	w.mu.Unlock()

	log.Info().Msgf("👤 Client %s joined workspace %s (Clients: %d)", c.id, w.id, count)
}

// removeClient - 클라이언트를 workspace에서 제거
func (w *Workspace) removeClient(clientID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c, exists := w.clients[clientID]; exists {
		c.close()
		delete(w.clients, clientID)
		w.touch()
		log.Info().Msgf("👋 Client %s left workspace %s (Remaining: %d)", clientID, w.id, len(w.clients))
	}
}

// disconnectAll - 만료 시 모든 클라이언트 연결 종료
func (w *Workspace) disconnectAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for clientID, c := range w.clients {
		c.close()
		delete(w.clients, clientID)
		log.Info().Msgf("🔌 Disconnecting client %s from workspace %s", clientID, w.id)
	}
}

func (w *Workspace) clientCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// broadcastOutcome - 모든 클라이언트에게 현재 outcome 전송
func (w *Workspace) broadcastOutcome(outcome *variation.RunOutcome) {
	w.broadcastToAll(Message{
		Type:      MessageOutcomeUpdate,
		SessionID: w.id,
		Outcome:   outcome,
	})
}

// broadcastToAll drops clients whose buffer is full instead of blocking the run.
func (w *Workspace) broadcastToAll(message Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Error().Msgf("Error marshaling message: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for clientID, c := range w.clients {
		select {
		case c.send <- messageBytes:
			log.Debug().Msgf("📤 Sent %s to client %s", message.Type, clientID)
		default:
			c.close()
			delete(w.clients, clientID)
			log.Warn().Msgf("⚠️  Dropped slow client %s from workspace %s", clientID, w.id)
		}
	}
}

// sendTo - 특정 클라이언트에게만 전송
func (w *Workspace) sendTo(c *Client, message Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Error().Msgf("Error marshaling message: %v", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- messageBytes:
	default:
		c.close()
		delete(w.clients, c.id)
	}
}

// readPump - 클라이언트로부터 메시지 읽기
func (c *Client) readPump(w *Workspace) {
	defer func() {
		w.removeClient(c.id)
		c.conn.Close()
	}()

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Msgf("WebSocket error: %v", err)
			}
			return
		}

		switch message.Type {
		case MessageRequestOutcome:
			w.sendTo(c, Message{
				Type:      MessageOutcomeUpdate,
				SessionID: w.id,
				Outcome:   w.Outcome(),
			})
		default:
			log.Debug().Msgf("Ignoring message type '%s' from client %s", message.Type, c.id)
		}
	}
}

// writePump - 클라이언트로 메시지 쓰기
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Warn().Msgf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
