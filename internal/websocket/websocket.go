package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
	"github.com/abrezinsky/galajudge/internal/services"
)

// Event types pushed to clients
const (
	EventConnected  = "connected"
	EventGalaLock   = "gala_lock"
	EventSubmission = "submission"
	EventNoteSaved  = "note_saved"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

var _ services.Broadcaster = (*Hub)(nil)

// GalaLockPayload is sent when an administrator locks or unlocks a gala
type GalaLockPayload struct {
	GalaID int  `json:"gala_id"`
	Locked bool `json:"locked"`
}

// SubmissionPayload is sent when a judge submits or an administrator resets
// a submission
type SubmissionPayload struct {
	JudgeID   int  `json:"juge_id"`
	GalaID    int  `json:"gala_id"`
	Submitted bool `json:"submitted"`
}

// NoteSavedPayload tells a judge's other devices that a note changed
type NoteSavedPayload struct {
	JudgeID       int `json:"juge_id"`
	GalaID        int `json:"gala_id"`
	ParticipantID int `json:"participant_id"`
	QuestionID    int `json:"question_id"`
}

// envelope is a message plus its audience. judgeID 0 reaches every client;
// otherwise only that judge's clients and admin clients get it.
type envelope struct {
	judgeID int
	message models.WSMessage
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id      string
	judgeID int
	admin   bool
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
}

// New creates a new Hub instance
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "client_id", client.id, "judge_id", client.judgeID, "admin", client.admin, "total_clients", total)

			client.send <- models.WSMessage{
				Type:    EventConnected,
				Payload: map[string]interface{}{"client_id": client.id},
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "client_id", client.id, "total_clients", total)

		case env := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				if !client.accepts(env.judgeID) {
					continue
				}
				select {
				case client.send <- env.message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (c *Client) accepts(judgeID int) bool {
	return judgeID == 0 || c.admin || c.judgeID == judgeID
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.send(0, msgType, payload)
}

func (h *Hub) send(judgeID int, msgType string, payload interface{}) {
	h.broadcast <- envelope{
		judgeID: judgeID,
		message: models.WSMessage{Type: msgType, Payload: payload},
	}
}

// BroadcastGalaLock implements services.Broadcaster
func (h *Hub) BroadcastGalaLock(galaID int, locked bool) {
	h.BroadcastMessage(EventGalaLock, GalaLockPayload{GalaID: galaID, Locked: locked})
}

// BroadcastSubmission implements services.Broadcaster
func (h *Hub) BroadcastSubmission(judgeID, galaID int, submitted bool) {
	h.send(judgeID, EventSubmission, SubmissionPayload{JudgeID: judgeID, GalaID: galaID, Submitted: submitted})
}

// BroadcastNoteSaved implements services.Broadcaster
func (h *Hub) BroadcastNoteSaved(judgeID, galaID, participantID, questionID int) {
	h.send(judgeID, EventNoteSaved, NoteSavedPayload{
		JudgeID:       judgeID,
		GalaID:        galaID,
		ParticipantID: participantID,
		QuestionID:    questionID,
	})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "client_id", c.id, "error", err)
			}
			break
		}

		// Clients only listen; incoming frames are logged and dropped
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "client_id", c.id, "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients. A judge authenticated by
// RequireJudgeAPI only receives its own submission and note events; a
// connection without a judge only receives gala-wide events.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	judgeID, _ := auth.JudgeID(r.Context())
	h.serve(w, r, judgeID, false)
}

// ServeAdminWs handles websocket requests from administrators, who receive
// every judge's events. It must sit behind the admin session check.
func (h *Hub) ServeAdminWs(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, 0, true)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, judgeID int, admin bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		judgeID: judgeID,
		admin:   admin,
		hub:     h,
		conn:    conn,
		send:    make(chan models.WSMessage, sendBuffer),
	}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
