package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"meetup-app-server/models"
)

// Event is the wire format pushed to chat subscribers. Message and roster
// updates arrive on the same connection; their interleaving is not
// coordinated since they touch disjoint client state.
type Event struct {
	Type         string              `json:"type"` // message | roster | typing
	ActivityID   uint                `json:"activityID"`
	Message      *models.ChatMessage `json:"message,omitempty"`
	Participants []uint              `json:"participants,omitempty"`
	UserID       uint                `json:"userID,omitempty"`
	Username     string              `json:"username,omitempty"`
	IsTyping     bool                `json:"isTyping,omitempty"`
}

func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

func (e *Event) Decode(payload []byte) error {
	return json.Unmarshal(payload, e)
}

// Hub manages per-activity chat hubs, created lazily and safe for concurrent
// use.
type Hub struct {
	mu         sync.RWMutex
	activities map[uint]*ActivityHub
}

func NewHub() *Hub { return &Hub{activities: make(map[uint]*ActivityHub)} }

// GetActivity returns the hub for activityID, starting one if needed.
func (h *Hub) GetActivity(activityID uint) *ActivityHub {
	h.mu.RLock()
	ah := h.activities[activityID]
	h.mu.RUnlock()
	if ah != nil {
		return ah
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ah = h.activities[activityID]
	if ah != nil {
		return ah
	}
	ah = NewActivityHub(activityID)
	h.activities[activityID] = ah
	go ah.run()
	return ah
}

// Broadcast delivers payload to every subscriber of the activity. Activities
// with no subscribers are skipped, not created.
func (h *Hub) Broadcast(activityID uint, payload []byte) {
	h.mu.RLock()
	ah := h.activities[activityID]
	h.mu.RUnlock()
	if ah == nil {
		return
	}
	ah.broadcast <- payload
}

func (h *Hub) Online(activityID uint) int {
	h.mu.RLock()
	ah := h.activities[activityID]
	h.mu.RUnlock()
	if ah == nil {
		return 0
	}
	return ah.Online()
}

type ActivityHub struct {
	activityID uint
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	online     int32
}

func NewActivityHub(activityID uint) *ActivityHub {
	return &ActivityHub{
		activityID: activityID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (ah *ActivityHub) run() {
	for {
		select {
		case c := <-ah.register:
			ah.clients[c] = true
			atomic.StoreInt32(&ah.online, int32(len(ah.clients)))
		case c := <-ah.unregister:
			if _, ok := ah.clients[c]; ok {
				delete(ah.clients, c)
				close(c.send)
				atomic.StoreInt32(&ah.online, int32(len(ah.clients)))
			}
		case msg := <-ah.broadcast:
			for c := range ah.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(ah.clients, c)
					atomic.StoreInt32(&ah.online, int32(len(ah.clients)))
				}
			}
		}
	}
}

// Online returns the number of live subscribers for this activity.
func (ah *ActivityHub) Online() int { return int(atomic.LoadInt32(&ah.online)) }
