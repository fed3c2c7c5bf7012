package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	hub      *ActivityHub
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	username string
}

// inboundFrame is the only thing a subscriber may push upstream: a typing
// signal. Messages themselves are written through the REST endpoint and
// observed via the subscription.
type inboundFrame struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"isTyping"`
}

// Serve upgrades the request and subscribes it to the activity's event
// stream. The subscription is released when the connection closes.
func Serve(h *Hub, activityID uint, userID uint, username string, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	ah := h.GetActivity(activityID)
	client := &Client{hub: ah, conn: conn, send: make(chan []byte, 256), userID: userID, username: username}
	ah.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil || in.Type != "typing" {
			continue
		}
		evt := Event{Type: "typing", ActivityID: c.hub.activityID, UserID: c.userID, Username: c.username, IsTyping: in.IsTyping}
		c.hub.broadcast <- evt.Encode()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
