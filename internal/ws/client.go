package ws

import (
	"time"

	gw "github.com/gorilla/websocket"

	"ordering-platform/internal/domain"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type Client struct {
	hub   *Hub
	conn  *gw.Conn
	send  chan []byte
	scope domain.Scope
}

func newClient(hub *Hub, conn *gw.Conn, scope domain.Scope) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, 64), scope: scope}
}

// readPump discards client frames; the stream is push-only. Its job is to
// notice the peer going away and unregister.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(gw.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(gw.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(gw.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
