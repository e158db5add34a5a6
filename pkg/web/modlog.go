// Package web provides the live moderation-log websocket feed.
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/moderation"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const modlogWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// El feed es de solo lectura para paneles internos.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ModlogHub fans violation reports out to connected websocket clients.
type ModlogHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

var hub = &ModlogHub{clients: make(map[*websocket.Conn]struct{})}

// Hub returns the global modlog hub.
func Hub() *ModlogHub {
	return hub
}

// Broadcast sends the report to every connected client. Clients that fail
// a write are dropped.
func (h *ModlogHub) Broadcast(report *moderation.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		logger.Error("Error serializando reporte para el feed: "+err.Error(), "ModlogHub")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(modlogWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(conn)
		}
	}
}

// ClientCount returns the number of connected feed clients.
func (h *ModlogHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *ModlogHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *ModlogHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// modlogWebsocketHandler upgrades the connection and keeps it registered
// until the client disconnects.
func modlogWebsocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Error aceptando cliente del feed: "+err.Error(), "ModlogHub")
		return
	}

	hub.add(conn)
	logger.Debug("Cliente conectado al feed de moderación: "+conn.RemoteAddr().String(), "ModlogHub")

	// Read loop solo para detectar el cierre; los mensajes entrantes se
	// descartan.
	go func() {
		defer hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
