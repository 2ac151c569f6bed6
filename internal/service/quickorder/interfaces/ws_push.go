package interfaces

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quickorder/internal/service/quickorder/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// Hub 维护所有活跃的网格订阅连接，并按门店推送重建结果。
// 实现了 port.GridNotifier。
type Hub struct {
	clients    map[string]map[*Client]struct{} // 按 StoreID 分组
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

// NewHub 创建推送中心。
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 处理连接注册与注销，应在独立 goroutine 中运行。
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			if h.clients[client.storeID] == nil {
				h.clients[client.storeID] = make(map[*Client]struct{})
			}
			h.clients[client.storeID][client] = struct{}{}
			h.lock.Unlock()
			log.Printf("Grid subscriber registered for store %s", client.storeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if set, ok := h.clients[client.storeID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
					if len(set) == 0 {
						delete(h.clients, client.storeID)
					}
				}
			}
			h.lock.Unlock()
			log.Printf("Grid subscriber unregistered for store %s", client.storeID)
		}
	}
}

// gridPushMessage 是推给订阅端的线上格式。
type gridPushMessage struct {
	Type    string        `json:"type"`
	StoreID string        `json:"store_id"`
	Lines   []domain.Line `json:"lines"`
}

// PushGrid 把重建后的网格推给该门店的所有订阅连接。
// 慢连接的发送缓冲满时丢弃本次推送，下一次重建会带来全量状态。
func (h *Hub) PushGrid(storeID string, lines []domain.Line) {
	payload, err := json.Marshal(gridPushMessage{Type: "grid", StoreID: storeID, Lines: lines})
	if err != nil {
		log.Printf("ERROR: failed to marshal grid push: %v", err)
		return
	}

	h.lock.RLock()
	defer h.lock.RUnlock()
	for client := range h.clients[storeID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	storeID string
}

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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// 订阅端不发业务消息，只处理心跳
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeWS 把一个 HTTP 请求升级为网格订阅连接。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		http.Error(w, "storeId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), storeID: storeID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
