package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/metrics"
)

// MessageType WebSocket 消息类型
const (
	MsgTypeInit            = "init"             // 初始化数据（会话+客户端状态）
	MsgTypeSession         = "session"          // 会话事件 SIGNED_IN / TOKEN_REFRESHED / SIGNED_OUT
	MsgTypeTripPlanned     = "trip_planned"     // 行程规划完成
	MsgTypeStationsUpdated = "stations_updated" // 附近充电站更新
	MsgTypeStateCleared    = "state_cleared"    // 客户端缓存已清空
	MsgTypeError           = "error"            // 错误消息
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message WebSocket 消息结构
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// InitData 初始化数据
type InitData struct {
	Session any `json:"session"`
	State   any `json:"state"`
}

// SessionEvent 会话事件
type SessionEvent struct {
	Event    string `json:"event"`
	Redirect string `json:"redirect,omitempty"`
}

// envelope 待投递的消息，userID 为空时发给所有客户端
type envelope struct {
	userID string
	data   []byte
}

// Client WebSocket 客户端
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	init   []byte // 注册前准备好的初始消息
}

// Hub WebSocket 连接管理中心
type Hub struct {
	logger     *zap.Logger
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	// 初始数据提供者回调
	getInitData func(userID string) *InitData
}

// NewHub 创建 Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetInitDataProvider 设置初始数据提供者
func (h *Hub) SetInitDataProvider(provider func(userID string) *InitData) {
	h.getInitData = provider
}

// Run 运行 Hub，ctx 取消后关闭所有客户端并返回
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		metrics.ObserveClients(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.ObserveClients(total)
			h.logger.Info("WebSocket client connected",
				zap.String("user_id", client.userID),
				zap.Int("total_clients", total))

			if client.init != nil {
				select {
				case client.send <- client.init:
				default:
					h.logger.Warn("Failed to send init data, client buffer full")
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.ObserveClients(total)
			h.logger.Info("WebSocket client disconnected", zap.Int("total_clients", total))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if msg.userID != "" && client.userID != msg.userID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// 慢消费者，关闭连接
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// initMessage 生成新连接的初始消息，在连接自己的 goroutine 中调用
func (h *Hub) initMessage(userID string) []byte {
	if h.getInitData == nil {
		return nil
	}

	initData := h.getInitData(userID)
	if initData == nil {
		h.logger.Warn("Init data provider returned nil")
		return nil
	}

	data, err := json.Marshal(Message{Type: MsgTypeInit, Data: initData})
	if err != nil {
		h.logger.Error("Failed to marshal init data", zap.Error(err))
		return nil
	}
	return data
}

func (h *Hub) publish(userID, msgType string, data any) {
	jsonData, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- envelope{userID: userID, data: jsonData}:
	case <-h.done:
	}
}

// BroadcastMessage 广播结构化消息给所有客户端
func (h *Hub) BroadcastMessage(msgType string, data any) {
	h.publish("", msgType, data)
}

// SendToUser 发送结构化消息给指定用户的所有连接
func (h *Hub) SendToUser(userID, msgType string, data any) {
	if userID == "" {
		return
	}
	h.publish(userID, msgType, data)
}

// SendSessionEvent 发送会话事件
func (h *Hub) SendSessionEvent(userID string, event SessionEvent) {
	h.SendToUser(userID, MsgTypeSession, event)
}

// ClientCount 获取客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}
}

// Register 准备初始数据并注册客户端
func (c *Client) Register() {
	c.init = c.hub.initMessage(c.userID)
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		close(c.send)
	}
}

// Unregister 注销客户端
func (c *Client) Unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump 读取消息（保持连接活跃）
func (c *Client) ReadPump() {
	defer func() {
		c.Unregister()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// 不处理客户端消息，仅保持连接
	}
}

// WritePump 发送消息并定期 ping
func (c *Client) WritePump() {
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
