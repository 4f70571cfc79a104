package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventPlanGenerated = "plan_generated"
	EventPlanSaved     = "plan_saved"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID), zap.String("user_id", client.UserID), zap.Int("total", len(h.clients)))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// PlanGenerated 排产生成事件
type PlanGenerated struct {
	OrderID        string  `json:"order_id"`
	SessionID      string  `json:"session_id"`
	Mode           string  `json:"mode"`
	UserID         string  `json:"user_id"`
	CompletionDate string  `json:"completion_date,omitempty"`
	Planned        float64 `json:"planned"`
	Unplanned      float64 `json:"unplanned"`
}

// PlanSaved 计划保存事件
type PlanSaved struct {
	OrderID  string   `json:"order_id"`
	UserID   string   `json:"user_id"`
	LineIDs  []string `json:"line_ids"`
	Inserted int      `json:"inserted"`
	Deleted  int      `json:"deleted"`
}

// PublishPlanGenerated 广播排产生成事件
func (h *Hub) PublishPlanGenerated(e PlanGenerated) {
	h.publish(EventPlanGenerated, e)
}

// PublishPlanSaved 广播计划保存事件；订阅方据此刷新产线可用日期
func (h *Hub) PublishPlanSaved(e PlanSaved) {
	h.publish(EventPlanSaved, e)
}

func (h *Hub) publish(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("SSE payload marshal failed", zap.String("event", eventType), zap.Error(err))
		return
	}
	h.Broadcast(Event{EventType: eventType, Data: string(data)})
}
