package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultSendBuffer 是单个连接出站缓冲的默认容量。
const DefaultSendBuffer = 32

// Hub 维护全部在线连接并向它们广播事件。
// 连接的接入、退出与广播可以并发发生，连接集合由读写锁保护。
type Hub struct {
	log        *slog.Logger
	sendBuffer int

	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcasts atomic.Uint64
	dropped    atomic.Uint64
}

// NewHub 创建事件集线器，sendBuffer 不为正时使用默认值。
func NewHub(log *slog.Logger, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		log:        log,
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]struct{}),
	}
}

// Register 接入一个新连接并返回其句柄。
func (h *Hub) Register() *Client {
	c := &Client{hub: h, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("websocket client connected", slog.Int("total", total))
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if known {
		h.log.Info("websocket client disconnected", slog.Int("total", total))
	}
}

// Broadcast 将事件编码一次后投递给所有在线连接。
// 投递是尽力而为：某个连接缓冲已满时只丢弃这一条消息，
// 不阻塞调用方，也不影响其他连接。
func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := Event{Type: eventType, Data: data}.Encode()
	if err != nil {
		h.log.Error("encode broadcast event failed",
			slog.String("event", eventType),
			slog.Any("error", err),
		)
		return
	}
	h.broadcasts.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
			h.log.Warn("dropping event for slow websocket client",
				slog.String("event", eventType),
			)
		}
	}
}

// ClientCount 返回当前在线连接数。
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcasts 返回累计广播的事件条数，供指标采集使用。
func (h *Hub) Broadcasts() uint64 { return h.broadcasts.Load() }

// Dropped 返回因缓冲写满而丢弃的投递条数，供指标采集使用。
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
