package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"jobPilot/internal/hub"
	"jobPilot/internal/queue"
	"jobPilot/internal/tasks"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 负责 WebSocket 升级与事件转发。
// 每个连接注册为 Hub 客户端接收广播；读循环同时接受
// 对话提交与 ping 心跳，单个连接的全部写出都走写循环。
type WsHandler struct {
	events         *hub.Hub
	queue          *queue.Manager
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(events *hub.Hub, manager *queue.Manager, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		events:         events,
		queue:          manager,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// 入站帧。type 为 chat 时其余字段按对话任务负载解释。
type wsInbound struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	JobID   uint   `json:"job_id"`
	Context string `json:"context"`
}

// HandleConnection 升级连接，接入 Hub 并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	client := h.events.Register()
	defer client.Close()

	// 新连接的第一帧是队列快照，仪表盘不用再发请求就能渲染。
	h.deliver(client, hub.Event{Type: hub.EventQueueStatus, Data: h.queue.Status()})

	errCh := make(chan error, 2)
	go h.writeLoop(ctx, conn, client, errCh, cancel)
	go h.readLoop(ctx, conn, client, errCh, cancel, log)

	select {
	case <-ctx.Done():
		log.Info("websocket connection closed")
	case err := <-errCh:
		cancel()
		if err != nil {
			log.Info("websocket connection closed", slog.Any("error", err))
		} else {
			log.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) writeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	client *hub.Client,
	errCh chan<- error,
	cancel context.CancelFunc,
) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.Receive():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	client *hub.Client,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}

		var frame wsInbound
		if err := sonic.Unmarshal(message, &frame); err != nil {
			log.Warn("ignoring malformed websocket frame", slog.Any("error", err))
			continue
		}

		switch frame.Type {
		case "chat":
			h.submitChat(client, frame, log)
		case "ping":
			h.deliver(client, hub.Event{Type: hub.EventPong})
		default:
			log.Warn("ignoring unknown websocket frame",
				slog.String("frame_type", frame.Type),
			)
		}
	}
}

// submitChat 把对话帧转成任务入队，并把权威任务记录
// 直接回发给提交方。广播事件照常送达所有连接。
func (h *WsHandler) submitChat(client *hub.Client, frame wsInbound, log *slog.Logger) {
	if strings.TrimSpace(frame.Message) == "" {
		log.Warn("ignoring chat frame without message")
		return
	}

	typ, payload, err := tasks.NewChatTask(frame.Message, frame.JobID, frame.Context)
	if err != nil {
		log.Error("encode chat payload failed", slog.Any("error", err))
		return
	}
	task, err := h.queue.Submit(typ, payload)
	if err != nil {
		log.Error("queue chat task failed", slog.Any("error", err))
		return
	}

	h.deliver(client, hub.Event{
		Type: hub.EventTaskAccepted,
		Data: map[string]any{"task": task},
	})
}

func (h *WsHandler) deliver(client *hub.Client, event hub.Event) {
	frame, err := event.Encode()
	if err != nil {
		h.logger.Error("encode websocket event failed",
			slog.String("event", event.Type),
			slog.Any("error", err),
		)
		return
	}
	client.Deliver(frame)
}
