package hub

import "github.com/bytedance/sonic"

// 广播事件类型，与仪表盘前端约定的协议保持一致。
// task_accepted 与 pong 仅点对点回发给发起连接，不进入广播。
const (
	EventTaskQueued    = "task_queued"
	EventTaskStarted   = "task_started"
	EventTaskFinished  = "task_finished"
	EventTaskCancelled = "task_cancelled"
	EventQueueStatus   = "queue_status"
	EventTaskAccepted  = "task_accepted"
	EventPong          = "pong"
)

// Event 是出站消息的统一信封。pong 这类无数据帧省略 data 字段。
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Encode 将事件序列化为一份字节，广播前只编码一次。
func (e Event) Encode() ([]byte, error) {
	return sonic.Marshal(e)
}
