package hub

// Client 代表一条已接入的观察者连接。
// send 通道由 Hub 与私信投递方写入，由连接自己的写循环消费。
// 通道不会被关闭，连接的退出由读写循环自行终止。
type Client struct {
	hub  *Hub
	send chan []byte
}

// Receive 返回出站消息通道，供连接的写循环消费。
func (c *Client) Receive() <-chan []byte { return c.send }

// Deliver 只向该连接投递一条已编码消息，不经过广播。
// 缓冲已满时丢弃并返回 false。
func (c *Client) Deliver(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close 将连接从 Hub 移除，之后的广播不再投递给它。
func (c *Client) Close() {
	c.hub.unregister(c)
}
