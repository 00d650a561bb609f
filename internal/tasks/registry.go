package tasks

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc 执行某一类型任务的业务逻辑。
// 返回的 JSON 作为任务结果保存并广播；返回 error 表示队列层面的失败。
// 业务层面的失败（例如投递被站点拒绝）应编码在返回的 JSON 中而不是 error，
// 两者在任务状态上是不同的结果。
type HandlerFunc func(ctx context.Context, t *Task) (json.RawMessage, error)

// Middleware 包装 HandlerFunc 以叠加横切逻辑（指标、日志等）。
type Middleware func(next HandlerFunc) HandlerFunc

// Registry 按任务类型路由到对应的处理函数。
// 注册应在队列 worker 启动前完成，启动后只读。
type Registry struct {
	handlers    map[Type]HandlerFunc
	middlewares []Middleware
}

// NewRegistry 创建一个空的处理函数注册表。
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Type]HandlerFunc),
	}
}

// Register 为指定任务类型注册处理函数，重复注册会覆盖之前的值。
func (r *Registry) Register(typ Type, fn HandlerFunc) {
	r.handlers[typ] = fn
}

// Use 追加一个中间件，执行顺序与添加顺序一致。
func (r *Registry) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// Handles 报告该类型是否已注册处理函数。
func (r *Registry) Handles(typ Type) bool {
	_, ok := r.handlers[typ]
	return ok
}

// Resolve 返回包裹了全部中间件的处理函数。
func (r *Registry) Resolve(typ Type) (HandlerFunc, error) {
	fn, ok := r.handlers[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, typ)
	}
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		fn = r.middlewares[i](fn)
	}
	return fn, nil
}
