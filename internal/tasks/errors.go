package tasks

import "errors"

// ErrUnknownType 表示字符串不在合法任务类型集合内。
var ErrUnknownType = errors.New("tasks: unknown task type")

// ErrNoHandler 表示该任务类型没有注册处理函数。
var ErrNoHandler = errors.New("tasks: no handler registered for task type")
