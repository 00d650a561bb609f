package queue

import "errors"

// ErrTaskNotFound 表示指定 ID 的任务既不在队列中也不在保留的历史里。
var ErrTaskNotFound = errors.New("queue: task not found")

// ErrNotCancellable 表示任务已经开始执行或已经结束，无法取消。
var ErrNotCancellable = errors.New("queue: task already started or finished")
