package metrics

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"jobPilot/internal/tasks"
)

var (
	taskProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobpilot",
			Subsystem: "queue",
			Name:      "tasks_processed_total",
			Help:      "任务处理总数。",
		},
		[]string{"task_type"},
	)

	taskFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobpilot",
			Subsystem: "queue",
			Name:      "tasks_failed_total",
			Help:      "任务处理失败总数。",
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "jobpilot",
			Subsystem: "queue",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobpilot",
			Subsystem: "queue",
			Name:      "task_duration_seconds",
			Help:      "任务执行耗时分布（秒）。",
			Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"task_type"},
	)
)

// QueueMiddleware 记录任务处理指标，注册到任务处理注册表。
func QueueMiddleware() tasks.Middleware {
	return func(next tasks.HandlerFunc) tasks.HandlerFunc {
		return func(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
			taskType := t.Type.String()
			taskInProgress.WithLabelValues(taskType).Inc()
			timer := prometheus.NewTimer(taskDuration.WithLabelValues(taskType))
			defer func() {
				timer.ObserveDuration()
				taskInProgress.WithLabelValues(taskType).Dec()
			}()

			result, err := next(ctx, t)
			if err != nil {
				taskFailedTotal.WithLabelValues(taskType).Inc()
			}

			taskProcessedTotal.WithLabelValues(taskType).Inc()

			return result, err
		}
	}
}

var depthOnce sync.Once

// RegisterQueueDepth 注册排队任务数的即时采样函数。
func RegisterQueueDepth(pending func() float64) {
	depthOnce.Do(func() {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "jobpilot",
				Subsystem: "queue",
				Name:      "pending_tasks",
				Help:      "当前排队等待执行的任务数量。",
			},
			pending,
		))
	})
}

var hubOnce sync.Once

// RegisterHub 注册事件集线器的连接数与投递计数采样函数。
func RegisterHub(connections, broadcasts, dropped func() float64) {
	hubOnce.Do(func() {
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace: "jobpilot",
					Subsystem: "hub",
					Name:      "connections",
					Help:      "当前在线的 WebSocket 连接数。",
				},
				connections,
			),
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace: "jobpilot",
					Subsystem: "hub",
					Name:      "events_broadcast_total",
					Help:      "累计广播的事件条数。",
				},
				broadcasts,
			),
			prometheus.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace: "jobpilot",
					Subsystem: "hub",
					Name:      "events_dropped_total",
					Help:      "因连接缓冲写满而丢弃的投递条数。",
				},
				dropped,
			),
		)
	})
}
