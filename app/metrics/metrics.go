package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP 请求指标
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edusloth_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edusloth_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// 异步任务指标（转写 / AI 生成）
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edusloth_jobs_total",
			Help: "Total number of background jobs by outcome",
		},
		[]string{"kind", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edusloth_job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	// 对象存储指标
	ObjectsUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edusloth_objects_uploaded_total",
			Help: "Total number of objects uploaded by bucket",
		},
		[]string{"bucket"},
	)
)

func init() {
	// 注册所有指标
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		JobsTotal,
		JobDuration,
		ObjectsUploaded,
	)
}

// RecordRequest 记录请求指标的助手函数
func RecordRequest(method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, status).Inc()
	RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordJob 记录任务结果指标
func RecordJob(kind, status string, duration time.Duration) {
	JobsTotal.WithLabelValues(kind, status).Inc()
	JobDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
