package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumegenius",
			Subsystem: "generation",
			Name:      "resumes_total",
			Help:      "按终态统计的简历生成次数。",
		},
		[]string{"status"},
	)

	// 生成链路包含 LLM 调用与 Chrome 渲染，耗时远超普通 HTTP 请求。
	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumegenius",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "成功生成一份简历的端到端耗时（秒）。",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
		},
	)
)

// GenerationCompleted 记录一次成功生成及其耗时。
func GenerationCompleted(elapsed time.Duration) {
	generationTotal.WithLabelValues("completed").Inc()
	generationDuration.Observe(elapsed.Seconds())
}

// GenerationFailed 记录一次终态失败（重试耗尽）。
func GenerationFailed() {
	generationTotal.WithLabelValues("failed").Inc()
}
