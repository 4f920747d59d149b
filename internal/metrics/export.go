package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "导出管线耗时分布（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	exportFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "failed_total",
			Help:      "导出失败次数，按失败阶段区分。",
		},
		[]string{"stage"},
	)
)

// ObserveExport 记录一次导出的耗时；err 非空时按阶段计数失败。
func ObserveExport(stage string, elapsed time.Duration, err error) {
	exportDuration.Observe(elapsed.Seconds())
	if err != nil {
		exportFailedTotal.WithLabelValues(stage).Inc()
	}
}
