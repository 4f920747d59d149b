// Package metrics 汇总服务与 worker 的 Prometheus 指标，由 /metrics 暴露。
package metrics

const namespace = "cvbuilder"
