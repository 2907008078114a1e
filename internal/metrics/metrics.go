// Package metrics 账本与结算的 Prometheus 指标
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "ledger_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	appendTotal   *prometheus.CounterVec
	appendLatency *prometheus.HistogramVec

	decisionTotal *prometheus.CounterVec

	settlementTotal   *prometheus.CounterVec
	settlementLatency *prometheus.HistogramVec
	settledMinorTotal *prometheus.CounterVec

	commissionTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init 注册指标，可重复调用
func Init() {
	registerOnce.Do(func() {
		appendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "append_total",
				Help: "Total ledger appends by type and result",
			},
			[]string{"type", "result"},
		)
		appendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "append_latency_seconds",
				Help:    "Ledger append latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		decisionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "obligation_decisions_total",
				Help: "Total obligation decisions by kind, decision and result",
			},
			[]string{"kind", "decision", "result"},
		)
		settlementTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlements_total",
				Help: "Total settlement attempts by kind and result",
			},
			[]string{"kind", "result"},
		)
		settlementLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_latency_seconds",
				Help:    "Settlement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settledMinorTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settled_amount_minor_total",
				Help: "Settled amount in minor units by currency",
			},
			[]string{"currency"},
		)
		commissionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commission_computations_total",
				Help: "Total commission computations by outcome",
			},
			[]string{"outcome"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total admin API requests by route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "Admin API latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		prometheus.MustRegister(
			appendTotal,
			appendLatency,
			decisionTotal,
			settlementTotal,
			settlementLatency,
			settledMinorTotal,
			commissionTotal,
			httpRequests,
			httpLatency,
		)
	})
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveAppend 记录一次账本追加
func ObserveAppend(txType string, err error, duration time.Duration) {
	result := resultOf(err)
	if txType == "" {
		txType = "unknown"
	}
	if appendTotal != nil {
		appendTotal.WithLabelValues(txType, result).Inc()
	}
	if appendLatency != nil {
		appendLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncDecision 记录一次审核
func IncDecision(kind, decision string, err error) {
	if decisionTotal != nil {
		decisionTotal.WithLabelValues(kind, decision, resultOf(err)).Inc()
	}
}

// ObserveSettlement 记录一次结算
func ObserveSettlement(kind string, err error, duration time.Duration) {
	result := resultOf(err)
	if settlementTotal != nil {
		settlementTotal.WithLabelValues(kind, result).Inc()
	}
	if settlementLatency != nil {
		settlementLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddSettledAmount 累计已结算金额
func AddSettledAmount(currency string, minor int64) {
	if minor <= 0 {
		return
	}
	if settledMinorTotal != nil {
		settledMinorTotal.WithLabelValues(currency).Add(float64(minor))
	}
}

// IncCommission 记录佣金计算结果（created / duplicate / skipped）
func IncCommission(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if commissionTotal != nil {
		commissionTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveHTTP 记录管理端请求
func ObserveHTTP(method, route, status string, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// 佣金计算结果
const (
	CommissionCreated   = "created"
	CommissionDuplicate = "duplicate"
	CommissionSkipped   = "skipped"
)
