package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bondfarm/core/events"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	operationOnce     sync.Once
	operationRegistry *OperationMetrics

	farmMetricsOnce sync.Once
	farmRegistry    *FarmMetrics

	bondMetricsOnce sync.Once
	bondRegistry    *BondMetrics

	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// handler activity per module.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bondfarm",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "http",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the HTTP
// status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// OperationMetrics tracks state transactions executed by the node.
type OperationMetrics struct {
	total   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// Operations returns the singleton registry for node operations.
func Operations() *OperationMetrics {
	operationOnce.Do(func() {
		operationRegistry = &OperationMetrics{
			total: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "node",
				Name:      "operations_total",
				Help:      "Count of state operations segmented by name and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "bondfarm",
				Subsystem: "node",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for state operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(operationRegistry.total, operationRegistry.latency)
	})
	return operationRegistry
}

// Observe records the execution metrics for a single operation.
func (m *OperationMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.total.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// FarmMetrics wraps collectors tracking staking activity.
type FarmMetrics struct {
	deposited    *prometheus.CounterVec
	withdrawn    *prometheus.CounterVec
	fees         *prometheus.CounterVec
	harvested    *prometheus.CounterVec
	emissionRate prometheus.Gauge
	pools        prometheus.Gauge
}

// Farm returns the singleton farm metrics registry.
func Farm() *FarmMetrics {
	farmMetricsOnce.Do(func() {
		farmRegistry = &FarmMetrics{
			deposited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "deposited_total",
				Help:      "Staked amounts deposited per pool asset.",
			}, []string{"asset"}),
			withdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "withdrawn_total",
				Help:      "Gross staked amounts withdrawn per pool asset.",
			}, []string{"asset"}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "withdraw_fees_total",
				Help:      "Early-exit fees routed to the fee vault per pool asset.",
			}, []string{"asset"}),
			harvested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "harvested_total",
				Help:      "Reward tokens paid out per pool asset.",
			}, []string{"asset"}),
			emissionRate: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "emission_rate",
				Help:      "Current reward emission per second.",
			}),
			pools: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bondfarm",
				Subsystem: "farm",
				Name:      "pools",
				Help:      "Number of live pools.",
			}),
		}
		prometheus.MustRegister(
			farmRegistry.deposited,
			farmRegistry.withdrawn,
			farmRegistry.fees,
			farmRegistry.harvested,
			farmRegistry.emissionRate,
			farmRegistry.pools,
		)
	})
	return farmRegistry
}

// Snapshot resets the gauges from persisted state, typically at startup.
func (m *FarmMetrics) Snapshot(rate uint64, pools int) {
	if m == nil {
		return
	}
	m.emissionRate.Set(float64(rate))
	m.pools.Set(float64(pools))
}

// BondMetrics wraps collectors tracking bond sales and vesting claims.
type BondMetrics struct {
	bondedIn    prometheus.Counter
	bondedOut   prometheus.Counter
	claimed     prometheus.Counter
	bondedTotal prometheus.Gauge
}

// Bond returns the singleton bond metrics registry.
func Bond() *BondMetrics {
	bondMetricsOnce.Do(func() {
		bondRegistry = &BondMetrics{
			bondedIn: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "bond",
				Name:      "stable_in_total",
				Help:      "Stablecoin paid into the treasury by bonders.",
			}),
			bondedOut: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "bond",
				Name:      "allocated_total",
				Help:      "Main token allocated to vesting positions.",
			}),
			claimed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "bond",
				Name:      "claimed_total",
				Help:      "Main token released from vesting positions.",
			}),
			bondedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "bondfarm",
				Subsystem: "bond",
				Name:      "bonded_total",
				Help:      "Cumulative allocation counted against the bond cap.",
			}),
		}
		prometheus.MustRegister(
			bondRegistry.bondedIn,
			bondRegistry.bondedOut,
			bondRegistry.claimed,
			bondRegistry.bondedTotal,
		)
	})
	return bondRegistry
}

// Snapshot resets the bonded total gauge from persisted state.
func (m *BondMetrics) Snapshot(bondedTotal uint64) {
	if m == nil {
		return
	}
	m.bondedTotal.Set(float64(bondedTotal))
}

type eventMetrics struct {
	transfers *prometheus.CounterVec
	swaps     *prometheus.CounterVec
}

func eventsRegistry() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "bank",
				Name:      "transfers_total",
				Help:      "Count of ledger transfers segmented by asset.",
			}, []string{"asset"}),
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bondfarm",
				Subsystem: "swap",
				Name:      "executed_total",
				Help:      "Count of AMM swaps segmented by pool.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(eventRegistry.transfers, eventRegistry.swaps)
	})
	return eventRegistry
}

// EventMetrics is an events.Emitter that folds committed events into the
// farm, bond and ledger collectors.
type EventMetrics struct{}

var _ events.Emitter = EventMetrics{}

// Emit implements events.Emitter.
func (EventMetrics) Emit(evt events.Event) {
	switch e := evt.(type) {
	case events.FarmDeposit:
		Farm().deposited.WithLabelValues(labelAsset(e.Asset)).Add(float64(e.Amount))
	case events.FarmWithdraw:
		asset := labelAsset(e.Asset)
		Farm().withdrawn.WithLabelValues(asset).Add(float64(e.Amount))
		if e.Fee > 0 {
			Farm().fees.WithLabelValues(asset).Add(float64(e.Fee))
		}
	case events.FarmHarvest:
		Farm().harvested.WithLabelValues(labelAsset(e.Asset)).Add(float64(e.Amount))
	case events.FarmRateChanged:
		Farm().emissionRate.Set(float64(e.Rate))
	case events.FarmPoolCreated:
		Farm().pools.Inc()
	case events.FarmPoolClosed:
		Farm().pools.Dec()
	case events.BondBonded:
		m := Bond()
		m.bondedIn.Add(float64(e.AmountIn))
		m.bondedOut.Add(float64(e.AmountOut))
		m.bondedTotal.Set(float64(e.BondedTotal))
	case events.BondClaimed:
		Bond().claimed.Add(float64(e.Amount))
	case events.Transfer:
		eventsRegistry().transfers.WithLabelValues(labelAsset(e.Asset)).Inc()
	case events.SwapExecuted:
		eventsRegistry().swaps.WithLabelValues(strings.ToLower(e.PoolID)).Inc()
	}
}

func labelAsset(asset string) string {
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
