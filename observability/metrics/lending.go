package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default Prometheus registry over HTTP, for mounting at
// a daemon's /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// LendingMetrics bundles the Prometheus collectors that track the lending
// engine's operations, mirroring how every other subsystem in this lineage
// exposes a lazily-initialised singleton registry.
type LendingMetrics struct {
	lends        *prometheus.CounterVec
	borrows      *prometheus.CounterVec
	repays       *prometheus.CounterVec
	withdraws    *prometheus.CounterVec
	touches      *prometheus.CounterVec
	liquidations *prometheus.CounterVec
	indexGauge   prometheus.Gauge
	indexAdvance *prometheus.CounterVec
	apyGauge     prometheus.Gauge
	totalOffer   prometheus.Gauge
	totalWeight  prometheus.Gauge
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide lending metrics registry, creating and
// registering it on first use.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			lends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "lends_total",
				Help:      "Count of accepted lend operations by category.",
			}, []string{"category"}),
			borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "borrows_total",
				Help:      "Count of accepted borrow operations by category.",
			}, []string{"category"}),
			repays: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "repays_total",
				Help:      "Count of accepted repay operations by category.",
			}, []string{"category"}),
			withdraws: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "withdraws_total",
				Help:      "Count of accepted withdraw operations by category.",
			}, []string{"category"}),
			touches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "touches_total",
				Help:      "Count of loan touch reconciliations segmented by outcome.",
			}, []string{"outcome"}),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "liquidations_total",
				Help:      "Count of borrowings fully liquidated by touch.",
			}, []string{"category"}),
			indexGauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "liquidation_index",
				Help:      "Current value of the pool's liquidation index.",
			}),
			indexAdvance: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "index_advances_total",
				Help:      "Count of liquidation index advances segmented by cause.",
			}, []string{"cause"}),
			apyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "apy",
				Help:      "Current pool APY, fixed-point scaled by 1e6.",
			}),
			totalOffer: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "total_offer",
				Help:      "POWER currently available for new borrows.",
			}),
			totalWeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cardledger",
				Subsystem: "lending",
				Name:      "total_weight",
				Help:      "Sum of active borrower reserves, the pro-rata haircut denominator.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.lends,
			lendingRegistry.borrows,
			lendingRegistry.repays,
			lendingRegistry.withdraws,
			lendingRegistry.touches,
			lendingRegistry.liquidations,
			lendingRegistry.indexGauge,
			lendingRegistry.indexAdvance,
			lendingRegistry.apyGauge,
			lendingRegistry.totalOffer,
			lendingRegistry.totalWeight,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) IncLend(category string) {
	if m == nil {
		return
	}
	m.lends.WithLabelValues(category).Inc()
}

func (m *LendingMetrics) IncBorrow(category string) {
	if m == nil {
		return
	}
	m.borrows.WithLabelValues(category).Inc()
}

func (m *LendingMetrics) IncRepay(category string) {
	if m == nil {
		return
	}
	m.repays.WithLabelValues(category).Inc()
}

func (m *LendingMetrics) IncWithdraw(category string) {
	if m == nil {
		return
	}
	m.withdraws.WithLabelValues(category).Inc()
}

// ObserveTouch records a touch outcome; liquidated is true when the
// reconciliation zeroed the borrowing's reserve.
func (m *LendingMetrics) ObserveTouch(liquidated bool, category string) {
	if m == nil {
		return
	}
	outcome := "reconciled"
	if liquidated {
		outcome = "liquidated"
		m.liquidations.WithLabelValues(category).Inc()
	}
	m.touches.WithLabelValues(outcome).Inc()
}

// RecordIndexAdvance records an advance of the liquidation index, tagging the
// cause ("reserve_deficit" or "pool_deficit" per spec §4.6) and the index's
// new absolute value.
func (m *LendingMetrics) RecordIndexAdvance(cause string, newIndex uint64) {
	if m == nil {
		return
	}
	m.indexAdvance.WithLabelValues(cause).Inc()
	m.indexGauge.Set(float64(newIndex))
}

func (m *LendingMetrics) SetApy(apy uint64) {
	if m == nil {
		return
	}
	m.apyGauge.Set(float64(apy))
}

func (m *LendingMetrics) SetPoolGauges(totalOffer, totalWeight uint64) {
	if m == nil {
		return
	}
	m.totalOffer.Set(float64(totalOffer))
	m.totalWeight.Set(float64(totalWeight))
}

// CategoryLabel normalizes a category value to a stable Prometheus label.
func CategoryLabel(category uint8) string {
	return strconv.FormatUint(uint64(category), 10)
}
