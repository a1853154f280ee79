package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics groups the collectors tracking pool activity.
type LendingMetrics struct {
	operations      *prometheus.CounterVec
	operationErrors *prometheus.CounterVec
	interestAccrued prometheus.Counter
	liquidations    prometheus.Counter
	supplyAssets    prometheus.Gauge
	borrowAssets    prometheus.Gauge
	collateralItems prometheus.Gauge
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide lending metrics, registering them on
// first use.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_operations_total",
				Help: "Count of completed ledger operations by kind.",
			}, []string{"op"}),
			operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_operation_errors_total",
				Help: "Count of rejected ledger operations by kind.",
			}, []string{"op"}),
			interestAccrued: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lending_interest_accrued_total",
				Help: "Cumulative interest applied to the pool totals.",
			}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lending_liquidations_total",
				Help: "Count of completed liquidations.",
			}),
			supplyAssets: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lending_supply_assets",
				Help: "Current aggregate supplied liquidity.",
			}),
			borrowAssets: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lending_borrow_assets",
				Help: "Current aggregate outstanding debt.",
			}),
			collateralItems: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lending_collateral_items",
				Help: "Count of collateral items held in custody.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.operationErrors,
			lendingRegistry.interestAccrued,
			lendingRegistry.liquidations,
			lendingRegistry.supplyAssets,
			lendingRegistry.borrowAssets,
			lendingRegistry.collateralItems,
		)
	})
	return lendingRegistry
}

// ObserveOperation records a completed or rejected operation.
func (m *LendingMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.operationErrors.WithLabelValues(op).Inc()
		return
	}
	m.operations.WithLabelValues(op).Inc()
}

// AddInterest records interest applied during accrual.
func (m *LendingMetrics) AddInterest(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.interestAccrued.Add(amount)
}

// ObserveLiquidation counts a completed liquidation.
func (m *LendingMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// SetPoolTotals publishes the pool gauges.
func (m *LendingMetrics) SetPoolTotals(supply, borrow float64, collateral uint64) {
	if m == nil {
		return
	}
	m.supplyAssets.Set(supply)
	m.borrowAssets.Set(borrow)
	m.collateralItems.Set(float64(collateral))
}
