package metrics

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type CampaignMetrics struct {
	created       prometheus.Counter
	settled       prometheus.Counter
	claimed       prometheus.Counter
	approved      prometheus.Gauge
	payoutIndex   prometheus.Gauge
	poolBalance   prometheus.Gauge
	currentHeight prometheus.Gauge
}

var (
	campaignOnce     sync.Once
	campaignRegistry *CampaignMetrics
)

func Campaign() *CampaignMetrics {
	campaignOnce.Do(func() {
		campaignRegistry = &CampaignMetrics{
			created: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "campaign_created_total",
				Help: "Count of campaigns created.",
			}),
			settled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "campaign_settled_total",
				Help: "Count of campaigns whose rewards were fully claimed or pooled out.",
			}),
			claimed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "campaign_claimed_amount_total",
				Help: "Cumulative amount paid out through reward claims.",
			}),
			approved: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "campaign_approved_pending",
				Help: "Approved campaigns not yet settled.",
			}),
			payoutIndex: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "campaign_payout_index_size",
				Help: "Campaigns with unclaimed rewards outstanding.",
			}),
			poolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "campaign_pool_free_balance",
				Help: "Free balance of the module pool account.",
			}),
			currentHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "campaign_block_height",
				Help: "Height used for claim time locks.",
			}),
		}
		prometheus.MustRegister(
			campaignRegistry.created,
			campaignRegistry.settled,
			campaignRegistry.claimed,
			campaignRegistry.approved,
			campaignRegistry.payoutIndex,
			campaignRegistry.poolBalance,
			campaignRegistry.currentHeight,
		)
	})
	return campaignRegistry
}

func (m *CampaignMetrics) RecordCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *CampaignMetrics) RecordSettled(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.settled.Add(float64(count))
}

func (m *CampaignMetrics) RecordClaim(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.claimed.Add(bigToFloat(amount))
}

// SetSnapshot publishes the post-commit view of the module state.
func (m *CampaignMetrics) SetSnapshot(approved, payoutIndex int, poolBalance *big.Int) {
	if m == nil {
		return
	}
	m.approved.Set(float64(approved))
	m.payoutIndex.Set(float64(payoutIndex))
	m.poolBalance.Set(bigToFloat(poolBalance))
}

func (m *CampaignMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.currentHeight.Set(float64(height))
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
