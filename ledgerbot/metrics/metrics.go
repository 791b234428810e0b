package metrics

import (
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledgerbot"

const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
)

// Collector records engine outcomes. It implements engine.Observer.
type Collector struct {
	registry *prometheus.Registry

	XPGranted     prometheus.Counter
	LevelUps      prometheus.Counter
	CoinsCredited prometheus.Counter
	Handled       *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	StoreRetries  prometheus.Counter
	RoleRewards   *prometheus.CounterVec
}

var _ engine.Observer = (*Collector)(nil)

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		XPGranted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_granted_total",
			Help:      "Total XP granted across all users.",
		}),
		LevelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Levels crossed by XP grants.",
		}),
		CoinsCredited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coins_credited_total",
			Help:      "Coins credited by activity, daily claims and admin credits.",
		}),
		Handled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handled_total",
			Help:      "Activities and commands handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed operations by failure kind.",
		}, []string{"kind"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling an activity or command.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"kind"}),
		StoreRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Units of work re-run after a write conflict.",
		}),
		RoleRewards: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_rewards_total",
			Help:      "Role reward assignments by outcome.",
		}, []string{"outcome"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Observe(kind string, res engine.Result, took time.Duration) {
	c.Latency.WithLabelValues(kind).Observe(took.Seconds())

	switch r := res.(type) {
	case engine.Failure:
		c.Handled.WithLabelValues(kind, string(r.Kind)).Inc()
		c.Failures.WithLabelValues(string(r.Kind)).Inc()
	case engine.Skipped:
		c.Handled.WithLabelValues(kind, OutcomeSkipped).Inc()
	case engine.Progressed:
		c.Handled.WithLabelValues(kind, OutcomeOK).Inc()
		c.XPGranted.Add(float64(r.Award.Granted))
		c.LevelUps.Add(float64(len(r.Award.CrossedLevels)))
		c.CoinsCredited.Add(float64(r.Coins))
	case engine.DailyClaimed:
		c.Handled.WithLabelValues(kind, OutcomeOK).Inc()
		c.CoinsCredited.Add(float64(r.Reward))
	case engine.Credited:
		c.Handled.WithLabelValues(kind, OutcomeOK).Inc()
		c.CoinsCredited.Add(float64(r.Credited))
	default:
		c.Handled.WithLabelValues(kind, OutcomeOK).Inc()
	}
}

// StoreRetry is meant for ledger.Retrier.OnRetry.
func (c *Collector) StoreRetry(int, error) {
	c.StoreRetries.Inc()
}

func (c *Collector) RoleReward(err error) {
	if err != nil {
		c.RoleRewards.WithLabelValues("failed").Inc()
		return
	}
	c.RoleRewards.WithLabelValues(OutcomeOK).Inc()
}
