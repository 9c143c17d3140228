package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uprove"

type metrics struct {
	registry    *prometheus.Registry
	issuances   *prometheus.CounterVec
	redemptions *prometheus.CounterVec
}

func newMetrics(pending func() float64) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		issuances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuances_total",
			Help:      "Issuance requests, by step and outcome.",
		}, []string{"step", "outcome"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redemption requests, by step and outcome.",
		}, []string{"step", "outcome"}),
	}
	m.registry.MustRegister(
		m.issuances,
		m.redemptions,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_sessions",
			Help:      "Exchanges waiting for the client's second request.",
		}, pending),
	)
	return m
}
