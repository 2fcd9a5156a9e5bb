// Package metrics exposes the few counters this service keeps. Registration
// happens once at composition; handlers and services only increment.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Set struct {
	WalletsCreated prometheus.Counter
	Payments       *prometheus.CounterVec
	Challenges     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Set {
	s := &Set{
		WalletsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_accounts_created_total",
			Help: "Custodial accounts created and persisted.",
		}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_payments_total",
			Help: "Payment submissions by terminal status.",
		}, []string{"status"}),
		Challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_auth_challenges_total",
			Help: "Strong-assertion challenge verifications by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(s.WalletsCreated, s.Payments, s.Challenges)
	return s
}
