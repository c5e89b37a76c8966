package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classattend_sign_attempts_total",
		Help: "Student sign-off attempts by outcome.",
	}, []string{"outcome"})
	recordsVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_records_verified_total",
		Help: "Pending records flipped to lecturer-signed.",
	})
	manualSigns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_manual_signs_total",
		Help: "Lecturer-initiated manual sign-offs.",
	})
)
