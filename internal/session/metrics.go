package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_sessions_opened_total",
		Help: "Sessions opened by lecturers.",
	})
	sessionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_sessions_closed_total",
		Help: "Sessions explicitly closed before their cutoff.",
	})
)
