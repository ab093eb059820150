package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classledger_attendance_upserts_total",
		Help: "Day-record upserts by outcome.",
	}, []string{"outcome"})

	findsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classledger_attendance_finds_total",
		Help: "Ledger find queries served.",
	})
)
