package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "railwatch_cycles_total",
		Help: "Completed monitoring cycles.",
	})
	checksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "railwatch_checks_total",
		Help: "Departure checks performed.",
	})
	checkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "railwatch_check_errors_total",
		Help: "Departure checks that failed.",
	})
	dispatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "railwatch_dispatches_total",
		Help: "Messages dispatched to announce/notify.",
	})
	dedupSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "railwatch_dedup_suppressed_total",
		Help: "Checks suppressed because the message was unchanged.",
	})
)
