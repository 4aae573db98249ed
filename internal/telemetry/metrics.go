package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Режимы пересчёта due date (метка mode).
const (
	ModeClassical = "classical"
	ModeWindow    = "window"
	ModeInitial   = "initial"
	ModeManual    = "manual"
	ModeNoHistory = "no_history"
)

var (
	// DueDateRecomputations — сколько раз due date был изменён, по режимам.
	DueDateRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qcsched",
			Name:      "due_date_recomputations_total",
			Help:      "Number of due date changes by calculation mode.",
		},
		[]string{"mode"},
	)

	// RecordPerformanceDuration — длительность RecordPerformance вместе с блокировкой.
	RecordPerformanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qcsched",
			Name:      "record_performance_seconds",
			Help:      "Time spent applying a performance record to a schedule.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SchedulesByStatus — число активных schedules по статусу на момент последнего sweep.
	SchedulesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "qcsched",
			Name:      "schedules_by_status",
			Help:      "Active schedules by due status at the last sweep.",
		},
		[]string{"status"},
	)

	// Sweeps — число выполненных sweep, по результату.
	Sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qcsched",
			Name:      "sweeps_total",
			Help:      "Number of status sweeps by result.",
		},
		[]string{"result"},
	)
)
