package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as label values.
const (
	ReasonCapacity   = "capacity_exceeded"
	ReasonDuplicate  = "already_reserved"
	ReasonContention = "contention"
	ReasonValidation = "validation"
)

var (
	admissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_admissions_total",
		Help: "Reservations admitted by the capacity ledger.",
	})

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Reservation attempts rejected, by reason.",
		},
		[]string{"reason"},
	)

	cancellationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_cancellations_total",
		Help: "Reservations cancelled.",
	})

	admissionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_admission_duration_seconds",
		Help:    "Time spent inside the admission serialization point.",
		Buckets: prometheus.DefBuckets,
	})
)

// Init registers the booking collectors in the default registry.
func Init() {
	prometheus.MustRegister(admissionsTotal, rejectionsTotal, cancellationsTotal, admissionDuration)
}

// RecordAdmission counts a successful admission and its duration.
func RecordAdmission(d time.Duration) {
	admissionsTotal.Inc()
	admissionDuration.Observe(d.Seconds())
}

// RecordRejection counts a rejected reservation attempt.
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordCancellation counts a cancelled reservation.
func RecordCancellation() {
	cancellationsTotal.Inc()
}
