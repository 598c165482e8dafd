package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	dmxPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "dmx",
			Name:      "packets_total",
			Help:      "Accepted E1.31 data packets by universe.",
		},
		[]string{"universe"},
	)
	dmxDecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "dmx",
			Name:      "decode_errors_total",
			Help:      "Datagrams discarded because they failed E1.31 decoding.",
		},
	)
	framesForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "bridge",
			Name:      "frames_forwarded_total",
			Help:      "Frames handed to the fixture sink.",
		},
		[]string{"universe"},
	)
	framesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "bridge",
			Name:      "frames_discarded_total",
			Help:      "Frames the fixture sink refused.",
		},
		[]string{"universe", "reason"},
	)
	registrationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "bridge",
			Name:      "registration_failures_total",
			Help:      "Failed asynchronous universe registrations.",
		},
	)
	dutyCycle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "windmill",
			Subsystem: "fixture",
			Name:      "duty_cycle_percent",
			Help:      "PWM duty cycle currently driven.",
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "fixture",
			Name:      "state_transitions_total",
			Help:      "Windmill state transitions by entered mode.",
		},
		[]string{"mode"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windmill",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "windmill",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			dmxPackets,
			dmxDecodeErrors,
			framesForwarded,
			framesDiscarded,
			registrationFailures,
			dutyCycle,
			stateTransitions,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordDMXPacket(universe uint16) {
	dmxPackets.WithLabelValues(strconv.Itoa(int(universe))).Inc()
}

func RecordDMXDecodeError() {
	dmxDecodeErrors.Inc()
}

func RecordFrameForwarded(universe uint16) {
	framesForwarded.WithLabelValues(strconv.Itoa(int(universe))).Inc()
}

func RecordFrameDiscarded(universe uint16, reason string) {
	framesDiscarded.WithLabelValues(strconv.Itoa(int(universe)), reason).Inc()
}

func RecordRegistrationFailure() {
	registrationFailures.Inc()
}

func SetDutyCycle(percent uint8) {
	dutyCycle.Set(float64(percent))
}

func RecordStateTransition(mode string) {
	stateTransitions.WithLabelValues(mode).Inc()
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, code).Inc()
	httpDuration.WithLabelValues(service, method, path, code).Observe(duration.Seconds())
}
