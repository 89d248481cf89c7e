package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the game's prometheus collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	RoundsStarted       *prometheus.CounterVec
	RoundsFinished      *prometheus.CounterVec
	Answers             *prometheus.CounterVec
	LifelinesUsed       *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quiz_rounds_started_total", Help: "Rounds started per subject"},
			[]string{"subject"},
		),
		RoundsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quiz_rounds_finished_total", Help: "Rounds finished per subject and pass state"},
			[]string{"subject", "passed"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quiz_answers_total", Help: "Answers recorded"},
			[]string{"correct"},
		),
		LifelinesUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quiz_lifelines_used_total", Help: "Lifelines applied"},
			[]string{"kind"},
		),
		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "quiz_persistence_failures_total", Help: "Failed storage reads and writes"},
			[]string{"op"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiz_request_duration_seconds",
				Help:    "Duration of HTTP read requests",
				Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2},
			},
			[]string{"path", "status"},
		),
	}
	reg.MustRegister(m.RoundsStarted, m.RoundsFinished, m.Answers, m.LifelinesUsed, m.PersistenceFailures, m.RequestDuration)
	return m
}

func (m *Metrics) RoundStarted(subject string) {
	if m == nil {
		return
	}
	m.RoundsStarted.WithLabelValues(subject).Inc()
}

func (m *Metrics) RoundFinished(subject string, passed bool) {
	if m == nil {
		return
	}
	m.RoundsFinished.WithLabelValues(subject, strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) AnswerRecorded(correct bool) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) LifelineUsed(kind string) {
	if m == nil {
		return
	}
	m.LifelinesUsed.WithLabelValues(kind).Inc()
}

func (m *Metrics) PersistenceFailed(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
}

// Instrument wraps h and records its duration under path.
func (m *Metrics) Instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		m.RequestDuration.WithLabelValues(path, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
