package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the case engine.
// Tracks lifecycle counts, review outcomes and write contention.
type Metrics struct {
	CasesCreated       prometheus.Counter
	Transitions        *prometheus.CounterVec
	DocumentsUploaded  prometheus.Counter
	DocumentReviews    *prometheus.CounterVec
	VersionConflicts   prometheus.Counter
	OperationDuration  *prometheus.HistogramVec
	EventPublishErrors prometheus.Counter
}

// New creates case engine metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CasesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_cases_created_total",
			Help: "Total number of cases created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casedesk_case_transitions_total",
			Help: "Committed case status changes by target status",
		}, []string{"status"}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_documents_uploaded_total",
			Help: "Total number of documents attached to cases",
		}),
		DocumentReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "casedesk_document_reviews_total",
			Help: "Document reviews by outcome",
		}, []string{"outcome"}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_case_version_conflicts_total",
			Help: "Case writes rejected because the stored version moved",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "casedesk_case_operation_duration_seconds",
			Help:    "Duration of case engine operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_lifecycle_event_publish_errors_total",
			Help: "Lifecycle events that could not be handed to the publisher",
		}),
	}
}

func (m *Metrics) IncrementCaseCreated() {
	m.CasesCreated.Inc()
}

func (m *Metrics) IncrementTransition(status string) {
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementDocumentUploaded() {
	m.DocumentsUploaded.Inc()
}

func (m *Metrics) IncrementReview(outcome string) {
	m.DocumentReviews.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementVersionConflict() {
	m.VersionConflicts.Inc()
}

func (m *Metrics) IncrementPublishError() {
	m.EventPublishErrors.Inc()
}

// ObserveOperation records how long operation took.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
