package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts workflow activity for the /metrics endpoint.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Reviews     *prometheus.CounterVec
	MailSent    prometheus.Counter
}

// NewMetrics registers the workflow counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoc_course_submissions_total",
			Help: "Course worksheet submissions, by result.",
		}, []string{"result"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoc_course_transitions_total",
			Help: "Course-level workflow transitions, by action.",
		}, []string{"action"}),
		Reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geoc_outcome_reviews_total",
			Help: "Per-outcome review flag changes, by field.",
		}, []string{"field"}),
		MailSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "geoc_notifications_total",
			Help: "Workflow notification emails attempted.",
		}),
	}
}
