package prometheus

import "time"

// DocketMetrics holds the rule-engine and renewal metrics.
type DocketMetrics struct {
	// Rule engine
	RuleEvaluationsTotal  CounterVec
	TaskActionsTotal      CounterVec
	ScheduleSkippedTotal  CounterVec
	RenewalYearsGenerated CounterVec

	// Renewal workflow and pricing
	RenewalTransitionsTotal CounterVec
	FeeErrorsTotal          CounterVec
	QuotesTotal             CounterVec

	// Infrastructure
	OperationDuration    HistogramVec
	LockAcquisitions     CounterVec
	CacheRequestsTotal   CounterVec
	WorkerMessagesTotal  CounterVec
	WorkerInFlight       GaugeVec
	DBOpenConnections    GaugeVec
	ComponentHealthGauge GaugeVec
}

// DefaultOperationBuckets covers sub-millisecond pure evaluations up to slow
// batch transactions.
var DefaultOperationBuckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewDocketMetrics registers all metrics on collector.
func NewDocketMetrics(collector MetricsCollector) *DocketMetrics {
	if collector == nil {
		collector = NewNoopCollector()
	}
	m := &DocketMetrics{}

	m.RuleEvaluationsTotal = collector.RegisterCounter("rule_evaluations_total", "Events evaluated against task rules", "trigger", "result")
	m.TaskActionsTotal = collector.RegisterCounter("task_actions_total", "Tasks created, cleared, deleted or rescheduled by rules", "action")
	m.ScheduleSkippedTotal = collector.RegisterCounter("renewal_schedule_skipped_total", "Renewal schedules or years not generated", "reason")
	m.RenewalYearsGenerated = collector.RegisterCounter("renewal_years_generated_total", "Renewal tasks generated", "country")

	m.RenewalTransitionsTotal = collector.RegisterCounter("renewal_transitions_total", "Renewal tasks handled by batch transitions", "transition", "result")
	m.FeeErrorsTotal = collector.RegisterCounter("fee_errors_total", "Renewals that could not be priced", "code")
	m.QuotesTotal = collector.RegisterCounter("quotes_total", "Renewal quotes produced", "grace")

	m.OperationDuration = collector.RegisterHistogram("operation_duration_seconds", "Duration of docket operations", DefaultOperationBuckets, "operation")
	m.LockAcquisitions = collector.RegisterCounter("lock_acquisitions_total", "Distributed lock attempts", "result")
	m.CacheRequestsTotal = collector.RegisterCounter("cache_requests_total", "Reference data cache lookups", "cache", "result")
	m.WorkerMessagesTotal = collector.RegisterCounter("worker_messages_total", "Messages processed by the worker", "topic", "status")
	m.WorkerInFlight = collector.RegisterGauge("worker_in_flight", "Messages being processed", "topic")
	m.DBOpenConnections = collector.RegisterGauge("db_open_connections", "Open database connections", "state")
	m.ComponentHealthGauge = collector.RegisterGauge("component_healthy", "1 when the dependency answered its last check", "component")

	return m
}

// NewNoopDocketMetrics returns metrics that record nothing.
func NewNoopDocketMetrics() *DocketMetrics {
	return NewDocketMetrics(NewNoopCollector())
}

// ObserveOperation records the duration of a named operation since start.
func (m *DocketMetrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordEvaluation records one evaluated event.
func (m *DocketMetrics) RecordEvaluation(trigger string, err error) {
	m.RuleEvaluationsTotal.WithLabelValues(trigger, resultLabel(err)).Inc()
}

// RecordTaskActions adds n tasks handled with action.
func (m *DocketMetrics) RecordTaskActions(action string, n int) {
	if n > 0 {
		m.TaskActionsTotal.WithLabelValues(action).Add(float64(n))
	}
}

// RecordTransition records the affected and skipped counts of a batch.
func (m *DocketMetrics) RecordTransition(transition string, affected, skipped int) {
	if affected > 0 {
		m.RenewalTransitionsTotal.WithLabelValues(transition, "affected").Add(float64(affected))
	}
	if skipped > 0 {
		m.RenewalTransitionsTotal.WithLabelValues(transition, "skipped").Add(float64(skipped))
	}
}

// RecordWorkerMessage records a consumed message outcome.
func (m *DocketMetrics) RecordWorkerMessage(topic, status string) {
	m.WorkerMessagesTotal.WithLabelValues(topic, status).Inc()
}

// SetHealth publishes a dependency check result.
func (m *DocketMetrics) SetHealth(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.ComponentHealthGauge.WithLabelValues(component).Set(v)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

//Personal.AI order the ending
