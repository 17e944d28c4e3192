package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesChecked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_automod_messages_checked_total",
	Help: "Messages that passed the gate and were run through the detectors.",
})

var checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "warden_automod_check_duration_seconds",
	Help:    "Time from gate to dispatched action for one message.",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_automod_violations_total",
	Help: "Dispatched violations by rule type and action.",
}, []string{"rule", "action"})

var detectorErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_automod_detector_errors_total",
	Help: "Detector runs that failed and were treated as no violation.",
}, []string{"rule"})

var actionFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_automod_action_failures_total",
	Help: "Remedial actions that failed against the chat platform.",
}, []string{"action"})
