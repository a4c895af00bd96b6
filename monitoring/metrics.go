package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	applicationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_operations_total",
			Help: "Total slot application operations",
		},
		[]string{"operation", "status"},
	)

	invitationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_operations_total",
			Help: "Total invitation operations",
		},
		[]string{"kind", "operation", "status"},
	)

	notificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Notifications that could not be delivered",
		},
		[]string{"channel"},
	)

	membershipWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_writes_total",
			Help: "Network membership and manager grants by outcome",
		},
		[]string{"result"},
	)
)

// Monitor records domain counters. A nil *Monitor is valid and records
// nothing, so services can run without metrics in tests.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// StatusLabel maps an operation error to the status label: "ok" or the
// error's stable code.
func StatusLabel(err error, code func(error) string) string {
	if err == nil {
		return "ok"
	}
	return code(err)
}

func (m *Monitor) TrackApplication(operation, status string) {
	if m == nil {
		return
	}
	applicationOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackInvitation(kind, operation, status string) {
	if m == nil {
		return
	}
	invitationOperations.WithLabelValues(kind, operation, status).Inc()
}

func (m *Monitor) TrackNotificationFailure(channel string) {
	if m == nil {
		return
	}
	notificationFailures.WithLabelValues(channel).Inc()
}

// TrackMembershipWrite records "created" or "existing".
func (m *Monitor) TrackMembershipWrite(created bool) {
	if m == nil {
		return
	}
	result := "existing"
	if created {
		result = "created"
	}
	membershipWrites.WithLabelValues(result).Inc()
}
