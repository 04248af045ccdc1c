// Package metrics объявляет прикладные метрики Prometheus. Они отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subscription_tracker"

var (
	// FamilyOperations число операций над семейными группами по операции и результату.
	FamilyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "family_operations_total",
		Help:      "Family subscription operations by operation and result.",
	}, []string{"operation", "result"})

	// AccessChecks результаты проверки доступа к подписке.
	AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_checks_total",
		Help:      "Subscription access checks by resolved access type.",
	}, []string{"access_type"})

	// NotificationsPublished сообщения, отправленные в очередь уведомлений.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_published_total",
		Help:      "Notification messages published to the broker.",
	}, []string{"type", "result"})

	// WorkflowTriggers вызовы внешнего workflow напоминаний.
	WorkflowTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_triggers_total",
		Help:      "Reminder workflow trigger calls by result.",
	}, []string{"result"})

	// SearchDuration время выполнения административного поиска.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "admin_search_duration_seconds",
		Help:      "Admin subscription search latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Result метка результата операции.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
