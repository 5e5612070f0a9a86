package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain counters are package level so any component can record into them.
// Each Collector registers them with its registry.
var (
	// WizardSubmissions counts wizard submissions by failing stage and outcome.
	WizardSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdesk_wizard_submissions_total",
			Help: "Wizard submissions by stage and outcome",
		},
		[]string{"mode", "stage", "outcome"},
	)

	// GuardDecisions counts routing guard outcomes.
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdesk_guard_decisions_total",
			Help: "Routing guard decisions by outcome",
		},
		[]string{"decision"},
	)

	AvatarUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdesk_avatar_uploads_total",
			Help: "Avatar uploads by outcome",
		},
		[]string{"outcome"},
	)

	OrphanSweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffdesk_orphan_accounts_total",
			Help: "Accounts found without an employee record, by action taken",
		},
		[]string{"action"},
	)
)
