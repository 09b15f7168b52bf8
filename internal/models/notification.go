package models

// NotificationKind names an outbound notification event.
type NotificationKind string

// Notification kinds handed to the notifier.
const (
	NotifyAccountCreated      NotificationKind = "account_created"
	NotifyAccountUpdated      NotificationKind = "account_updated"
	NotifyAccountDeactivated  NotificationKind = "account_deactivated"
	NotifyEnrollmentConfirmed NotificationKind = "enrollment_confirmed"
	NotifyRecoveryPlan        NotificationKind = "recovery_plan"
	NotifyAcademicReport      NotificationKind = "academic_report"
)

// Notification is a plain outbound tuple. Formatting and delivery belong to the notifier.
type Notification struct {
	Recipient string                 `json:"recipient"`
	Kind      NotificationKind       `json:"kind"`
	Fields    map[string]interface{} `json:"fields"`
	// RequestID links the notification to the request that caused it.
	RequestID string `json:"request_id,omitempty"`
}
