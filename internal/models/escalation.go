package models

import "time"

// EscalationStatus tracks the sub-workflow state of a case escalation.
type EscalationStatus string

const (
	EscalationStatusPending  EscalationStatus = "PENDING"
	EscalationStatusResolved EscalationStatus = "RESOLVED"
)

// CaseEscalation raises an enquiry to a higher authority outside the normal
// approval chain. An enquiry may accumulate several escalations over its
// life, but at most one may be PENDING at a time.
type CaseEscalation struct {
	ID               string           `db:"id" json:"id"`
	EnquiryID        string           `db:"enquiry_id" json:"enquiry_id"`
	EscalationReason string           `db:"escalation_reason" json:"escalation_reason"`
	EscalatedTo      string           `db:"escalated_to" json:"escalated_to"`
	EscalatedBy      string           `db:"escalated_by" json:"escalated_by"`
	Status           EscalationStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	ResolvedAt       *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
}

// EscalationView is the reconciled read shape. Derived is true when no
// dedicated escalation record exists and the entry was synthesised from an
// enquiry stuck in ESCALATED status.
type EscalationView struct {
	CaseEscalation
	EnquiryCode string `json:"enquiry_code"`
	Derived     bool   `json:"derived"`
}

// EscalationFilter constrains escalation listings.
type EscalationFilter struct {
	Status     *EscalationStatus
	EnquiryID  string
	DistrictID string
	CreatedBy  string
	Page       int
	PageSize   int
}
