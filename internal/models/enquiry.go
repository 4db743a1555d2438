package models

import "time"

// EnquiryStatus enumerates the lifecycle states of a service enquiry.
type EnquiryStatus string

const (
	EnquiryStatusPending           EnquiryStatus = "PENDING"
	EnquiryStatusForwarded         EnquiryStatus = "FORWARDED"
	EnquiryStatusApproved          EnquiryStatus = "APPROVED"
	EnquiryStatusRejected          EnquiryStatus = "REJECTED"
	EnquiryStatusEscalated         EnquiryStatus = "ESCALATED"
	EnquiryStatusInProgress        EnquiryStatus = "IN_PROGRESS"
	EnquiryStatusFinancialApproved EnquiryStatus = "FINANCIAL_APPROVED"
	EnquiryStatusOrderReleased     EnquiryStatus = "ORDER_RELEASED"
	EnquiryStatusCompleted         EnquiryStatus = "COMPLETED"
)

// AllEnquiryStatuses lists every defined status, in presentation order.
var AllEnquiryStatuses = []EnquiryStatus{
	EnquiryStatusPending,
	EnquiryStatusForwarded,
	EnquiryStatusApproved,
	EnquiryStatusRejected,
	EnquiryStatusEscalated,
	EnquiryStatusInProgress,
	EnquiryStatusFinancialApproved,
	EnquiryStatusOrderReleased,
	EnquiryStatusCompleted,
}

// Terminal reports whether the status has no outgoing transitions.
func (s EnquiryStatus) Terminal() bool {
	return s == EnquiryStatusRejected || s == EnquiryStatusCompleted
}

// Valid reports whether the status is one of the defined values.
func (s EnquiryStatus) Valid() bool {
	for _, known := range AllEnquiryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// EnquiryAction names a requested lifecycle transition.
type EnquiryAction string

const (
	ActionApprove           EnquiryAction = "approve"
	ActionReject            EnquiryAction = "reject"
	ActionForward           EnquiryAction = "forward"
	ActionEscalate          EnquiryAction = "escalate"
	ActionFinancialSanction EnquiryAction = "financial-sanction"
	ActionReleaseOrder      EnquiryAction = "release-order"
	ActionMarkComplete      EnquiryAction = "mark-complete"
	ActionResolveAndResume  EnquiryAction = "resolve-and-resume"
)

// Enquiry is the primary case record for an air-ambulance service request.
// Status moves only through the lifecycle engine; id and code are immutable
// after creation.
type Enquiry struct {
	ID               string         `db:"id" json:"id"`
	Code             string         `db:"code" json:"code"`
	PatientName      string         `db:"patient_name" json:"patient_name"`
	DistrictID       string         `db:"district_id" json:"district_id"`
	HospitalID       string         `db:"hospital_id" json:"hospital_id"`
	SourceHospitalID string         `db:"source_hospital_id" json:"source_hospital_id"`
	MedicalCondition string         `db:"medical_condition" json:"medical_condition"`
	DocumentRef      *string        `db:"document_ref" json:"document_ref,omitempty"`
	Status           EnquiryStatus  `db:"status" json:"status"`
	PreviousStatus   *EnquiryStatus `db:"previous_status" json:"previous_status,omitempty"`
	CreatedBy        string         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// EnquiryDetail joins display fields for list views.
type EnquiryDetail struct {
	Enquiry
	DistrictName       string `db:"district_name" json:"district_name"`
	HospitalName       string `db:"hospital_name" json:"hospital_name"`
	SourceHospitalName string `db:"source_hospital_name" json:"source_hospital_name"`
	CreatedByName      string `db:"created_by_name" json:"created_by_name"`
}

// EnquiryFilter constrains listing and aggregation queries. CreatedBy is the
// ownership filter applied before everything else when the actor is a CMO.
type EnquiryFilter struct {
	Status     *EnquiryStatus
	DistrictID string
	HospitalID string
	CreatedBy  string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// StatusHistoryEntry is one appended audit record per applied transition.
type StatusHistoryEntry struct {
	ID         string        `db:"id" json:"id"`
	EnquiryID  string        `db:"enquiry_id" json:"enquiry_id"`
	FromStatus EnquiryStatus `db:"from_status" json:"from_status"`
	ToStatus   EnquiryStatus `db:"to_status" json:"to_status"`
	Action     EnquiryAction `db:"action" json:"action"`
	ActorID    string        `db:"actor_id" json:"actor_id"`
	ActorRole  UserRole      `db:"actor_role" json:"actor_role"`
	Note       *string       `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}
