package dto

// CreateEnquiryRequest carries the fields a front-line officer submits when
// opening a case.
type CreateEnquiryRequest struct {
	PatientName      string  `json:"patient_name" validate:"required"`
	DistrictID       string  `json:"district_id" validate:"required"`
	HospitalID       string  `json:"hospital_id" validate:"required"`
	SourceHospitalID string  `json:"source_hospital_id" validate:"required"`
	MedicalCondition string  `json:"medical_condition" validate:"required"`
	DocumentRef      *string `json:"document_ref,omitempty"`
}

// TransitionRequest asks the lifecycle engine to apply an action.
type TransitionRequest struct {
	Action string  `json:"action" validate:"required"`
	Note   *string `json:"note,omitempty"`
}

// EscalateRequest opens an escalation on an in-flight enquiry.
type EscalateRequest struct {
	Reason      string `json:"reason" validate:"required"`
	EscalatedTo string `json:"escalated_to" validate:"required"`
}

// UpdateEscalationRequest edits a pending escalation. Status may only move
// to RESOLVED; resolving never touches the parent enquiry's status.
type UpdateEscalationRequest struct {
	Reason      *string `json:"reason,omitempty"`
	EscalatedTo *string `json:"escalated_to,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=PENDING RESOLVED"`
}

// RaiseQueryRequest attaches a question to an enquiry.
type RaiseQueryRequest struct {
	QueryText string `json:"query_text" validate:"required"`
}

// RespondToQueryRequest records the single answer to a case query.
type RespondToQueryRequest struct {
	ResponseText string `json:"response_text" validate:"required"`
}
