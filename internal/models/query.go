package models

import "time"

// CaseQuery is a one-shot question attached to an enquiry and its single
// answer. The response triple is set together or not at all; once answered
// neither text field changes again.
type CaseQuery struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	EnquiryID    string     `db:"enquiry_id" json:"enquiry_id"`
	QueryText    string     `db:"query_text" json:"query_text"`
	RaisedBy     string     `db:"raised_by" json:"raised_by"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ResponseText *string    `db:"response_text" json:"response_text,omitempty"`
	RespondedBy  *string    `db:"responded_by" json:"responded_by,omitempty"`
	RespondedAt  *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

// Answered reports whether the query has received its response.
func (q *CaseQuery) Answered() bool {
	return q != nil && q.ResponseText != nil
}

// QueryFilter constrains case-query listings.
type QueryFilter struct {
	EnquiryID string
	RaisedBy  string
	Pending   *bool
	CreatedBy string
	Page      int
	PageSize  int
}
