package models

import "time"

// District is reference data with a plain CRUD lifecycle.
type District struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HospitalType distinguishes government facilities from empanelled ones.
type HospitalType string

const (
	HospitalTypeGovernment HospitalType = "GOVERNMENT"
	HospitalTypePrivate    HospitalType = "PRIVATE"
)

// Hospital is reference data for source and destination facilities.
type Hospital struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	DistrictID   string       `db:"district_id" json:"district_id"`
	HospitalType HospitalType `db:"hospital_type" json:"hospital_type"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// HospitalFilter constrains hospital listings.
type HospitalFilter struct {
	DistrictID   string
	HospitalType *HospitalType
	Search       string
	Page         int
	PageSize     int
}
