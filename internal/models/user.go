package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleBeneficiary     UserRole = "BENEFICIARY"
	RoleCMO             UserRole = "CMO"
	RoleSDM             UserRole = "SDM"
	RoleDM              UserRole = "DM"
	RoleAdmin           UserRole = "ADMIN"
	RoleServiceProvider UserRole = "SERVICE_PROVIDER"
	RoleHospital        UserRole = "HOSPITAL"
	RoleSupport         UserRole = "SUPPORT"
)

// UserStatus captures account availability for authorization checks.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	DistrictID   *string    `db:"district_id" json:"district_id,omitempty"`
	HospitalID   *string    `db:"hospital_id" json:"hospital_id,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
