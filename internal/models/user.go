package models

import "time"

// UserRole is the account role carried in access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleCounselor UserRole = "COUNSELOR"
	RoleStaff     UserRole = "STAFF"
	RoleStudent   UserRole = "STUDENT"
)

// ReviewsAlerts reports whether the role may work the counselor alert queue.
func (r UserRole) ReviewsAlerts() bool {
	return r == RoleCounselor || r == RoleAdmin
}

// User is a student or staff account. Students point at their assigned
// counselor through CounselorID.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	CounselorID  *string    `db:"counselor_id" json:"counselor_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CounseledBy reports whether counselorID is this student's counselor.
func (u *User) CounseledBy(counselorID string) bool {
	return u != nil && u.CounselorID != nil && *u.CounselorID == counselorID
}

// Pagination is the page block of list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
