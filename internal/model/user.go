package model

import "time"

// Roles carried in the JWT "role" claim.  Hosts publish items, triage
// their booking inbox and verify arrivals at the gate; guests create
// bookings.
const (
	RoleGuest = "GUEST"
	RoleHost  = "HOST"
)

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted because these structs are used by
// the repository layer; handlers define separate response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (GUEST or HOST).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
