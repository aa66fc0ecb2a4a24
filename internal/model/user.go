package model

import "time"

// Roles recognised by the JWT "role" claim.  New signups always get
// RoleUser; admin accounts are seeded directly in the database.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  The json tags are omitted here because these structs are
// primarily used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name shown in admin views.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – "user" or "admin".
//  PhoneNumber  – optional contact number shown to reserving users.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	PhoneNumber  string    // users.phone_number
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
