// Package models defines the data structures for database entities in certM3.
// It includes models for identity-claim requests, users, groups, memberships,
// issued certificates, and operator accounts.
package models

import (
	"database/sql"
	"time"
)

// Request lifecycle states.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// User lifecycle states.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Group lifecycle states.
const (
	GroupStatusActive   = "active"
	GroupStatusInactive = "inactive"
)

// Certificate lifecycle states.
const (
	CertStatusActive  = "active"
	CertStatusRevoked = "revoked"
)

// ProtectedGroup is the system-seeded group that cannot be created,
// modified, or deactivated through the API.
const ProtectedGroup = "users"

// Request represents an identity claim awaiting email verification.
// The challenge is a single-use secret token, meaningful only while the
// request is pending.
type Request struct {
	ID          string         `db:"id" json:"id"`
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	Email       string         `db:"email" json:"email"`
	Status      string         `db:"status" json:"status"`
	Challenge   string         `db:"challenge" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	CreatedBy   sql.NullString `db:"created_by" json:"created_by"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by"`
}

// User represents a verified identity materialized from an approved request.
type User struct {
	ID          string    `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Group represents a named collection of users. The name is the primary
// key, a human identifier rather than a synthetic id.
type Group struct {
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Membership links a user to a group. Memberships are append-only: once
// granted they are never deleted, so group history stays auditable.
type Membership struct {
	UserID    string         `db:"user_id" json:"user_id"`
	GroupName string         `db:"group_name" json:"group_name"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	CreatedBy sql.NullString `db:"created_by" json:"created_by"`
}

// Certificate represents an issued end-entity certificate. The CA-assigned
// serial number is the primary key; the fingerprint is derived from the
// subject public key and is unique across all records.
type Certificate struct {
	SerialNumber     string         `db:"serial_number" json:"serial_number"`
	CodeVersion      string         `db:"code_version" json:"code_version"`
	Username         string         `db:"username" json:"username"`
	UserID           string         `db:"user_id" json:"user_id"`
	CommonName       string         `db:"common_name" json:"common_name"`
	Email            string         `db:"email" json:"email"`
	Fingerprint      string         `db:"fingerprint" json:"fingerprint"`
	NotBefore        time.Time      `db:"not_before" json:"not_before"`
	NotAfter         time.Time      `db:"not_after" json:"not_after"`
	Status           string         `db:"status" json:"status"`
	RevokedAt        sql.NullTime   `db:"revoked_at" json:"revoked_at"`
	RevokedBy        sql.NullString `db:"revoked_by" json:"revoked_by"`
	RevocationReason sql.NullString `db:"revocation_reason" json:"revocation_reason"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Operator represents an administrative account for the management API.
type Operator struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
