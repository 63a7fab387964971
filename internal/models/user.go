package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role carried in issued tokens.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus gates participation in referral commission walks.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountBanned:
		return true
	}
	return false
}

type User struct {
	ID            uuid.UUID     `json:"id"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"`
	DisplayName   string        `json:"display_name"`
	Phone         string        `json:"phone"`
	Role          Role          `json:"role"`
	ReferralCode  string        `json:"referral_code"`
	ReferredBy    *uuid.UUID    `json:"referred_by,omitempty"`
	AccountStatus AccountStatus `json:"account_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
