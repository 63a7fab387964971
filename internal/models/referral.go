package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxReferralLevel bounds every referrer-chain walk.
const MaxReferralLevel = 3

// LevelCommission returns the fixed commission percentage for a referral level.
func LevelCommission(level int) decimal.Decimal {
	switch level {
	case 1:
		return decimal.NewFromInt(5)
	case 2:
		return decimal.NewFromInt(2)
	case 3:
		return decimal.NewFromInt(1)
	default:
		return decimal.Zero
	}
}

type Referral struct {
	ID                   uuid.UUID       `json:"id"`
	ReferrerID           uuid.UUID       `json:"referrer_id"`
	ReferredUserID       uuid.UUID       `json:"referred_user_id"`
	Level                int             `json:"level"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	TotalEarned          decimal.Decimal `json:"total_earned"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TeamLevel aggregates a referrer's edges at one level.
type TeamLevel struct {
	Level       int             `json:"level"`
	Count       int             `json:"count"`
	TotalEarned decimal.Decimal `json:"total_earned"`
}

// TeamMember is one downline user as shown to their referrer.
type TeamMember struct {
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Level       int             `json:"level"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	JoinedAt    time.Time       `json:"joined_at"`
}
