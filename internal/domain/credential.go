package domain

import (
	"time"

	"github.com/google/uuid"
)

// StravaCredential is a user's Strava access grant. There is at most one per user.
type StravaCredential struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	AccessToken  string    `json:"-" gorm:"size:500;not null"`
	RefreshToken string    `json:"-" gorm:"size:500;not null"`
	ExpiresAt    time.Time `json:"expiresAt" gorm:"not null"`
	AthleteID    int64     `json:"athleteId" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the access token can no longer be used at now.
func (c *StravaCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
