package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// MonthBucketLayout formats the MM-YYYY aggregation key.
	MonthBucketLayout = "01-2006"
)

// ActivityRecord is one logged workout, entered by hand or imported from Strava.
type ActivityRecord struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID          uuid.UUID      `json:"userId" gorm:"type:uuid;not null;index"`
	Date            time.Time      `json:"date" gorm:"type:date;not null;index"`
	ActivityType    string         `json:"activityType" gorm:"size:100;not null"`
	Distance        *float64       `json:"distance"`
	Time            *string        `json:"time" gorm:"size:50"`
	Pace            *string        `json:"pace" gorm:"size:50"`
	Calories        *float64       `json:"calories"`
	MonthYear       string         `json:"monthYear" gorm:"size:7;not null;index"`
	StravaID        *int64         `json:"stravaId,omitempty" gorm:"uniqueIndex"`
	ExternalPayload datatypes.JSON `json:"-"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// SetDate sets the calendar date and the month bucket derived from it.
func (a *ActivityRecord) SetDate(date time.Time) {
	a.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	a.MonthYear = MonthBucket(a.Date)
}

// Recalculate refreshes the derived pace from distance and time.
func (a *ActivityRecord) Recalculate() {
	a.Pace = PacePtr(a.Distance, a.Time)
}

// IsImported reports whether the record came from Strava.
func (a *ActivityRecord) IsImported() bool {
	return a.StravaID != nil
}

// OwnedBy reports whether userID owns the record.
func (a *ActivityRecord) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

// BeforeSave keeps MonthYear in step with Date.
func (a *ActivityRecord) BeforeSave(tx *gorm.DB) error {
	if !a.Date.IsZero() {
		a.MonthYear = MonthBucket(a.Date)
	}
	return nil
}

// MonthBucket returns the MM-YYYY key for date.
func MonthBucket(date time.Time) string {
	return date.Format(MonthBucketLayout)
}
