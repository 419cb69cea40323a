package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/google/uuid"
)

type MonthSummary struct {
	Month    string                   `json:"month"`
	Distance float64                  `json:"distance"`
	Calories float64                  `json:"calories"`
	Records  []*domain.ActivityRecord `json:"records"`
}

type Dashboard struct {
	Months          []MonthSummary `json:"months"`
	TotalDistance   float64        `json:"totalDistance"`
	TotalCalories   float64        `json:"totalCalories"`
	StravaConnected bool           `json:"stravaConnected"`
}

type StatsService struct {
	activities  repository.ActivityRepository
	credentials *CredentialService
}

func NewStatsService(activities repository.ActivityRepository, credentials *CredentialService) *StatsService {
	return &StatsService{
		activities:  activities,
		credentials: credentials,
	}
}

// Monthly groups the user's records by month bucket, newest month first.
// Records keep the repository order within a month.
func (s *StatsService) Monthly(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	records, err := s.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	status, err := s.credentials.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		Months:          []MonthSummary{},
		StravaConnected: status.Connected,
	}

	index := make(map[string]int)
	for _, record := range records {
		if record.MonthYear == "" {
			continue
		}
		i, ok := index[record.MonthYear]
		if !ok {
			i = len(dashboard.Months)
			index[record.MonthYear] = i
			dashboard.Months = append(dashboard.Months, MonthSummary{Month: record.MonthYear})
		}

		month := &dashboard.Months[i]
		month.Records = append(month.Records, record)
		month.Distance += valueOrZero(record.Distance)
		month.Calories += valueOrZero(record.Calories)
		dashboard.TotalDistance += valueOrZero(record.Distance)
		dashboard.TotalCalories += valueOrZero(record.Calories)
	}

	sort.SliceStable(dashboard.Months, func(a, b int) bool {
		return monthStart(dashboard.Months[a].Month).After(monthStart(dashboard.Months[b].Month))
	})

	for i := range dashboard.Months {
		dashboard.Months[i].Distance = round2(dashboard.Months[i].Distance)
		dashboard.Months[i].Calories = round2(dashboard.Months[i].Calories)
	}
	dashboard.TotalDistance = round2(dashboard.TotalDistance)
	dashboard.TotalCalories = round2(dashboard.TotalCalories)

	return dashboard, nil
}

func monthStart(bucket string) time.Time {
	t, err := time.Parse(domain.MonthBucketLayout, bucket)
	if err != nil {
		return time.Time{}
	}
	return t
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
