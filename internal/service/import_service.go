package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/observability"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/dom/athlete-log/internal/strava"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrFetchFailed = errors.New("strava activity fetch failed")

// stravaCategories maps Strava sport types onto the labels used for manual
// entries. Unlisted types are stored as Strava names them.
var stravaCategories = map[string]string{
	"Run":            "Running",
	"Ride":           "Cycling",
	"Swim":           "Swimming",
	"Walk":           "Walking",
	"WeightTraining": "Gym",
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

type ImportService struct {
	credentials *CredentialService
	activities  repository.ActivityRepository
	client      StravaAPI
	publisher   events.Publisher
	pageSize    int
	logger      *zap.Logger
	now         func() time.Time
}

func NewImportService(
	credentials *CredentialService,
	activities repository.ActivityRepository,
	client StravaAPI,
	publisher events.Publisher,
	pageSize int,
	logger *zap.Logger,
) *ImportService {
	if pageSize <= 0 {
		pageSize = strava.DefaultPageSize
	}
	return &ImportService{
		credentials: credentials,
		activities:  activities,
		client:      client,
		publisher:   publisher,
		pageSize:    pageSize,
		logger:      logger,
		now:         time.Now,
	}
}

// ImportActivities pulls the most recent page of the user's Strava activities
// and stores the ones not seen before. Each insert commits on its own, so a
// failure part way through keeps what was already imported.
func (s *ImportService) ImportActivities(ctx context.Context, userID uuid.UUID) (ImportResult, error) {
	var result ImportResult
	log := s.logger.With(zap.String("user_id", userID.String()))

	token, err := s.credentials.GetValidCredential(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshFailed):
			observability.RecordImportRun(observability.ImportNotConnected, time.Time{})
			return result, fmt.Errorf("%w: %w", ErrNotConnected, err)
		case errors.Is(err, ErrNotConnected):
			observability.RecordImportRun(observability.ImportNotConnected, time.Time{})
			return result, err
		default:
			return result, err
		}
	}

	list, err := s.client.ListActivities(ctx, token, s.pageSize)
	if err != nil {
		observability.RecordImportRun(observability.ImportFetchFailed, time.Time{})
		log.Warn("strava activity fetch failed", zap.Error(err))
		return result, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	defer func() {
		observability.RecordImportRecords(result.Imported, result.Skipped, result.Invalid)
	}()

	for _, activity := range list {
		_, err := s.activities.GetByStravaID(ctx, activity.ID)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, fmt.Errorf("look up strava activity %d: %w", activity.ID, err)
		}

		record, err := normalizeActivity(userID, activity)
		if err != nil {
			result.Invalid++
			log.Warn("skipping strava activity", zap.Int64("strava_id", activity.ID), zap.Error(err))
			continue
		}

		if err := s.activities.Create(ctx, record); err != nil {
			// Another import inserted it between the lookup and the insert.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("store strava activity %d: %w", activity.ID, err)
		}
		result.Imported++

		if err := s.publisher.Publish(ctx, events.Event{
			Type:       events.ActivityImported,
			ActivityID: record.ID,
			UserID:     userID,
			StravaID:   record.StravaID,
			OccurredAt: record.CreatedAt,
		}); err != nil {
			log.Warn("failed to publish import event", zap.String("activity_id", record.ID.String()), zap.Error(err))
		}
	}

	observability.RecordImportRun(observability.ImportSuccess, s.now())
	log.Info("strava import finished",
		zap.Int("fetched", len(list)),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
	)
	return result, nil
}

// normalizeActivity converts a Strava activity into an ActivityRecord owned by
// userID. Pace is computed from the unrounded distance.
func normalizeActivity(userID uuid.UUID, activity strava.Activity) (*domain.ActivityRecord, error) {
	start, err := activity.StartDate()
	if err != nil {
		return nil, fmt.Errorf("start_date_local %q: %w", activity.StartDateLocal, err)
	}

	km := activity.Distance / 1000
	distance := math.Round(km*100) / 100
	elapsed := domain.FormatDuration(activity.MovingTime)
	stravaID := activity.ID

	record := &domain.ActivityRecord{
		ID:              uuid.New(),
		UserID:          userID,
		ActivityType:    stravaCategory(activity.Type),
		Distance:        &distance,
		Time:            &elapsed,
		Calories:        activity.Calories,
		StravaID:        &stravaID,
		ExternalPayload: datatypes.JSON(activity.Raw),
	}
	record.SetDate(start)
	if pace, ok := domain.CalculatePace(km, elapsed); ok {
		record.Pace = &pace
	}
	return record, nil
}

func stravaCategory(sportType string) string {
	if category, ok := stravaCategories[sportType]; ok {
		return category
	}
	return sportType
}
