package service

import (
	"context"
	"errors"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivityService manages hand-entered activity records. In lenient mode bad
// input is replaced by defaults and reported back as warnings; in strict mode
// it is rejected with a *domain.InputError.
type ActivityService struct {
	repo      repository.ActivityRepository
	publisher events.Publisher
	strict    bool
	logger    *zap.Logger
	now       func() time.Time
}

func NewActivityService(repo repository.ActivityRepository, publisher events.Publisher, strict bool, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		repo:      repo,
		publisher: publisher,
		strict:    strict,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ActivityService) WithClock(now func() time.Time) *ActivityService {
	s.now = now
	return s
}

func (s *ActivityService) Create(ctx context.Context, userID uuid.UUID, input domain.ActivityInput) (*domain.ActivityRecord, []domain.FieldIssue, error) {
	fields, issues, err := s.parse(input)
	if err != nil {
		return nil, nil, err
	}

	date := s.now()
	if fields.Date != nil {
		date = *fields.Date
	}

	record := &domain.ActivityRecord{
		ID:     uuid.New(),
		UserID: userID,
	}
	record.SetDate(date)
	applyFields(record, fields)

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.ActivityCreated, record)
	return record, issues, nil
}

// Get returns the record if userID owns it. Records of other users are
// reported as not found.
func (s *ActivityService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ActivityRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}
	if !record.OwnedBy(userID) {
		return nil, domain.ErrActivityNotFound
	}
	return record, nil
}

// Update replaces the editable fields. A missing or unusable date keeps the
// current one.
func (s *ActivityService) Update(ctx context.Context, userID, id uuid.UUID, input domain.ActivityInput) (*domain.ActivityRecord, []domain.FieldIssue, error) {
	record, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	fields, issues, err := s.parse(input)
	if err != nil {
		return nil, nil, err
	}

	if fields.Date != nil {
		record.SetDate(*fields.Date)
	}
	applyFields(record, fields)
	record.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, nil, err
	}
	return record, issues, nil
}

// Delete removes the record. A record owned by someone else is left in place
// and ErrNotOwner is returned.
func (s *ActivityService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrActivityNotFound
		}
		return err
	}
	if !record.OwnedBy(userID) {
		s.logger.Warn("refused to delete activity of another user",
			zap.String("user_id", userID.String()),
			zap.String("activity_id", id.String()),
		)
		return domain.ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrActivityNotFound
		}
		return err
	}

	s.publish(ctx, events.ActivityDeleted, record)
	return nil
}

func (s *ActivityService) List(ctx context.Context, userID uuid.UUID) ([]*domain.ActivityRecord, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ActivityService) parse(input domain.ActivityInput) (domain.ActivityFields, []domain.FieldIssue, error) {
	fields, issues := domain.ParseActivityInput(input)
	if s.strict && len(issues) > 0 {
		return fields, nil, &domain.InputError{Issues: issues}
	}
	return fields, issues, nil
}

func applyFields(record *domain.ActivityRecord, fields domain.ActivityFields) {
	distance := fields.Distance
	calories := fields.Calories
	elapsed := fields.Time

	record.ActivityType = fields.ActivityType
	record.Distance = &distance
	record.Calories = &calories
	record.Time = &elapsed
	record.Recalculate()
}

func (s *ActivityService) publish(ctx context.Context, eventType string, record *domain.ActivityRecord) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		ActivityID: record.ID,
		UserID:     record.UserID,
		StravaID:   record.StravaID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to publish activity event",
			zap.String("type", eventType),
			zap.String("activity_id", record.ID.String()),
			zap.Error(err),
		)
	}
}
