package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryStore is an in-memory implementation of every repository. It mirrors
// the constraints of the PostgreSQL schema that the services depend on:
// misses return gorm.ErrRecordNotFound and unique violations return
// gorm.ErrDuplicatedKey. Values are copied in and out.
type MemoryStore struct {
	mu          sync.Mutex
	seq         int
	users       map[uuid.UUID]domain.User
	sessions    map[uuid.UUID]domain.UserSession
	activities  map[uuid.UUID]domain.ActivityRecord
	order       map[uuid.UUID]int
	credentials map[uuid.UUID]domain.StravaCredential

	// CreateErr, when set, fails every activity insert.
	CreateErr error
	// CredentialWrites counts successful credential Upsert and Update calls.
	CredentialWrites int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]domain.User),
		sessions:    make(map[uuid.UUID]domain.UserSession),
		activities:  make(map[uuid.UUID]domain.ActivityRecord),
		order:       make(map[uuid.UUID]int),
		credentials: make(map[uuid.UUID]domain.StravaCredential),
	}
}

func (m *MemoryStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:       memoryUsers{m},
		Session:    memorySessions{m},
		Activity:   memoryActivities{m},
		Credential: memoryCredentials{m},
	}
}

// ActivityCount returns the number of stored activity records.
func (m *MemoryStore) ActivityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.activities)
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, existing := range r.m.users {
		if existing.ID == user.ID || existing.Email == user.Email || existing.Username == user.Username ||
			sameOptional(existing.GoogleID, user.GoogleID) || sameOptional(existing.GitHubID, user.GitHubID) {
			return gorm.ErrDuplicatedKey
		}
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) find(match func(domain.User) bool) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, user := range r.m.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r memoryUsers) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (r memoryUsers) GetByGitHubID(ctx context.Context, githubID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.GitHubID != nil && *u.GitHubID == githubID })
}

func (r memoryUsers) Update(ctx context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.users[user.ID] = *user
	return nil
}

func sameOptional(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

type memorySessions struct{ m *MemoryStore }

func (r memorySessions) Create(ctx context.Context, session *domain.UserSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	r.m.sessions[session.ID] = *session
	return nil
}

func (r memorySessions) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	session, ok := r.m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &session, nil
}

func (r memorySessions) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, session := range r.m.sessions {
		if session.UserID == userID {
			s := session
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memorySessions) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	delete(r.m.sessions, id)
	return nil
}

func (r memorySessions) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for id, session := range r.m.sessions {
		if session.UserID == userID {
			delete(r.m.sessions, id)
		}
	}
	return nil
}

func (r memorySessions) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, session := range r.m.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(r.m.sessions, id)
			n++
		}
	}
	return n, nil
}

type memoryActivities struct{ m *MemoryStore }

func (r memoryActivities) Create(ctx context.Context, record *domain.ActivityRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.CreateErr != nil {
		return r.m.CreateErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	for _, existing := range r.m.activities {
		if existing.ID == record.ID {
			return gorm.ErrDuplicatedKey
		}
		if record.StravaID != nil && existing.StravaID != nil && *existing.StravaID == *record.StravaID {
			return gorm.ErrDuplicatedKey
		}
	}
	_ = record.BeforeSave(nil)
	stamp(&record.CreatedAt, &record.UpdatedAt)

	r.m.seq++
	r.m.order[record.ID] = r.m.seq
	r.m.activities[record.ID] = *record
	return nil
}

func (r memoryActivities) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivityRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	record, ok := r.m.activities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (r memoryActivities) GetByStravaID(ctx context.Context, stravaID int64) (*domain.ActivityRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, record := range r.m.activities {
		if record.StravaID != nil && *record.StravaID == stravaID {
			rec := record
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memoryActivities) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ActivityRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var records []*domain.ActivityRecord
	for _, record := range r.m.activities {
		if record.UserID == userID {
			rec := record
			records = append(records, &rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return r.m.order[records[i].ID] > r.m.order[records[j].ID]
	})
	return records, nil
}

func (r memoryActivities) Update(ctx context.Context, record *domain.ActivityRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.activities[record.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.Date = record.Date
	existing.ActivityType = record.ActivityType
	existing.Distance = record.Distance
	existing.Time = record.Time
	existing.Pace = record.Pace
	existing.Calories = record.Calories
	existing.UpdatedAt = record.UpdatedAt
	_ = existing.BeforeSave(nil)
	r.m.activities[record.ID] = existing
	return nil
}

func (r memoryActivities) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.m.activities, id)
	delete(r.m.order, id)
	return nil
}

type memoryCredentials struct{ m *MemoryStore }

func (r memoryCredentials) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaCredential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cred, ok := r.m.credentials[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &cred, nil
}

func (r memoryCredentials) Upsert(ctx context.Context, cred *domain.StravaCredential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if existing, ok := r.m.credentials[cred.UserID]; ok {
		existing.AccessToken = cred.AccessToken
		existing.RefreshToken = cred.RefreshToken
		existing.ExpiresAt = cred.ExpiresAt
		existing.AthleteID = cred.AthleteID
		existing.UpdatedAt = cred.UpdatedAt
		r.m.credentials[cred.UserID] = existing
		*cred = existing
	} else {
		if cred.ID == uuid.Nil {
			cred.ID = uuid.New()
		}
		stamp(&cred.CreatedAt, &cred.UpdatedAt)
		r.m.credentials[cred.UserID] = *cred
	}
	r.m.CredentialWrites++
	return nil
}

func (r memoryCredentials) Update(ctx context.Context, cred *domain.StravaCredential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	existing, ok := r.m.credentials[cred.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.AccessToken = cred.AccessToken
	existing.RefreshToken = cred.RefreshToken
	existing.ExpiresAt = cred.ExpiresAt
	existing.UpdatedAt = cred.UpdatedAt
	r.m.credentials[cred.UserID] = existing
	r.m.CredentialWrites++
	return nil
}

func (r memoryCredentials) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	delete(r.m.credentials, userID)
	return nil
}

func (r memoryCredentials) Count(ctx context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	return int64(len(r.m.credentials)), nil
}
